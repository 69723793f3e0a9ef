package resource

// firstID returns the first non-zero id from the candidates. The backend is
// inconsistent about identity fields across endpoints (some answer "id",
// others a resource-typed key like "order_id"); identity is normalized here,
// at the ingestion boundary, so fold operations never branch on key shape.
func firstID(candidates ...ID) ID {
	for _, c := range candidates {
		if c != 0 {
			return c
		}
	}
	return 0
}

// SameEntity reports whether two entities of the same resource refer to the
// same backend record, comparing canonical ids only. Entities with no id at
// all (both keys zero) never match anything.
func SameEntity[T Entity](a, b T) bool {
	ida := a.CanonicalID()
	if ida == 0 {
		return false
	}
	return ida == b.CanonicalID()
}

// IndexByID returns the position of the entity with the given canonical id
// in items, or -1 when absent.
func IndexByID[T Entity](items []T, id ID) int {
	if id == 0 {
		return -1
	}
	for i := range items {
		if items[i].CanonicalID() == id {
			return i
		}
	}
	return -1
}
