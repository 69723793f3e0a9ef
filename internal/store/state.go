package store

import (
	"maps"
	"slices"

	"github.com/atelier-labs/atelier/internal/intent"
	"github.com/atelier-labs/atelier/internal/resource"
)

// State is the cache slice for one flat resource collection. Values are
// treated as immutable: every fold returns a new State whose mutated
// containers are fresh copies, so snapshots handed to consumers can never
// observe a partial transition.
type State[T resource.Entity] struct {
	// Items is the ordered collection, replaced wholesale by list fetches.
	Items []T
	// Current is the last fetched/created/updated single entity (detail cache).
	Current *T
	// Created is the one-shot cache of the last created entity, consumed by
	// the creating UI and cleared only by an explicit ClearCreated intent.
	Created *T
	// Loading is true between a request intent and its terminal counterpart.
	Loading bool
	// Err holds the last failure message; empty means no error. It is reset
	// on every subsequent request intent.
	Err string
	// Page is pagination metadata from the last successful list fetch. It is
	// never recomputed locally after create/update/delete.
	Page *resource.Pagination
	// DocumentURLs caches server-generated document URLs keyed by entity id.
	DocumentURLs map[resource.ID]string
}

// foldState applies one intent to a flat resource slice. It is total and
// pure: intents addressed to other resources fall through to the default
// branch and leave the state unchanged.
func foldState[T resource.Entity](s State[T], in intent.Intent) State[T] {
	switch v := in.(type) {
	case intent.FetchAllRequested[T]:
		s.Loading = true
		s.Err = ""
		return s

	case intent.FetchByIDRequested[T]:
		// Clear the detail cache while loading so a new id never shows the
		// previous entity's data.
		s.Loading = true
		s.Err = ""
		s.Current = nil
		return s

	case intent.CreateRequested[T]:
		s.Loading = true
		s.Err = ""
		return s

	case intent.UpdateRequested[T]:
		s.Loading = true
		s.Err = ""
		return s

	case intent.DeleteRequested[T]:
		s.Loading = true
		s.Err = ""
		return s

	case intent.FetchAllSucceeded[T]:
		s.Items = slices.Clone(v.Items)
		if v.Page != nil {
			page := *v.Page
			s.Page = &page
		}
		s.Loading = false
		return s

	case intent.FetchByIDSucceeded[T]:
		item := v.Item
		s.Current = &item
		s.Loading = false
		return s

	case intent.CreateSucceeded[T]:
		item := v.Item
		s.Items = append(slices.Clone(s.Items), item)
		s.Current = &item
		created := v.Item
		s.Created = &created
		s.Loading = false
		return s

	case intent.UpdateSucceeded[T]:
		if idx := resource.IndexByID(s.Items, v.Item.CanonicalID()); idx >= 0 {
			items := slices.Clone(s.Items)
			items[idx] = v.Item
			s.Items = items
		}
		if s.Current != nil && resource.SameEntity(*s.Current, v.Item) {
			item := v.Item
			s.Current = &item
		}
		s.Loading = false
		return s

	case intent.DeleteSucceeded[T]:
		if idx := resource.IndexByID(s.Items, v.ID); idx >= 0 {
			s.Items = slices.Delete(slices.Clone(s.Items), idx, idx+1)
		}
		s.Loading = false
		return s

	case intent.FetchAllFailed[T]:
		return failState(s, v.Message)
	case intent.FetchByIDFailed[T]:
		return failState(s, v.Message)
	case intent.CreateFailed[T]:
		return failState(s, v.Message)
	case intent.UpdateFailed[T]:
		return failState(s, v.Message)
	case intent.DeleteFailed[T]:
		return failState(s, v.Message)

	case intent.ClearCreated[T]:
		s.Created = nil
		return s

	case intent.ReplaceCurrentOptimistically[T]:
		// Immediate local replacement of the detail entity; items stay as
		// they are until a real UpdateSucceeded reconciles them.
		item := v.Item
		s.Current = &item
		return s

	case intent.DocumentURLFailed[T]:
		// Document generation never raised the loading flag, so only the
		// failure message is recorded.
		s.Err = v.Message
		return s

	case intent.DocumentURLSet[T]:
		urls := maps.Clone(s.DocumentURLs)
		if urls == nil {
			urls = make(map[resource.ID]string, 1)
		}
		urls[v.ID] = v.URL
		s.DocumentURLs = urls
		return s

	default:
		// Not this resource's intent.
		return s
	}
}

// failState applies the uniform failure transition: terminal, data untouched.
func failState[T resource.Entity](s State[T], message string) State[T] {
	s.Loading = false
	s.Err = message
	return s
}

// clone returns a defensive copy safe to hand to consumers.
func (s State[T]) clone() State[T] {
	s.Items = slices.Clone(s.Items)
	if s.Current != nil {
		cur := *s.Current
		s.Current = &cur
	}
	if s.Created != nil {
		created := *s.Created
		s.Created = &created
	}
	if s.Page != nil {
		page := *s.Page
		s.Page = &page
	}
	s.DocumentURLs = maps.Clone(s.DocumentURLs)
	return s
}
