package store

import (
	"maps"
	"slices"

	"github.com/atelier-labs/atelier/internal/intent"
	"github.com/atelier-labs/atelier/internal/resource"
)

// Keyed is the cache slice for a parent-partitioned resource: pieces keyed by
// product id, piece images keyed by piece id, piece materials keyed by
// proposal-item-piece id. Every mutation addresses exactly one parent key and
// replaces only that parent's collection; other parents are never touched.
type Keyed[T resource.Child] struct {
	// Children maps a parent id to its ordered child collection.
	Children map[resource.ID][]T
	// UploadErrors maps a parent id to its last upload failure message.
	UploadErrors map[resource.ID]string
	// Loading and Err follow the same request/terminal discipline as State.
	Loading bool
	Err     string
}

// foldKeyed applies one intent to a keyed resource slice. Total and pure,
// like foldState.
func foldKeyed[T resource.Child](s Keyed[T], in intent.Intent) Keyed[T] {
	switch v := in.(type) {
	case intent.ChildrenFetchRequested[T]:
		s.Loading = true
		s.Err = ""
		return s

	case intent.ChildMutationRequested[T]:
		s.Loading = true
		s.Err = ""
		return s

	case intent.ChildrenReplaced[T]:
		s.Children = withChildren(s.Children, v.Parent, slices.Clone(v.Items))
		s.Loading = false
		return s

	case intent.ChildAppended[T]:
		children := append(slices.Clone(s.Children[v.Parent]), v.Item)
		s.Children = withChildren(s.Children, v.Parent, children)
		s.Loading = false
		return s

	case intent.ChildUpdated[T]:
		children := slices.Clone(s.Children[v.Parent])
		if idx := resource.IndexByID(children, v.Item.CanonicalID()); idx >= 0 {
			children[idx] = v.Item
		}
		s.Children = withChildren(s.Children, v.Parent, children)
		s.Loading = false
		return s

	case intent.ChildRemoved[T]:
		children := slices.Clone(s.Children[v.Parent])
		if idx := resource.IndexByID(children, v.ID); idx >= 0 {
			children = slices.Delete(children, idx, idx+1)
		}
		s.Children = withChildren(s.Children, v.Parent, children)
		s.Loading = false
		return s

	case intent.ChildrenReordered[T]:
		// Rebuild in the requested id order; ids not present in the current
		// collection are dropped without raising an error.
		current := s.Children[v.Parent]
		reordered := make([]T, 0, len(current))
		for _, id := range v.Order {
			if idx := resource.IndexByID(current, id); idx >= 0 {
				reordered = append(reordered, current[idx])
			}
		}
		s.Children = withChildren(s.Children, v.Parent, reordered)
		s.Loading = false
		return s

	case intent.ChildrenFailed[T]:
		s.Loading = false
		s.Err = v.Message
		return s

	case intent.ChildUploadFailed[T]:
		errs := maps.Clone(s.UploadErrors)
		if errs == nil {
			errs = make(map[resource.ID]string, 1)
		}
		errs[v.Parent] = v.Message
		s.UploadErrors = errs
		s.Loading = false
		return s

	default:
		return s
	}
}

// withChildren returns a copy of the partition map with one parent's
// collection replaced.
func withChildren[T resource.Child](m map[resource.ID][]T, parent resource.ID, children []T) map[resource.ID][]T {
	next := maps.Clone(m)
	if next == nil {
		next = make(map[resource.ID][]T, 1)
	}
	next[parent] = children
	return next
}

// clone returns a defensive copy safe to hand to consumers.
func (s Keyed[T]) clone() Keyed[T] {
	if s.Children != nil {
		children := make(map[resource.ID][]T, len(s.Children))
		for parent, items := range s.Children {
			children[parent] = slices.Clone(items)
		}
		s.Children = children
	}
	s.UploadErrors = maps.Clone(s.UploadErrors)
	return s
}
