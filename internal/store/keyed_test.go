package store

import (
	"testing"

	"github.com/atelier-labs/atelier/internal/intent"
	"github.com/atelier-labs/atelier/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageIDs(items []resource.PieceImage) []resource.ID {
	ids := make([]resource.ID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func TestFoldKeyed_ReplaceTouchesOnlyOneParent(t *testing.T) {
	s := Keyed[resource.PieceImage]{
		Children: map[resource.ID][]resource.PieceImage{
			10: {{ID: 1, PieceID: 10}},
			20: {{ID: 2, PieceID: 20}},
		},
	}

	s = foldKeyed(s, intent.ChildrenReplaced[resource.PieceImage]{
		Parent: 10,
		Items:  []resource.PieceImage{{ID: 3, PieceID: 10}},
	})

	assert.Equal(t, []resource.ID{3}, imageIDs(s.Children[10]))
	assert.Equal(t, []resource.ID{2}, imageIDs(s.Children[20]), "other parents must never be touched")
}

func TestFoldKeyed_AppendUpdateRemove(t *testing.T) {
	s := Keyed[resource.PieceImage]{}

	s = foldKeyed(s, intent.ChildAppended[resource.PieceImage]{
		Parent: 10,
		Item:   resource.PieceImage{ID: 1, PieceID: 10, URL: "a"},
	})
	s = foldKeyed(s, intent.ChildAppended[resource.PieceImage]{
		Parent: 10,
		Item:   resource.PieceImage{ID: 2, PieceID: 10, URL: "b"},
	})
	assert.Equal(t, []resource.ID{1, 2}, imageIDs(s.Children[10]), "appends keep arrival order")

	s = foldKeyed(s, intent.ChildUpdated[resource.PieceImage]{
		Parent: 10,
		Item:   resource.PieceImage{ID: 1, PieceID: 10, URL: "a2"},
	})
	assert.Equal(t, "a2", s.Children[10][0].URL)
	assert.Equal(t, []resource.ID{1, 2}, imageIDs(s.Children[10]), "update keeps position")

	s = foldKeyed(s, intent.ChildRemoved[resource.PieceImage]{Parent: 10, ID: 1})
	assert.Equal(t, []resource.ID{2}, imageIDs(s.Children[10]))
}

func TestFoldKeyed_ReorderDropsUnknownIDs(t *testing.T) {
	s := Keyed[resource.PieceImage]{
		Children: map[resource.ID][]resource.PieceImage{
			10: {{ID: 1, PieceID: 10}, {ID: 2, PieceID: 10}, {ID: 3, PieceID: 10}},
		},
	}

	s = foldKeyed(s, intent.ChildrenReordered[resource.PieceImage]{
		Parent: 10,
		Order:  []resource.ID{3, 99, 1},
	})

	assert.Equal(t, []resource.ID{3, 1}, imageIDs(s.Children[10]),
		"unknown ids are dropped, known ids take the requested order")
}

func TestFoldKeyed_UploadFailureIsPerParent(t *testing.T) {
	s := Keyed[resource.PieceImage]{
		Children: map[resource.ID][]resource.PieceImage{
			10: {{ID: 1, PieceID: 10}},
		},
		Loading: true,
	}

	s = foldKeyed(s, intent.ChildUploadFailed[resource.PieceImage]{Parent: 10, Message: "too large"})

	assert.Equal(t, "too large", s.UploadErrors[10])
	assert.Empty(t, s.UploadErrors[20])
	require.Len(t, s.Children[10], 1, "failed upload leaves the collection untouched")
	assert.False(t, s.Loading)
}

func TestFoldKeyed_MutationRequestSetsLoading(t *testing.T) {
	s := Keyed[resource.PieceImage]{Err: "old"}

	s = foldKeyed(s, intent.ChildMutationRequested[resource.PieceImage]{Parent: 10, Op: intent.OpReorder})

	assert.True(t, s.Loading)
	assert.Empty(t, s.Err)
}

func TestFoldKeyed_OtherResourceIntentIsNoOp(t *testing.T) {
	s := Keyed[resource.PieceImage]{
		Children: map[resource.ID][]resource.PieceImage{10: {{ID: 1, PieceID: 10}}},
	}

	folded := foldKeyed(s, intent.ChildrenReplaced[resource.Piece]{
		Parent: 10,
		Items:  []resource.Piece{{ID: 7, ProductID: 10}},
	})

	assert.Equal(t, s, folded)
}

func TestKeyedClone_IsDeep(t *testing.T) {
	s := Keyed[resource.PieceImage]{
		Children:     map[resource.ID][]resource.PieceImage{10: {{ID: 1, PieceID: 10}}},
		UploadErrors: map[resource.ID]string{10: "e"},
	}

	c := s.clone()
	c.Children[10][0].ID = 99
	c.UploadErrors[10] = "changed"

	assert.Equal(t, resource.ID(1), s.Children[10][0].ID)
	assert.Equal(t, "e", s.UploadErrors[10])
}
