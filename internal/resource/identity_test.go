package resource_test

import (
	"testing"

	"github.com/atelier-labs/atelier/internal/resource"
	"github.com/stretchr/testify/assert"
)

// TestCanonicalIDPrefersID verifies identity normalization for entities the
// backend identifies inconsistently: "id" wins when present, the typed key
// fills in otherwise.
func TestCanonicalIDPrefersID(t *testing.T) {
	assert.Equal(t, resource.ID(7), resource.Order{ID: 7, OrderID: 9}.CanonicalID())
	assert.Equal(t, resource.ID(9), resource.Order{OrderID: 9}.CanonicalID())
	assert.Equal(t, resource.ID(0), resource.Order{}.CanonicalID())

	assert.Equal(t, resource.ID(3), resource.Person{ID: 3, PersonID: 4}.CanonicalID())
	assert.Equal(t, resource.ID(4), resource.Person{PersonID: 4}.CanonicalID())
}

// TestSameEntityZeroIDNeverMatches guards against two unsaved entities
// (both with zero ids) being treated as the same record.
func TestSameEntityZeroIDNeverMatches(t *testing.T) {
	assert.True(t, resource.SameEntity(resource.Order{ID: 1}, resource.Order{ID: 1}))
	assert.False(t, resource.SameEntity(resource.Order{ID: 1}, resource.Order{ID: 2}))
	assert.False(t, resource.SameEntity(resource.Order{}, resource.Order{}))
}

func TestIndexByID(t *testing.T) {
	items := []resource.Order{{ID: 1}, {OrderID: 2}, {ID: 3}}

	assert.Equal(t, 0, resource.IndexByID(items, 1))
	assert.Equal(t, 1, resource.IndexByID(items, 2), "order_id-only entity should be found by canonical id")
	assert.Equal(t, -1, resource.IndexByID(items, 42))
	assert.Equal(t, -1, resource.IndexByID(items, 0), "zero id should never match")
}

func TestName(t *testing.T) {
	assert.Equal(t, "orders", resource.Name[resource.Order]())
	assert.Equal(t, "piece_images", resource.Name[resource.PieceImage]())
	assert.Equal(t, "proposal_item_piece_materials", resource.Name[resource.PieceMaterial]())
}
