package store

import (
	"testing"

	"github.com/atelier-labs/atelier/internal/intent"
	"github.com/atelier-labs/atelier/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldState_RequestSetsLoadingAndClearsError(t *testing.T) {
	s := State[resource.Order]{Err: "previous failure"}

	s = foldState(s, intent.FetchAllRequested[resource.Order]{})

	assert.True(t, s.Loading)
	assert.Empty(t, s.Err, "a new request should clear the previous error")
}

func TestFoldState_FetchByIDRequestClearsCurrent(t *testing.T) {
	old := resource.Order{ID: 1, Status: "open"}
	s := State[resource.Order]{Current: &old}

	s = foldState(s, intent.FetchByIDRequested[resource.Order]{ID: 2})

	assert.True(t, s.Loading)
	assert.Nil(t, s.Current, "detail cache must not show the previous entity under a new id")
}

func TestFoldState_FetchAllReplacesWholesale(t *testing.T) {
	s := State[resource.Order]{
		Items:   []resource.Order{{ID: 1}, {ID: 2}, {ID: 3}},
		Loading: true,
	}

	s = foldState(s, intent.FetchAllSucceeded[resource.Order]{
		Items: []resource.Order{{ID: 9}},
	})

	require.Len(t, s.Items, 1)
	assert.Equal(t, resource.ID(9), s.Items[0].ID)
	assert.False(t, s.Loading)
}

func TestFoldState_PaginationReplacedOnlyWhenPresent(t *testing.T) {
	s := State[resource.Proposal]{}

	s = foldState(s, intent.FetchAllSucceeded[resource.Proposal]{
		Items: []resource.Proposal{{ID: 1}},
		Page:  &resource.Pagination{CurrentPage: 2, PerPage: 25, Total: 60, TotalPages: 3},
	})
	require.NotNil(t, s.Page)
	assert.Equal(t, 2, s.Page.CurrentPage)

	// An unpaginated success leaves the previous metadata alone.
	s = foldState(s, intent.FetchAllSucceeded[resource.Proposal]{
		Items: []resource.Proposal{{ID: 2}},
	})
	require.NotNil(t, s.Page)
	assert.Equal(t, 2, s.Page.CurrentPage, "pagination is only replaced by a paginated fetch")
	assert.Equal(t, 3, s.Page.TotalPages)
}

func TestFoldState_CreateAppendsAtTailAndFillsCreated(t *testing.T) {
	s := State[resource.Order]{
		Items:   []resource.Order{{ID: 1}, {ID: 2}},
		Loading: true,
	}

	s = foldState(s, intent.CreateSucceeded[resource.Order]{Item: resource.Order{ID: 3}})

	require.Len(t, s.Items, 3)
	assert.Equal(t, resource.ID(3), s.Items[2].ID, "created entity appends at the tail")
	require.NotNil(t, s.Current)
	assert.Equal(t, resource.ID(3), s.Current.ID)
	require.NotNil(t, s.Created)
	assert.Equal(t, resource.ID(3), s.Created.ID)
	assert.False(t, s.Loading)
}

func TestFoldState_UpdateReplacesInPlace(t *testing.T) {
	cur := resource.Order{ID: 2, Status: "open"}
	s := State[resource.Order]{
		Items:   []resource.Order{{ID: 1}, {ID: 2, Status: "open"}, {ID: 3}},
		Current: &cur,
	}

	s = foldState(s, intent.UpdateSucceeded[resource.Order]{Item: resource.Order{ID: 2, Status: "closed"}})

	require.Len(t, s.Items, 3)
	assert.Equal(t, resource.ID(2), s.Items[1].ID, "updated entity keeps its position")
	assert.Equal(t, "closed", s.Items[1].Status)
	require.NotNil(t, s.Current)
	assert.Equal(t, "closed", s.Current.Status, "matching current entity is updated too")
}

func TestFoldState_UpdateByFallbackIdentityKey(t *testing.T) {
	// The collection holds an entity known only by its order_id; an update
	// answered with a plain id for the same record must still match.
	s := State[resource.Order]{
		Items: []resource.Order{{OrderID: 5, Status: "open"}},
	}

	s = foldState(s, intent.UpdateSucceeded[resource.Order]{Item: resource.Order{ID: 5, Status: "closed"}})

	require.Len(t, s.Items, 1)
	assert.Equal(t, "closed", s.Items[0].Status)
}

func TestFoldState_UpdateForUnknownIDLeavesItems(t *testing.T) {
	s := State[resource.Order]{Items: []resource.Order{{ID: 1}}}

	s = foldState(s, intent.UpdateSucceeded[resource.Order]{Item: resource.Order{ID: 42}})

	require.Len(t, s.Items, 1)
	assert.Equal(t, resource.ID(1), s.Items[0].ID)
}

func TestFoldState_DeleteRemovesByIDCurrentUntouched(t *testing.T) {
	cur := resource.Order{ID: 2}
	s := State[resource.Order]{
		Items:   []resource.Order{{ID: 1}, {ID: 2}, {ID: 3}},
		Current: &cur,
	}

	s = foldState(s, intent.DeleteSucceeded[resource.Order]{ID: 2})

	require.Len(t, s.Items, 2)
	assert.Equal(t, resource.ID(1), s.Items[0].ID)
	assert.Equal(t, resource.ID(3), s.Items[1].ID)
	assert.NotNil(t, s.Current, "delete does not clear the detail cache")
}

func TestFoldState_FailureIsTerminalAndKeepsData(t *testing.T) {
	s := State[resource.Order]{
		Items:   []resource.Order{{ID: 1}},
		Loading: true,
	}

	s = foldState(s, intent.FetchAllFailed[resource.Order]{Message: "boom"})

	assert.False(t, s.Loading)
	assert.Equal(t, "boom", s.Err)
	require.Len(t, s.Items, 1, "failure leaves cached data untouched")
}

func TestFoldState_ClearCreatedOnlyClearsCreated(t *testing.T) {
	created := resource.Order{ID: 3}
	cur := resource.Order{ID: 3}
	s := State[resource.Order]{
		Items:   []resource.Order{{ID: 3}},
		Current: &cur,
		Created: &created,
	}

	s = foldState(s, intent.ClearCreated[resource.Order]{})

	assert.Nil(t, s.Created)
	assert.NotNil(t, s.Current)
	require.Len(t, s.Items, 1)

	// Subsequent fetches never repopulate the one-shot slot.
	s = foldState(s, intent.FetchAllSucceeded[resource.Order]{Items: []resource.Order{{ID: 3}}})
	assert.Nil(t, s.Created)
}

func TestFoldState_OptimisticReplaceTouchesOnlyCurrent(t *testing.T) {
	s := State[resource.Proposal]{
		Items: []resource.Proposal{{ID: 1, Title: "draft"}},
	}

	s = foldState(s, intent.ReplaceCurrentOptimistically[resource.Proposal]{
		Item: resource.Proposal{ID: 1, Title: "edited"},
	})

	require.NotNil(t, s.Current)
	assert.Equal(t, "edited", s.Current.Title)
	assert.Equal(t, "draft", s.Items[0].Title, "items reconcile only on a real update success")
	assert.False(t, s.Loading)
}

func TestFoldState_DocumentURL(t *testing.T) {
	s := State[resource.Proposal]{}

	s = foldState(s, intent.DocumentURLSet[resource.Proposal]{ID: 4, URL: "https://cdn.example.com/p4.pdf"})
	assert.Equal(t, "https://cdn.example.com/p4.pdf", s.DocumentURLs[4])

	s = foldState(s, intent.DocumentURLFailed[resource.Proposal]{Message: "render failed"})
	assert.Equal(t, "render failed", s.Err)
	assert.False(t, s.Loading)
	assert.Equal(t, "https://cdn.example.com/p4.pdf", s.DocumentURLs[4], "earlier URLs survive a later failure")
}

func TestFoldState_OtherResourceIntentIsNoOp(t *testing.T) {
	s := State[resource.Order]{Items: []resource.Order{{ID: 1}}}

	folded := foldState(s, intent.FetchAllSucceeded[resource.Person]{Items: []resource.Person{{ID: 9}}})

	assert.Equal(t, s, folded, "an intent for another resource must not change this slice")
}

func TestStateClone_IsDeep(t *testing.T) {
	cur := resource.Order{ID: 2}
	s := State[resource.Order]{
		Items:        []resource.Order{{ID: 1}},
		Current:      &cur,
		Page:         &resource.Pagination{CurrentPage: 1},
		DocumentURLs: map[resource.ID]string{1: "u"},
	}

	c := s.clone()
	c.Items[0].ID = 99
	c.Current.ID = 99
	c.Page.CurrentPage = 99
	c.DocumentURLs[1] = "changed"

	assert.Equal(t, resource.ID(1), s.Items[0].ID)
	assert.Equal(t, resource.ID(2), s.Current.ID)
	assert.Equal(t, 1, s.Page.CurrentPage)
	assert.Equal(t, "u", s.DocumentURLs[1])
}
