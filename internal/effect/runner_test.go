package effect_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atelier-labs/atelier/internal/api"
	"github.com/atelier-labs/atelier/internal/effect"
	intevents "github.com/atelier-labs/atelier/internal/events"
	"github.com/atelier-labs/atelier/internal/intent"
	"github.com/atelier-labs/atelier/internal/logger"
	"github.com/atelier-labs/atelier/internal/resource"
	intsecrets "github.com/atelier-labs/atelier/internal/secrets"
	"github.com/atelier-labs/atelier/internal/store"
	v1 "github.com/atelier-labs/atelier/pkg/atelier/v1"
	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	atelevents "github.com/atelier-labs/atelier/pkg/atelier/v1/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second
const tick = 5 * time.Millisecond

func newHarness(t *testing.T, handler http.Handler) (*store.Store, *effect.Runner) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewLogger("error", "text", io.Discard)
	st, err := store.NewStore(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tracker := intsecrets.NewSecretTracker()
	client, err := api.NewClient(srv.URL, api.WithSecretTracker(tracker))
	require.NoError(t, err)

	return st, effect.NewRunner(st, client, log, tracker)
}

func TestFetchAll_FoldsSuccess(t *testing.T) {
	st, runner := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	}))

	effect.FetchAll[resource.Order](context.Background(), runner, intent.ListParams{})

	require.Eventually(t, func() bool {
		s := st.Orders()
		return !s.Loading && len(s.Items) == 2
	}, waitFor, tick)
	assert.Empty(t, st.Orders().Err)
}

func TestFetchAll_FoldsFailure(t *testing.T) {
	st, runner := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	effect.FetchAll[resource.Order](context.Background(), runner, intent.ListParams{})

	require.Eventually(t, func() bool {
		s := st.Orders()
		return !s.Loading && s.Err != ""
	}, waitFor, tick)
	assert.Empty(t, st.Orders().Items, "failure leaves the collection untouched")
}

// TestLatestWins verifies cancel-and-replace: when a second fetch starts
// before the first completes, only the second's result is folded and the
// first's terminal outcome (including its cancellation error) never reaches
// state.
func TestLatestWins(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var calls int32

	st, runner := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(firstStarted)
			<-releaseFirst
			_, _ = w.Write([]byte(`[{"id":1}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":2}]`))
	}))

	effect.FetchAll[resource.Order](context.Background(), runner, intent.ListParams{})
	<-firstStarted
	effect.FetchAll[resource.Order](context.Background(), runner, intent.ListParams{})

	require.Eventually(t, func() bool {
		s := st.Orders()
		return !s.Loading && len(s.Items) == 1 && s.Items[0].ID == 2
	}, waitFor, tick)

	close(releaseFirst)
	time.Sleep(100 * time.Millisecond)

	s := st.Orders()
	require.Len(t, s.Items, 1)
	assert.Equal(t, resource.ID(2), s.Items[0].ID, "superseded result must never overwrite the latest")
	assert.Empty(t, s.Err, "a superseded request's cancellation must not fold as a failure")
}

// TestStaleDropCarriesStaleError verifies a superseded request's terminal
// outcome is reported through the event bus as a StaleResultError instead of
// being folded into state.
func TestStaleDropCarriesStaleError(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(firstStarted)
			<-releaseFirst
			_, _ = w.Write([]byte(`[{"id":1}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":2}]`))
	}))
	t.Cleanup(srv.Close)

	log := logger.NewLogger("error", "text", io.Discard)
	bus := intevents.NewChannelEventBus(256, log)
	st, err := store.NewStore(log, v1.WithEventBus(bus))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	client, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	runner := effect.NewRunner(st, client, log, intsecrets.NewSecretTracker())

	effect.FetchAll[resource.Order](context.Background(), runner, intent.ListParams{})
	<-firstStarted
	effect.FetchAll[resource.Order](context.Background(), runner, intent.ListParams{})

	require.Eventually(t, func() bool {
		s := st.Orders()
		return !s.Loading && len(s.Items) == 1
	}, waitFor, tick)
	close(releaseFirst)

	deadline := time.After(waitFor)
	for {
		select {
		case ev := <-bus.GetChannel():
			if ev.Type != atelevents.StaleResultDropped {
				continue
			}
			staleErr, ok := ev.Payload["error"].(error)
			require.True(t, ok, "stale drop event must carry the discard reason")
			assert.True(t, atelerrors.IsStale(staleErr))
			return
		case <-deadline:
			t.Fatal("no stale drop event observed")
		}
	}
}

// TestStaleUpdateCannotResurrectDeletedEntity covers the race where an update
// response lands after the entity was deleted: the update folds against an
// absent id and is a no-op.
func TestStaleUpdateCannotResurrectDeletedEntity(t *testing.T) {
	updateStarted := make(chan struct{})
	releaseUpdate := make(chan struct{})

	st, runner := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			close(updateStarted)
			<-releaseUpdate
			_, _ = w.Write([]byte(`{"id":1,"status":"updated"}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_, _ = w.Write([]byte(`[{"id":1}]`))
		}
	}))

	effect.FetchAll[resource.Order](context.Background(), runner, intent.ListParams{})
	require.Eventually(t, func() bool {
		return len(st.Orders().Items) == 1
	}, waitFor, tick)

	effect.Update(context.Background(), runner, resource.Order{ID: 1, Status: "updated"})
	<-updateStarted
	effect.Delete[resource.Order](context.Background(), runner, 1)

	require.Eventually(t, func() bool {
		return len(st.Orders().Items) == 0
	}, waitFor, tick)

	close(releaseUpdate)
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, st.Orders().Items, "a late update success must not re-add a deleted entity")
}

func TestGenerateProposalPDF_SetsDocumentURL(t *testing.T) {
	st, runner := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"url":"https://cdn.example.com/p9.pdf"}`))
	}))

	runner.GenerateProposalPDF(context.Background(), 9)

	require.Eventually(t, func() bool {
		return st.Proposals().DocumentURLs[9] == "https://cdn.example.com/p9.pdf"
	}, waitFor, tick)
}

func TestUploadPieceImage_FailureLandsInUploadErrors(t *testing.T) {
	st, runner := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"piece_id":10}]`))
	}))

	runner.FetchPieceImages(context.Background(), 10)
	require.Eventually(t, func() bool {
		return len(st.PieceImages().Children[10]) == 1
	}, waitFor, tick)

	runner.UploadPieceImage(context.Background(), 10, api.ImageUpload{Filename: "a.jpg"})

	require.Eventually(t, func() bool {
		return st.PieceImages().UploadErrors[10] != ""
	}, waitFor, tick)
	assert.Len(t, st.PieceImages().Children[10], 1, "failed upload leaves the collection untouched")
}

func TestUpdateProposalOptimistically_NoServerRoundTrip(t *testing.T) {
	var calls int32
	st, runner := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	runner.UpdateProposalOptimistically(resource.Proposal{ID: 1, Title: "edited"})

	require.Eventually(t, func() bool {
		cur := st.Proposals().Current
		return cur != nil && cur.Title == "edited"
	}, waitFor, tick)
	assert.Zero(t, atomic.LoadInt32(&calls), "optimistic replacement performs no I/O")
}

func TestFetchReference_FoldsNamedList(t *testing.T) {
	st, runner := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/references/statuses", r.URL.Path)
		_, _ = w.Write([]byte(`{"name":"statuses","values":["open","closed"]}`))
	}))

	runner.FetchReference(context.Background(), "statuses")

	require.Eventually(t, func() bool {
		refs := st.References()
		return !refs.Loading && len(refs.Lists["statuses"]) == 2
	}, waitFor, tick)
}
