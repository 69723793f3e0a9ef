package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atelier-labs/atelier/internal/api"
	"github.com/atelier-labs/atelier/internal/resource"
	intsecrets "github.com/atelier-labs/atelier/internal/secrets"
	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, srv *httptest.Server, opts ...api.Option) *api.Client {
	t.Helper()
	c, err := api.NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func TestList_DecodesCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1},{"order_id":2}]`))
	}))
	defer srv.Close()

	items, err := api.List[resource.Order](context.Background(), newClient(t, srv), nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, resource.ID(1), items[0].CanonicalID())
	assert.Equal(t, resource.ID(2), items[1].CanonicalID(),
		"an order_id-only payload must normalize to the same canonical identity")
}

func TestGet_UsesEntityPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/persons/7", r.URL.Path)
		_, _ = w.Write([]byte(`{"person_id":7,"first_name":"Maja"}`))
	}))
	defer srv.Close()

	p, err := api.Get[resource.Person](context.Background(), newClient(t, srv), 7)
	require.NoError(t, err)
	assert.Equal(t, resource.ID(7), p.CanonicalID())
	assert.Equal(t, "Maja", p.FirstName)
}

func TestCreate_Accepts201And200(t *testing.T) {
	for _, status := range []int{http.StatusCreated, http.StatusOK} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"id":3}`))
		}))

		created, err := api.Create(context.Background(), newClient(t, srv), resource.Order{Status: "draft"})
		require.NoError(t, err)
		assert.Equal(t, resource.ID(3), created.ID)
		srv.Close()
	}
}

func TestCreate_UnexpectedStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	_, err := api.Create(context.Background(), newClient(t, srv), resource.Order{})
	require.Error(t, err)

	var te *atelerrors.TransportError
	require.ErrorAs(t, err, &te, "an unexpected 2xx must not be treated as success")
	assert.Equal(t, http.StatusAccepted, te.StatusCode)
}

func TestDelete_Expects204(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/orders/4", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, api.Delete[resource.Order](context.Background(), newClient(t, srv), 4))
}

func TestDelete_200IsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := api.Delete[resource.Order](context.Background(), newClient(t, srv), 4)
	var te *atelerrors.TransportError
	require.ErrorAs(t, err, &te)
}

func TestMalformedBodyIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := api.Get[resource.Order](context.Background(), newClient(t, srv), 1)
	var de *atelerrors.DecodeError
	require.ErrorAs(t, err, &de)
}

func TestListProposals_ParsesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/proposals", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`{
			"proposals": [{"id":1},{"id":2}],
			"pagination": {"current_page":2,"per_page":25,"total":60,"total_pages":3}
		}`))
	}))
	defer srv.Close()

	page, err := newClient(t, srv).ListProposals(context.Background(), 2, 25)
	require.NoError(t, err)
	assert.Len(t, page.Proposals, 2)
	require.NotNil(t, page.Pagination)
	assert.Equal(t, 3, page.Pagination.TotalPages)
}

func TestSearchProducts_SetsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "oak", r.URL.Query().Get("search"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"id":5,"name":"Oak table"}]`))
	}))
	defer srv.Close()

	items, err := newClient(t, srv).SearchProducts(context.Background(), "oak", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Oak table", items[0].Name)
}

func TestGenerateProposalPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/proposals/9/pdf", r.URL.Path)
		_, _ = w.Write([]byte(`{"url":"https://cdn.example.com/p9.pdf"}`))
	}))
	defer srv.Close()

	url, err := newClient(t, srv).GenerateProposalPDF(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/p9.pdf", url)
}

func TestReorderPieceImages_SendsIDOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/pieces/3/images/order", r.URL.Path)
		var body struct {
			Order []resource.ID `json:"order"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []resource.ID{2, 1}, body.Order)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newClient(t, srv).ReorderPieceImages(context.Background(), 3, []resource.ID{2, 1}))
}

func TestSetPrimaryPieceImage_ReturnsFullCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pieces/3/images/2/primary", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":1,"primary":false},{"id":2,"primary":true}]`))
	}))
	defer srv.Close()

	items, err := newClient(t, srv).SetPrimaryPieceImage(context.Background(), 3, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[0].Primary)
	assert.True(t, items[1].Primary)
}

func TestAuthorization_BearerTokenAndTracking(t *testing.T) {
	const token = "tok-abc-123"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	tracker := intsecrets.NewSecretTracker()
	c := newClient(t, srv,
		api.WithTokenProvider(intsecrets.NewStaticProvider(token)),
		api.WithSecretTracker(tracker),
	)

	_, err := api.List[resource.Order](context.Background(), c, nil)
	require.NoError(t, err)
	assert.True(t, tracker.IsTracked(token), "used token must be registered for redaction")
}

// TestBaseURLPathPrefixPreserved covers a backend mounted under a path prefix:
// the configured prefix must survive into every request URL.
func TestBaseURLPathPrefixPreserved(t *testing.T) {
	for _, base := range []string{"/api/v2", "/api/v2/"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				assert.Equal(t, "/api/v2/orders", r.URL.Path)
				_, _ = w.Write([]byte(`[]`))
			case http.MethodDelete:
				assert.Equal(t, "/api/v2/orders/4", r.URL.Path)
				w.WriteHeader(http.StatusNoContent)
			}
		}))

		c, err := api.NewClient(srv.URL + base)
		require.NoError(t, err)

		_, err = api.List[resource.Order](context.Background(), c, nil)
		require.NoError(t, err)
		require.NoError(t, api.Delete[resource.Order](context.Background(), c, 4))
		srv.Close()
	}
}

func TestNewClient_RejectsEmptyBaseURL(t *testing.T) {
	_, err := api.NewClient("   ")
	require.Error(t, err)

	var ce *atelerrors.ConfigError
	assert.True(t, errors.As(err, &ce))
}
