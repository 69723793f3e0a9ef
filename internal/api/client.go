// Package api implements the HTTP client for the atelier backend. It is the
// ingestion boundary: payloads are decoded into typed entities here and
// identity keys are normalized before anything reaches the store.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atelier-labs/atelier/internal/resource"
	intsecrets "github.com/atelier-labs/atelier/internal/secrets"
	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	"github.com/atelier-labs/atelier/pkg/atelier/v1/secrets"
)

const (
	defaultUserAgent = "atelier/0.1"
)

// Client talks to the atelier backend HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	tokens    secrets.Provider
	tracker   *intsecrets.SecretTracker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client. The default carries no
// timeout; a hung call holds the owning resource's loading flag until the
// request context is cancelled.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets a request timeout on the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// WithTokenProvider sets the secrets provider consulted for the API token.
func WithTokenProvider(p secrets.Provider) Option {
	return func(c *Client) { c.tokens = p }
}

// WithSecretTracker sets the tracker that records token values so they can be
// redacted from error strings before they reach state or logs.
func WithSecretTracker(t *intsecrets.SecretTracker) Option {
	return func(c *Client) { c.tracker = t }
}

// NewClient builds a Client for the given base URL (host:port or full URL).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// --- Generic CRUD over flat resources ---

// resourcePath derives the collection path from the entity's resource name.
func resourcePath[T resource.Entity]() string {
	return "/" + resource.Name[T]()
}

// List fetches the full collection for a flat resource.
func List[T resource.Entity](ctx context.Context, c *Client, query url.Values) ([]T, error) {
	rel := &url.URL{Path: resourcePath[T](), RawQuery: query.Encode()}
	var payload []T
	if err := c.doJSON(ctx, http.MethodGet, rel, nil, &payload, http.StatusOK); err != nil {
		return nil, err
	}
	return payload, nil
}

// Get fetches one entity by id.
func Get[T resource.Entity](ctx context.Context, c *Client, id resource.ID) (T, error) {
	var payload T
	rel := &url.URL{Path: entityPath[T](id)}
	err := c.doJSON(ctx, http.MethodGet, rel, nil, &payload, http.StatusOK)
	return payload, err
}

// Create posts a new entity and returns the server's authoritative version.
// The backend answers 201 on most endpoints but 200 on a few older ones.
func Create[T resource.Entity](ctx context.Context, c *Client, item T) (T, error) {
	var payload T
	rel := &url.URL{Path: resourcePath[T]()}
	err := c.doJSON(ctx, http.MethodPost, rel, item, &payload, http.StatusCreated, http.StatusOK)
	return payload, err
}

// Update puts an entity and returns the server's authoritative version.
func Update[T resource.Entity](ctx context.Context, c *Client, item T) (T, error) {
	var payload T
	rel := &url.URL{Path: entityPath[T](item.CanonicalID())}
	err := c.doJSON(ctx, http.MethodPut, rel, item, &payload, http.StatusOK)
	return payload, err
}

// Delete removes an entity by id. The server answers 204 with no body.
func Delete[T resource.Entity](ctx context.Context, c *Client, id resource.ID) error {
	rel := &url.URL{Path: entityPath[T](id)}
	return c.doJSON(ctx, http.MethodDelete, rel, nil, nil, http.StatusNoContent)
}

func entityPath[T resource.Entity](id resource.ID) string {
	return fmt.Sprintf("%s/%d", resourcePath[T](), id)
}

// --- Proposals: pagination envelope and document operations ---

// ProposalPage is the paginated proposal list envelope.
type ProposalPage struct {
	Proposals  []resource.Proposal  `json:"proposals"`
	Pagination *resource.Pagination `json:"pagination"`
}

// ListProposals fetches one page of proposals with its pagination envelope.
func (c *Client) ListProposals(ctx context.Context, page, perPage int) (ProposalPage, error) {
	values := url.Values{}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		values.Set("per_page", strconv.Itoa(perPage))
	}
	rel := &url.URL{Path: "/proposals", RawQuery: values.Encode()}
	var payload ProposalPage
	if err := c.doJSON(ctx, http.MethodGet, rel, nil, &payload, http.StatusOK); err != nil {
		return ProposalPage{}, err
	}
	return payload, nil
}

// GenerateProposalPDF asks the backend to render a proposal PDF and returns
// the URL where the rendered document is served.
func (c *Client) GenerateProposalPDF(ctx context.Context, id resource.ID) (string, error) {
	rel := &url.URL{Path: fmt.Sprintf("/proposals/%d/pdf", id)}
	var payload struct {
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, rel, nil, &payload, http.StatusOK, http.StatusCreated); err != nil {
		return "", err
	}
	return payload.URL, nil
}

// ConvertProposalToOrder converts an accepted proposal into an order.
func (c *Client) ConvertProposalToOrder(ctx context.Context, id resource.ID) (resource.Order, error) {
	rel := &url.URL{Path: fmt.Sprintf("/proposals/%d/convert", id)}
	var payload resource.Order
	err := c.doJSON(ctx, http.MethodPost, rel, nil, &payload, http.StatusCreated, http.StatusOK)
	return payload, err
}

// --- Products: search-limited listing only (read-only resource) ---

// SearchProducts queries the catalog with an optional search term and limit.
func (c *Client) SearchProducts(ctx context.Context, search string, limit int) ([]resource.Product, error) {
	values := url.Values{}
	if strings.TrimSpace(search) != "" {
		values.Set("search", search)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	return List[resource.Product](ctx, c, values)
}

// --- Reference lists ---

// FetchReferenceList fetches one named reference list.
func (c *Client) FetchReferenceList(ctx context.Context, name string) ([]string, error) {
	rel := &url.URL{Path: "/references/" + url.PathEscape(name)}
	var payload struct {
		Name   string   `json:"name"`
		Values []string `json:"values"`
	}
	if err := c.doJSON(ctx, http.MethodGet, rel, nil, &payload, http.StatusOK); err != nil {
		return nil, err
	}
	return payload.Values, nil
}

// --- Pieces and their child collections ---

// ListPieces fetches the pieces of one product.
func (c *Client) ListPieces(ctx context.Context, productID resource.ID) ([]resource.Piece, error) {
	rel := &url.URL{Path: fmt.Sprintf("/products/%d/pieces", productID)}
	var payload []resource.Piece
	err := c.doJSON(ctx, http.MethodGet, rel, nil, &payload, http.StatusOK)
	return payload, err
}

// ImageUpload is the JSON upload payload for a piece image.
type ImageUpload struct {
	Filename string `json:"filename"`
	Content  string `json:"content"` // base64
}

// ListPieceImages fetches the images of one piece.
func (c *Client) ListPieceImages(ctx context.Context, pieceID resource.ID) ([]resource.PieceImage, error) {
	rel := &url.URL{Path: fmt.Sprintf("/pieces/%d/images", pieceID)}
	var payload []resource.PieceImage
	err := c.doJSON(ctx, http.MethodGet, rel, nil, &payload, http.StatusOK)
	return payload, err
}

// UploadPieceImage uploads an image for a piece and returns the stored image.
func (c *Client) UploadPieceImage(ctx context.Context, pieceID resource.ID, upload ImageUpload) (resource.PieceImage, error) {
	rel := &url.URL{Path: fmt.Sprintf("/pieces/%d/images", pieceID)}
	var payload resource.PieceImage
	err := c.doJSON(ctx, http.MethodPost, rel, upload, &payload, http.StatusCreated, http.StatusOK)
	return payload, err
}

// DeletePieceImage removes one image from a piece.
func (c *Client) DeletePieceImage(ctx context.Context, pieceID, imageID resource.ID) error {
	rel := &url.URL{Path: fmt.Sprintf("/pieces/%d/images/%d", pieceID, imageID)}
	return c.doJSON(ctx, http.MethodDelete, rel, nil, nil, http.StatusNoContent)
}

// ReorderPieceImages submits a new image id order for a piece.
func (c *Client) ReorderPieceImages(ctx context.Context, pieceID resource.ID, order []resource.ID) error {
	rel := &url.URL{Path: fmt.Sprintf("/pieces/%d/images/order", pieceID)}
	body := struct {
		Order []resource.ID `json:"order"`
	}{Order: order}
	return c.doJSON(ctx, http.MethodPut, rel, body, nil, http.StatusOK, http.StatusNoContent)
}

// SetPrimaryPieceImage marks one image as the piece's primary image and
// returns the piece's full updated image collection.
func (c *Client) SetPrimaryPieceImage(ctx context.Context, pieceID, imageID resource.ID) ([]resource.PieceImage, error) {
	rel := &url.URL{Path: fmt.Sprintf("/pieces/%d/images/%d/primary", pieceID, imageID)}
	var payload []resource.PieceImage
	err := c.doJSON(ctx, http.MethodPut, rel, nil, &payload, http.StatusOK)
	return payload, err
}

// --- Proposal item piece materials ---

// ListPieceMaterials fetches the material assignments of one proposal item piece.
func (c *Client) ListPieceMaterials(ctx context.Context, pieceID resource.ID) ([]resource.PieceMaterial, error) {
	rel := &url.URL{Path: fmt.Sprintf("/proposal_item_pieces/%d/materials", pieceID)}
	var payload []resource.PieceMaterial
	err := c.doJSON(ctx, http.MethodGet, rel, nil, &payload, http.StatusOK)
	return payload, err
}

// AddPieceMaterial assigns a material to a proposal item piece.
func (c *Client) AddPieceMaterial(ctx context.Context, mat resource.PieceMaterial) (resource.PieceMaterial, error) {
	rel := &url.URL{Path: fmt.Sprintf("/proposal_item_pieces/%d/materials", mat.ProposalItemPieceID)}
	var payload resource.PieceMaterial
	err := c.doJSON(ctx, http.MethodPost, rel, mat, &payload, http.StatusCreated, http.StatusOK)
	return payload, err
}

// UpdatePieceMaterial updates a material assignment.
func (c *Client) UpdatePieceMaterial(ctx context.Context, mat resource.PieceMaterial) (resource.PieceMaterial, error) {
	rel := &url.URL{Path: fmt.Sprintf("/proposal_item_pieces/%d/materials/%d", mat.ProposalItemPieceID, mat.ID)}
	var payload resource.PieceMaterial
	err := c.doJSON(ctx, http.MethodPut, rel, mat, &payload, http.StatusOK)
	return payload, err
}

// RemovePieceMaterial removes a material assignment.
func (c *Client) RemovePieceMaterial(ctx context.Context, pieceID, materialID resource.ID) error {
	rel := &url.URL{Path: fmt.Sprintf("/proposal_item_pieces/%d/materials/%d", pieceID, materialID)}
	return c.doJSON(ctx, http.MethodDelete, rel, nil, nil, http.StatusNoContent)
}

// --- Request plumbing ---

// doJSON performs one JSON exchange. The response status must be one of
// want; anything else (including other 2xx codes) is a TransportError so an
// unexpected create/delete answer is never folded as a success.
func (c *Client) doJSON(ctx context.Context, method string, rel *url.URL, body, dest any, want ...int) error {
	// The base path always ends in a slash, so resolving the reference as a
	// relative path keeps any configured prefix (e.g. a backend under /api).
	ref := *rel
	ref.Path = strings.TrimPrefix(ref.Path, "/")
	reqURL := c.baseURL.ResolveReference(&ref)

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return atelerrors.NewTransportError(method, rel.Path, 0, fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return atelerrors.NewTransportError(method, rel.Path, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return atelerrors.NewTransportError(method, rel.Path, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !statusExpected(resp.StatusCode, want) {
		return atelerrors.NewTransportError(method, rel.Path, resp.StatusCode, nil)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return atelerrors.NewDecodeError(rel.Path, err)
	}
	return nil
}

// authorize attaches the bearer token when a provider is configured and
// registers the token value for redaction.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, found, err := c.tokens.GetSecret(ctx, secrets.TokenKey)
	if err != nil {
		return atelerrors.NewTransportError(req.Method, req.URL.Path, 0, fmt.Errorf("resolve api token: %w", err))
	}
	if !found || token == "" {
		return nil
	}
	if c.tracker != nil {
		c.tracker.Add(token)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func statusExpected(code int, want []int) bool {
	if len(want) == 0 {
		return code >= 200 && code < 300
	}
	for _, w := range want {
		if code == w {
			return true
		}
	}
	return false
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, atelerrors.NewConfigError("backend base URL cannot be empty", nil)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, atelerrors.NewConfigError(fmt.Sprintf("parse base URL %q", raw), err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
