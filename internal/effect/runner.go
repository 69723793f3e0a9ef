// Package effect runs the asynchronous side of every operation: it dispatches
// the request intent, performs the HTTP call off the caller's goroutine, and
// dispatches exactly one terminal intent. Concurrency follows a strict
// cancel-and-replace discipline per (resource, operation): starting a new
// request cancels the in-flight one and advances a monotonic token, and a
// terminal result is folded only when its token is still the latest.
package effect

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/atelier-labs/atelier/internal/api"
	"github.com/atelier-labs/atelier/internal/intent"
	"github.com/atelier-labs/atelier/internal/resource"
	intsecrets "github.com/atelier-labs/atelier/internal/secrets"
	"github.com/atelier-labs/atelier/internal/store"
	"github.com/atelier-labs/atelier/internal/tracing"
	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	"github.com/atelier-labs/atelier/pkg/atelier/v1/events"
	atellog "github.com/atelier-labs/atelier/pkg/atelier/v1/log"
)

// flightKey identifies one independent concurrency lane.
type flightKey struct {
	resource  string
	operation string
}

// flight is the bookkeeping for one in-flight request.
type flight struct {
	token  uint64
	cancel context.CancelFunc
}

// Runner owns the in-flight request table. Callers never block on I/O: every
// public method dispatches the request intent and returns, with the HTTP call
// and the terminal dispatch happening on a spawned goroutine.
type Runner struct {
	store   *store.Store
	client  *api.Client
	log     atellog.Logger
	bus     events.Bus
	tracer  trace.Tracer
	tracker *intsecrets.SecretTracker

	mu        sync.Mutex
	nextToken uint64
	inflight  map[flightKey]*flight
}

// NewRunner builds a Runner bound to a store and an API client. The event bus
// and tracer provider are taken from the store so all three components share
// one observability wiring.
func NewRunner(st *store.Store, client *api.Client, log atellog.Logger, tracker *intsecrets.SecretTracker) *Runner {
	tracer := trace.NewNoopTracerProvider().Tracer("atelier/effect")
	if tp := st.TracerProvider(); tp != nil {
		tracer = tp.GetTracer("atelier/effect")
	}
	return &Runner{
		store:    st,
		client:   client,
		log:      log.With("component", "EffectRunner"),
		bus:      st.EventBus(),
		tracer:   tracer,
		tracker:  tracker,
		inflight: map[flightKey]*flight{},
	}
}

// begin opens a new flight for (res, op): any in-flight request on the same
// key is cancelled and superseded. The returned context is cancelled when a
// later request replaces this one.
func (r *Runner) begin(parent context.Context, res, op string) (context.Context, uint64, string) {
	key := flightKey{resource: res, operation: op}
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	if prev := r.inflight[key]; prev != nil {
		prev.cancel()
	}
	r.nextToken++
	token := r.nextToken
	r.inflight[key] = &flight{token: token, cancel: cancel}
	r.mu.Unlock()

	requestID := uuid.NewString()
	r.emit(events.RequestStarted, res, op, requestID, nil)
	return ctx, token, requestID
}

// settle reports whether the given token is still the latest for its key and,
// if so, retires the flight. A false return means the result is stale and must
// be dropped without folding.
func (r *Runner) settle(res, op string, token uint64) bool {
	key := flightKey{resource: res, operation: op}

	r.mu.Lock()
	current := r.inflight[key]
	if current == nil || current.token != token {
		var latest uint64
		if current != nil {
			latest = current.token
		}
		r.mu.Unlock()
		staleErr := atelerrors.NewStaleResultError(res, op, token, latest)
		r.log.Debugf("Dropping stale result: %v", staleErr)
		r.emit(events.StaleResultDropped, res, op, "", map[string]any{
			"error":  staleErr,
			"token":  token,
			"latest": latest,
		})
		return false
	}
	current.cancel()
	delete(r.inflight, key)
	r.mu.Unlock()
	return true
}

func (r *Runner) emit(eventType events.EventType, res, op, requestID string, payload map[string]any) {
	if r.bus == nil {
		return
	}
	r.bus.Emit(events.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Resource:  res,
		Operation: op,
		RequestID: requestID,
		Payload:   payload,
	})
}

// failureMessage converts an error into the string folded into state, with
// any tracked secret values scrubbed first.
func (r *Runner) failureMessage(err error) string {
	if r.tracker != nil {
		return r.tracker.RedactError(err)
	}
	return err.Error()
}

// run executes one flight end to end: span, call, token check, terminal
// dispatch. succeed and fail dispatch the terminal intents; call returns the
// error to decide between them.
func (r *Runner) run(ctx context.Context, res, op, requestID string, token uint64, call func(context.Context) error, succeed func(), fail func(msg string)) {
	spanCtx, span := r.tracer.Start(ctx, res+"."+op, trace.WithAttributes(
		attribute.String("atelier.resource", res),
		attribute.String("atelier.operation", op),
		attribute.String("atelier.request_id", requestID),
	))
	err := call(spanCtx)
	if err != nil {
		tracing.RecordErrorRedacted(span, err, r.tracker)
	}
	span.End()

	if !r.settle(res, op, token) {
		return
	}
	if err != nil {
		msg := r.failureMessage(err)
		r.emit(events.RequestFailed, res, op, requestID, map[string]any{"error": msg})
		fail(msg)
		return
	}
	r.emit(events.RequestSucceeded, res, op, requestID, nil)
	succeed()
}

// --- Generic flat-resource operations ---

// listQuery translates fetch-all params into query values. A zero-value params
// produces nil so plain list requests carry no query string.
func listQuery(params intent.ListParams) url.Values {
	if params == (intent.ListParams{}) {
		return nil
	}
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	return q
}

// FetchAll starts a list fetch for any flat resource.
func FetchAll[T resource.Entity](ctx context.Context, r *Runner, params intent.ListParams) {
	res := resource.Name[T]()
	r.store.Dispatch(intent.FetchAllRequested[T]{Params: params})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpFetchAll)

	go func() {
		var items []T
		r.run(opCtx, res, intent.OpFetchAll, requestID, token,
			func(ctx context.Context) error {
				var err error
				items, err = api.List[T](ctx, r.client, listQuery(params))
				return err
			},
			func() { r.store.Dispatch(intent.FetchAllSucceeded[T]{Items: items}) },
			func(msg string) { r.store.Dispatch(intent.FetchAllFailed[T]{Message: msg}) },
		)
	}()
}

// FetchByID starts a detail fetch for any flat resource.
func FetchByID[T resource.Entity](ctx context.Context, r *Runner, id resource.ID) {
	res := resource.Name[T]()
	r.store.Dispatch(intent.FetchByIDRequested[T]{ID: id})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpFetchByID)

	go func() {
		var item T
		r.run(opCtx, res, intent.OpFetchByID, requestID, token,
			func(ctx context.Context) error {
				var err error
				item, err = api.Get[T](ctx, r.client, id)
				return err
			},
			func() { r.store.Dispatch(intent.FetchByIDSucceeded[T]{Item: item}) },
			func(msg string) { r.store.Dispatch(intent.FetchByIDFailed[T]{Message: msg}) },
		)
	}()
}

// Create starts a create for any flat resource. The entity folded on success
// is the server's authoritative version, never the submitted draft.
func Create[T resource.Entity](ctx context.Context, r *Runner, item T) {
	res := resource.Name[T]()
	r.store.Dispatch(intent.CreateRequested[T]{Item: item})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpCreate)

	go func() {
		var created T
		r.run(opCtx, res, intent.OpCreate, requestID, token,
			func(ctx context.Context) error {
				var err error
				created, err = api.Create(ctx, r.client, item)
				return err
			},
			func() { r.store.Dispatch(intent.CreateSucceeded[T]{Item: created}) },
			func(msg string) { r.store.Dispatch(intent.CreateFailed[T]{Message: msg}) },
		)
	}()
}

// Update starts an update for any flat resource.
func Update[T resource.Entity](ctx context.Context, r *Runner, item T) {
	res := resource.Name[T]()
	r.store.Dispatch(intent.UpdateRequested[T]{Item: item})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpUpdate)

	go func() {
		var updated T
		r.run(opCtx, res, intent.OpUpdate, requestID, token,
			func(ctx context.Context) error {
				var err error
				updated, err = api.Update(ctx, r.client, item)
				return err
			},
			func() { r.store.Dispatch(intent.UpdateSucceeded[T]{Item: updated}) },
			func(msg string) { r.store.Dispatch(intent.UpdateFailed[T]{Message: msg}) },
		)
	}()
}

// Delete starts a delete for any flat resource. The server answers with no
// body, so the success intent carries the requested id.
func Delete[T resource.Entity](ctx context.Context, r *Runner, id resource.ID) {
	res := resource.Name[T]()
	r.store.Dispatch(intent.DeleteRequested[T]{ID: id})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpDelete)

	go func() {
		r.run(opCtx, res, intent.OpDelete, requestID, token,
			func(ctx context.Context) error {
				return api.Delete[T](ctx, r.client, id)
			},
			func() { r.store.Dispatch(intent.DeleteSucceeded[T]{ID: id}) },
			func(msg string) { r.store.Dispatch(intent.DeleteFailed[T]{Message: msg}) },
		)
	}()
}

// ClearCreated empties the one-shot created slot. Pure dispatch, no I/O.
func ClearCreated[T resource.Entity](r *Runner) {
	r.store.Dispatch(intent.ClearCreated[T]{})
}

// --- Proposals ---

// FetchProposals starts a paginated proposal list fetch.
func (r *Runner) FetchProposals(ctx context.Context, page, perPage int) {
	const res = "proposals"
	r.store.Dispatch(intent.FetchAllRequested[resource.Proposal]{Params: intent.ListParams{Page: page, Limit: perPage}})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpFetchAll)

	go func() {
		var envelope api.ProposalPage
		r.run(opCtx, res, intent.OpFetchAll, requestID, token,
			func(ctx context.Context) error {
				var err error
				envelope, err = r.client.ListProposals(ctx, page, perPage)
				return err
			},
			func() {
				r.store.Dispatch(intent.FetchAllSucceeded[resource.Proposal]{
					Items: envelope.Proposals,
					Page:  envelope.Pagination,
				})
			},
			func(msg string) { r.store.Dispatch(intent.FetchAllFailed[resource.Proposal]{Message: msg}) },
		)
	}()
}

// UpdateProposalOptimistically replaces the current proposal locally with no
// server round trip. A later Update reconciles the collection.
func (r *Runner) UpdateProposalOptimistically(p resource.Proposal) {
	r.store.Dispatch(intent.ReplaceCurrentOptimistically[resource.Proposal]{Item: p})
}

// GenerateProposalPDF asks the backend to render a proposal PDF and caches the
// resulting URL. No loading flag is raised; the current proposal stays usable
// while the document renders.
func (r *Runner) GenerateProposalPDF(ctx context.Context, id resource.ID) {
	const res = "proposals"
	opCtx, token, requestID := r.begin(ctx, res, intent.OpGeneratePDF)

	go func() {
		var docURL string
		r.run(opCtx, res, intent.OpGeneratePDF, requestID, token,
			func(ctx context.Context) error {
				var err error
				docURL, err = r.client.GenerateProposalPDF(ctx, id)
				return err
			},
			func() {
				r.store.Dispatch(intent.DocumentURLSet[resource.Proposal]{ID: id, URL: docURL})
			},
			func(msg string) {
				r.store.Dispatch(intent.DocumentURLFailed[resource.Proposal]{Message: msg})
			},
		)
	}()
}

// ConvertProposalToOrder converts an accepted proposal into an order. The new
// order folds into the orders slice like any other create.
func (r *Runner) ConvertProposalToOrder(ctx context.Context, id resource.ID) {
	const res = "orders"
	r.store.Dispatch(intent.CreateRequested[resource.Order]{})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpConvert)

	go func() {
		var order resource.Order
		r.run(opCtx, res, intent.OpConvert, requestID, token,
			func(ctx context.Context) error {
				var err error
				order, err = r.client.ConvertProposalToOrder(ctx, id)
				return err
			},
			func() { r.store.Dispatch(intent.CreateSucceeded[resource.Order]{Item: order}) },
			func(msg string) { r.store.Dispatch(intent.CreateFailed[resource.Order]{Message: msg}) },
		)
	}()
}

// --- Products ---

// SearchProducts starts a catalog search with an optional term and limit.
func (r *Runner) SearchProducts(ctx context.Context, search string, limit int) {
	const res = "products"
	r.store.Dispatch(intent.FetchAllRequested[resource.Product]{Params: intent.ListParams{Search: search, Limit: limit}})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpFetchAll)

	go func() {
		var items []resource.Product
		r.run(opCtx, res, intent.OpFetchAll, requestID, token,
			func(ctx context.Context) error {
				var err error
				items, err = r.client.SearchProducts(ctx, search, limit)
				return err
			},
			func() { r.store.Dispatch(intent.FetchAllSucceeded[resource.Product]{Items: items}) },
			func(msg string) { r.store.Dispatch(intent.FetchAllFailed[resource.Product]{Message: msg}) },
		)
	}()
}

// --- Reference lists ---

// FetchReference starts a fetch of one named reference list.
func (r *Runner) FetchReference(ctx context.Context, name string) {
	const res = "references"
	r.store.Dispatch(intent.ReferenceFetchRequested{Name: name})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpFetchReference)

	go func() {
		var values []string
		r.run(opCtx, res, intent.OpFetchReference, requestID, token,
			func(ctx context.Context) error {
				var err error
				values, err = r.client.FetchReferenceList(ctx, name)
				return err
			},
			func() { r.store.Dispatch(intent.ReferenceFetchSucceeded{Name: name, Values: values}) },
			func(msg string) { r.store.Dispatch(intent.ReferenceFetchFailed{Name: name, Message: msg}) },
		)
	}()
}

// --- Pieces ---

// FetchPieces starts a fetch of one product's pieces.
func (r *Runner) FetchPieces(ctx context.Context, productID resource.ID) {
	const res = "pieces"
	r.store.Dispatch(intent.ChildrenFetchRequested[resource.Piece]{Parent: productID})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpFetchChildren)

	go func() {
		var items []resource.Piece
		r.run(opCtx, res, intent.OpFetchChildren, requestID, token,
			func(ctx context.Context) error {
				var err error
				items, err = r.client.ListPieces(ctx, productID)
				return err
			},
			func() {
				r.store.Dispatch(intent.ChildrenReplaced[resource.Piece]{Parent: productID, Items: items})
			},
			func(msg string) {
				r.store.Dispatch(intent.ChildrenFailed[resource.Piece]{Parent: productID, Message: msg})
			},
		)
	}()
}

// --- Piece images ---

// FetchPieceImages starts a fetch of one piece's image collection.
func (r *Runner) FetchPieceImages(ctx context.Context, pieceID resource.ID) {
	const res = "piece_images"
	r.store.Dispatch(intent.ChildrenFetchRequested[resource.PieceImage]{Parent: pieceID})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpFetchChildren)

	go func() {
		var items []resource.PieceImage
		r.run(opCtx, res, intent.OpFetchChildren, requestID, token,
			func(ctx context.Context) error {
				var err error
				items, err = r.client.ListPieceImages(ctx, pieceID)
				return err
			},
			func() {
				r.store.Dispatch(intent.ChildrenReplaced[resource.PieceImage]{Parent: pieceID, Items: items})
			},
			func(msg string) {
				r.store.Dispatch(intent.ChildrenFailed[resource.PieceImage]{Parent: pieceID, Message: msg})
			},
		)
	}()
}

// UploadPieceImage uploads an image for a piece. Failures land in the
// per-piece upload-error map rather than the shared error field.
func (r *Runner) UploadPieceImage(ctx context.Context, pieceID resource.ID, upload api.ImageUpload) {
	const res = "piece_images"
	r.store.Dispatch(intent.ChildMutationRequested[resource.PieceImage]{Parent: pieceID, Op: intent.OpUploadChild})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpUploadChild)

	go func() {
		var image resource.PieceImage
		r.run(opCtx, res, intent.OpUploadChild, requestID, token,
			func(ctx context.Context) error {
				var err error
				image, err = r.client.UploadPieceImage(ctx, pieceID, upload)
				return err
			},
			func() {
				r.store.Dispatch(intent.ChildAppended[resource.PieceImage]{Parent: pieceID, Item: image})
			},
			func(msg string) {
				r.store.Dispatch(intent.ChildUploadFailed[resource.PieceImage]{Parent: pieceID, Message: msg})
			},
		)
	}()
}

// DeletePieceImage removes one image from a piece.
func (r *Runner) DeletePieceImage(ctx context.Context, pieceID, imageID resource.ID) {
	const res = "piece_images"
	r.store.Dispatch(intent.ChildMutationRequested[resource.PieceImage]{Parent: pieceID, Op: intent.OpRemoveChild})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpRemoveChild)

	go func() {
		r.run(opCtx, res, intent.OpRemoveChild, requestID, token,
			func(ctx context.Context) error {
				return r.client.DeletePieceImage(ctx, pieceID, imageID)
			},
			func() {
				r.store.Dispatch(intent.ChildRemoved[resource.PieceImage]{Parent: pieceID, ID: imageID})
			},
			func(msg string) {
				r.store.Dispatch(intent.ChildrenFailed[resource.PieceImage]{Parent: pieceID, Message: msg})
			},
		)
	}()
}

// ReorderPieceImages submits a new image order for a piece and reorders the
// cached collection on success.
func (r *Runner) ReorderPieceImages(ctx context.Context, pieceID resource.ID, order []resource.ID) {
	const res = "piece_images"
	r.store.Dispatch(intent.ChildMutationRequested[resource.PieceImage]{Parent: pieceID, Op: intent.OpReorder})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpReorder)

	go func() {
		r.run(opCtx, res, intent.OpReorder, requestID, token,
			func(ctx context.Context) error {
				return r.client.ReorderPieceImages(ctx, pieceID, order)
			},
			func() {
				r.store.Dispatch(intent.ChildrenReordered[resource.PieceImage]{Parent: pieceID, Order: order})
			},
			func(msg string) {
				r.store.Dispatch(intent.ChildrenFailed[resource.PieceImage]{Parent: pieceID, Message: msg})
			},
		)
	}()
}

// SetPrimaryPieceImage marks one image as primary. The server answers with the
// piece's full updated collection, which replaces the cached one so the old
// primary's cleared flag is reflected too.
func (r *Runner) SetPrimaryPieceImage(ctx context.Context, pieceID, imageID resource.ID) {
	const res = "piece_images"
	r.store.Dispatch(intent.ChildMutationRequested[resource.PieceImage]{Parent: pieceID, Op: intent.OpSetPrimary})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpSetPrimary)

	go func() {
		var items []resource.PieceImage
		r.run(opCtx, res, intent.OpSetPrimary, requestID, token,
			func(ctx context.Context) error {
				var err error
				items, err = r.client.SetPrimaryPieceImage(ctx, pieceID, imageID)
				return err
			},
			func() {
				r.store.Dispatch(intent.ChildrenReplaced[resource.PieceImage]{Parent: pieceID, Items: items})
			},
			func(msg string) {
				r.store.Dispatch(intent.ChildrenFailed[resource.PieceImage]{Parent: pieceID, Message: msg})
			},
		)
	}()
}

// --- Proposal item piece materials ---

// FetchPieceMaterials starts a fetch of one proposal item piece's materials.
func (r *Runner) FetchPieceMaterials(ctx context.Context, pieceID resource.ID) {
	const res = "proposal_item_piece_materials"
	r.store.Dispatch(intent.ChildrenFetchRequested[resource.PieceMaterial]{Parent: pieceID})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpFetchChildren)

	go func() {
		var items []resource.PieceMaterial
		r.run(opCtx, res, intent.OpFetchChildren, requestID, token,
			func(ctx context.Context) error {
				var err error
				items, err = r.client.ListPieceMaterials(ctx, pieceID)
				return err
			},
			func() {
				r.store.Dispatch(intent.ChildrenReplaced[resource.PieceMaterial]{Parent: pieceID, Items: items})
			},
			func(msg string) {
				r.store.Dispatch(intent.ChildrenFailed[resource.PieceMaterial]{Parent: pieceID, Message: msg})
			},
		)
	}()
}

// AddPieceMaterial assigns a material to a proposal item piece.
func (r *Runner) AddPieceMaterial(ctx context.Context, mat resource.PieceMaterial) {
	const res = "proposal_item_piece_materials"
	parent := mat.ProposalItemPieceID
	r.store.Dispatch(intent.ChildMutationRequested[resource.PieceMaterial]{Parent: parent, Op: intent.OpAppendChild})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpAppendChild)

	go func() {
		var added resource.PieceMaterial
		r.run(opCtx, res, intent.OpAppendChild, requestID, token,
			func(ctx context.Context) error {
				var err error
				added, err = r.client.AddPieceMaterial(ctx, mat)
				return err
			},
			func() {
				r.store.Dispatch(intent.ChildAppended[resource.PieceMaterial]{Parent: parent, Item: added})
			},
			func(msg string) {
				r.store.Dispatch(intent.ChildrenFailed[resource.PieceMaterial]{Parent: parent, Message: msg})
			},
		)
	}()
}

// UpdatePieceMaterial updates one material assignment in place.
func (r *Runner) UpdatePieceMaterial(ctx context.Context, mat resource.PieceMaterial) {
	const res = "proposal_item_piece_materials"
	parent := mat.ProposalItemPieceID
	r.store.Dispatch(intent.ChildMutationRequested[resource.PieceMaterial]{Parent: parent, Op: intent.OpUpdateChild})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpUpdateChild)

	go func() {
		var updated resource.PieceMaterial
		r.run(opCtx, res, intent.OpUpdateChild, requestID, token,
			func(ctx context.Context) error {
				var err error
				updated, err = r.client.UpdatePieceMaterial(ctx, mat)
				return err
			},
			func() {
				r.store.Dispatch(intent.ChildUpdated[resource.PieceMaterial]{Parent: parent, Item: updated})
			},
			func(msg string) {
				r.store.Dispatch(intent.ChildrenFailed[resource.PieceMaterial]{Parent: parent, Message: msg})
			},
		)
	}()
}

// RemovePieceMaterial removes one material assignment.
func (r *Runner) RemovePieceMaterial(ctx context.Context, pieceID, materialID resource.ID) {
	const res = "proposal_item_piece_materials"
	r.store.Dispatch(intent.ChildMutationRequested[resource.PieceMaterial]{Parent: pieceID, Op: intent.OpRemoveChild})
	opCtx, token, requestID := r.begin(ctx, res, intent.OpRemoveChild)

	go func() {
		r.run(opCtx, res, intent.OpRemoveChild, requestID, token,
			func(ctx context.Context) error {
				return r.client.RemovePieceMaterial(ctx, pieceID, materialID)
			},
			func() {
				r.store.Dispatch(intent.ChildRemoved[resource.PieceMaterial]{Parent: pieceID, ID: materialID})
			},
			func(msg string) {
				r.store.Dispatch(intent.ChildrenFailed[resource.PieceMaterial]{Parent: pieceID, Message: msg})
			},
		)
	}()
}
