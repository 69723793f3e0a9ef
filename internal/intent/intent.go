// Package intent defines the closed set of intents folded by the resource
// store. Each (resource, operation) pair has typed request/success/failure
// variants; the reducer matches them exhaustively, so an unrecognized intent
// can only mean "some other resource's intent" and is a no-op by contract.
package intent

import "github.com/atelier-labs/atelier/internal/resource"

// Intent is the sealed interface implemented by every store intent.
// Resource and Operation are stable labels used for events, metrics and logs;
// routing itself is by concrete type, never by string.
type Intent interface {
	isIntent()
	Resource() string
	Operation() string
}

// Operation labels.
const (
	OpFetchAll       = "fetch_all"
	OpFetchByID      = "fetch_by_id"
	OpCreate         = "create"
	OpUpdate         = "update"
	OpDelete         = "delete"
	OpClearCreated   = "clear_created"
	OpOptimistic     = "optimistic_update"
	OpDocumentURL    = "document_url"
	OpFetchChildren  = "fetch_children"
	OpAppendChild    = "append_child"
	OpUpdateChild    = "update_child"
	OpRemoveChild    = "remove_child"
	OpReorder        = "reorder_children"
	OpReplace        = "replace_children"
	OpUploadChild    = "upload_child"
	OpFetchReference = "fetch_reference"
	OpGeneratePDF    = "generate_pdf"
	OpConvert        = "convert_to_order"
	OpSetPrimary     = "set_primary_child"
)

// ListParams carries fetch-all inputs: pagination for paginated resources,
// search/limit for product lookup.
type ListParams struct {
	Page   int
	Limit  int
	Search string
}

// --- Flat collection intents ---

// FetchAllRequested marks the start of a list fetch for a resource.
type FetchAllRequested[T resource.Entity] struct {
	Params ListParams
}

// FetchAllSucceeded replaces the resource's items wholesale. Page is non-nil
// only for paginated resources and then replaces pagination metadata wholesale.
type FetchAllSucceeded[T resource.Entity] struct {
	Items []T
	Page  *resource.Pagination
}

// FetchAllFailed records a list fetch failure.
type FetchAllFailed[T resource.Entity] struct {
	Message string
}

// FetchByIDRequested marks the start of a detail fetch. Folding it clears the
// current detail entity so stale data is never shown under a new id.
type FetchByIDRequested[T resource.Entity] struct {
	ID resource.ID
}

// FetchByIDSucceeded replaces the current detail entity wholesale.
type FetchByIDSucceeded[T resource.Entity] struct {
	Item T
}

// FetchByIDFailed records a detail fetch failure.
type FetchByIDFailed[T resource.Entity] struct {
	Message string
}

// CreateRequested marks the start of a create.
type CreateRequested[T resource.Entity] struct {
	Item T
}

// CreateSucceeded appends the created entity at the tail of items and caches
// it in the one-shot created slot until ClearCreated is folded.
type CreateSucceeded[T resource.Entity] struct {
	Item T
}

// CreateFailed records a create failure.
type CreateFailed[T resource.Entity] struct {
	Message string
}

// UpdateRequested marks the start of an update.
type UpdateRequested[T resource.Entity] struct {
	Item T
}

// UpdateSucceeded replaces the matching element of items in place by
// canonical id, and the current detail entity when it is the same record.
type UpdateSucceeded[T resource.Entity] struct {
	Item T
}

// UpdateFailed records an update failure.
type UpdateFailed[T resource.Entity] struct {
	Message string
}

// DeleteRequested marks the start of a delete.
type DeleteRequested[T resource.Entity] struct {
	ID resource.ID
}

// DeleteSucceeded removes the matching element of items by canonical id.
// The server answers 204 with no body, so the intent carries the requested id.
type DeleteSucceeded[T resource.Entity] struct {
	ID resource.ID
}

// DeleteFailed records a delete failure.
type DeleteFailed[T resource.Entity] struct {
	Message string
}

// ClearCreated empties the one-shot created slot. It is the only intent that
// does so; subsequent fetches leave the slot alone.
type ClearCreated[T resource.Entity] struct{}

// ReplaceCurrentOptimistically replaces the current detail entity immediately,
// without server confirmation. Items are untouched and no reconciliation
// happens until a later UpdateSucceeded is folded.
type ReplaceCurrentOptimistically[T resource.Entity] struct {
	Item T
}

// DocumentURLSet caches a server-generated document URL (e.g. a proposal PDF)
// keyed by entity id.
type DocumentURLSet[T resource.Entity] struct {
	ID  resource.ID
	URL string
}

// DocumentURLFailed records a failed document generation for a resource.
// No loading flag was raised for document generation, so folding this only
// records the failure message.
type DocumentURLFailed[T resource.Entity] struct {
	Message string
}

// --- Parent-partitioned (keyed) collection intents ---

// ChildMutationRequested marks the start of any mutating child-collection
// operation (upload, delete, reorder, set-primary, add, update) for one
// parent. Op carries the concrete operation label for events and metrics.
type ChildMutationRequested[T resource.Child] struct {
	Parent resource.ID
	Op     string
}

// ChildrenFetchRequested marks the start of a child-collection fetch for one parent.
type ChildrenFetchRequested[T resource.Child] struct {
	Parent resource.ID
}

// ChildrenReplaced replaces one parent's child collection wholesale, leaving
// every other parent's collection untouched.
type ChildrenReplaced[T resource.Child] struct {
	Parent resource.ID
	Items  []T
}

// ChildAppended appends one child at the tail of its parent's collection.
type ChildAppended[T resource.Child] struct {
	Parent resource.ID
	Item   T
}

// ChildUpdated replaces the matching child in place by canonical id.
type ChildUpdated[T resource.Child] struct {
	Parent resource.ID
	Item   T
}

// ChildRemoved removes the matching child by canonical id.
type ChildRemoved[T resource.Child] struct {
	Parent resource.ID
	ID     resource.ID
}

// ChildrenReordered rebuilds one parent's collection in the given id order.
// Ids absent from the current collection are silently dropped.
type ChildrenReordered[T resource.Child] struct {
	Parent resource.ID
	Order  []resource.ID
}

// ChildrenFailed records a failed child-collection operation for one parent.
type ChildrenFailed[T resource.Child] struct {
	Parent  resource.ID
	Message string
}

// ChildUploadFailed records a failed upload for one parent in the per-parent
// upload-error map, without touching the collection itself.
type ChildUploadFailed[T resource.Child] struct {
	Parent  resource.ID
	Message string
}

// --- Reference list intents ---

// ReferenceFetchRequested marks the start of a reference-list fetch by name.
type ReferenceFetchRequested struct {
	Name string
}

// ReferenceFetchSucceeded replaces one named reference list wholesale.
type ReferenceFetchSucceeded struct {
	Name   string
	Values []string
}

// ReferenceFetchFailed records a reference-list fetch failure.
type ReferenceFetchFailed struct {
	Name    string
	Message string
}

// --- Sealed-interface plumbing ---

func (FetchAllRequested[T]) isIntent()            {}
func (FetchAllSucceeded[T]) isIntent()            {}
func (FetchAllFailed[T]) isIntent()               {}
func (FetchByIDRequested[T]) isIntent()           {}
func (FetchByIDSucceeded[T]) isIntent()           {}
func (FetchByIDFailed[T]) isIntent()              {}
func (CreateRequested[T]) isIntent()              {}
func (CreateSucceeded[T]) isIntent()              {}
func (CreateFailed[T]) isIntent()                 {}
func (UpdateRequested[T]) isIntent()              {}
func (UpdateSucceeded[T]) isIntent()              {}
func (UpdateFailed[T]) isIntent()                 {}
func (DeleteRequested[T]) isIntent()              {}
func (DeleteSucceeded[T]) isIntent()              {}
func (DeleteFailed[T]) isIntent()                 {}
func (ClearCreated[T]) isIntent()                 {}
func (ReplaceCurrentOptimistically[T]) isIntent() {}
func (DocumentURLSet[T]) isIntent()               {}
func (DocumentURLFailed[T]) isIntent()            {}
func (ChildMutationRequested[T]) isIntent()       {}
func (ChildrenFetchRequested[T]) isIntent()       {}
func (ChildrenReplaced[T]) isIntent()             {}
func (ChildAppended[T]) isIntent()                {}
func (ChildUpdated[T]) isIntent()                 {}
func (ChildRemoved[T]) isIntent()                 {}
func (ChildrenReordered[T]) isIntent()            {}
func (ChildrenFailed[T]) isIntent()               {}
func (ChildUploadFailed[T]) isIntent()            {}
func (ReferenceFetchRequested) isIntent()         {}
func (ReferenceFetchSucceeded) isIntent()         {}
func (ReferenceFetchFailed) isIntent()            {}

func (FetchAllRequested[T]) Resource() string            { return resource.Name[T]() }
func (FetchAllSucceeded[T]) Resource() string            { return resource.Name[T]() }
func (FetchAllFailed[T]) Resource() string               { return resource.Name[T]() }
func (FetchByIDRequested[T]) Resource() string           { return resource.Name[T]() }
func (FetchByIDSucceeded[T]) Resource() string           { return resource.Name[T]() }
func (FetchByIDFailed[T]) Resource() string              { return resource.Name[T]() }
func (CreateRequested[T]) Resource() string              { return resource.Name[T]() }
func (CreateSucceeded[T]) Resource() string              { return resource.Name[T]() }
func (CreateFailed[T]) Resource() string                 { return resource.Name[T]() }
func (UpdateRequested[T]) Resource() string              { return resource.Name[T]() }
func (UpdateSucceeded[T]) Resource() string              { return resource.Name[T]() }
func (UpdateFailed[T]) Resource() string                 { return resource.Name[T]() }
func (DeleteRequested[T]) Resource() string              { return resource.Name[T]() }
func (DeleteSucceeded[T]) Resource() string              { return resource.Name[T]() }
func (DeleteFailed[T]) Resource() string                 { return resource.Name[T]() }
func (ClearCreated[T]) Resource() string                 { return resource.Name[T]() }
func (ReplaceCurrentOptimistically[T]) Resource() string { return resource.Name[T]() }
func (DocumentURLSet[T]) Resource() string               { return resource.Name[T]() }
func (DocumentURLFailed[T]) Resource() string            { return resource.Name[T]() }
func (ChildMutationRequested[T]) Resource() string       { return resource.Name[T]() }
func (ChildrenFetchRequested[T]) Resource() string       { return resource.Name[T]() }
func (ChildrenReplaced[T]) Resource() string             { return resource.Name[T]() }
func (ChildAppended[T]) Resource() string                { return resource.Name[T]() }
func (ChildUpdated[T]) Resource() string                 { return resource.Name[T]() }
func (ChildRemoved[T]) Resource() string                 { return resource.Name[T]() }
func (ChildrenReordered[T]) Resource() string            { return resource.Name[T]() }
func (ChildrenFailed[T]) Resource() string               { return resource.Name[T]() }
func (ChildUploadFailed[T]) Resource() string            { return resource.Name[T]() }
func (ReferenceFetchRequested) Resource() string         { return "references" }
func (ReferenceFetchSucceeded) Resource() string         { return "references" }
func (ReferenceFetchFailed) Resource() string            { return "references" }

func (FetchAllRequested[T]) Operation() string            { return OpFetchAll }
func (FetchAllSucceeded[T]) Operation() string            { return OpFetchAll }
func (FetchAllFailed[T]) Operation() string               { return OpFetchAll }
func (FetchByIDRequested[T]) Operation() string           { return OpFetchByID }
func (FetchByIDSucceeded[T]) Operation() string           { return OpFetchByID }
func (FetchByIDFailed[T]) Operation() string              { return OpFetchByID }
func (CreateRequested[T]) Operation() string              { return OpCreate }
func (CreateSucceeded[T]) Operation() string              { return OpCreate }
func (CreateFailed[T]) Operation() string                 { return OpCreate }
func (UpdateRequested[T]) Operation() string              { return OpUpdate }
func (UpdateSucceeded[T]) Operation() string              { return OpUpdate }
func (UpdateFailed[T]) Operation() string                 { return OpUpdate }
func (DeleteRequested[T]) Operation() string              { return OpDelete }
func (DeleteSucceeded[T]) Operation() string              { return OpDelete }
func (DeleteFailed[T]) Operation() string                 { return OpDelete }
func (ClearCreated[T]) Operation() string                 { return OpClearCreated }
func (ReplaceCurrentOptimistically[T]) Operation() string { return OpOptimistic }
func (DocumentURLSet[T]) Operation() string               { return OpDocumentURL }
func (DocumentURLFailed[T]) Operation() string            { return OpDocumentURL }
func (i ChildMutationRequested[T]) Operation() string     { return i.Op }
func (ChildrenFetchRequested[T]) Operation() string       { return OpFetchChildren }
func (ChildrenReplaced[T]) Operation() string             { return OpReplace }
func (ChildAppended[T]) Operation() string                { return OpAppendChild }
func (ChildUpdated[T]) Operation() string                 { return OpUpdateChild }
func (ChildRemoved[T]) Operation() string                 { return OpRemoveChild }
func (ChildrenReordered[T]) Operation() string            { return OpReorder }
func (ChildrenFailed[T]) Operation() string               { return OpFetchChildren }
func (ChildUploadFailed[T]) Operation() string            { return OpUploadChild }
func (ReferenceFetchRequested) Operation() string         { return OpFetchReference }
func (ReferenceFetchSucceeded) Operation() string         { return OpFetchReference }
func (ReferenceFetchFailed) Operation() string            { return OpFetchReference }
