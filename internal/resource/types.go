package resource

import "time"

// ID is the canonical numeric identity for every backend entity.
type ID int64

// Entity is the constraint satisfied by every cached resource type. The
// canonical id is the single identity used by all fold operations; the
// resource name is the stable label used in events, metrics and logs.
type Entity interface {
	CanonicalID() ID
	ResourceName() string
}

// Name returns the resource name for an entity type without needing a value.
func Name[T Entity]() string {
	var zero T
	return zero.ResourceName()
}

// Pagination is the envelope metadata carried by paginated list responses.
// It is authoritative only as of the last successful list fetch; it is never
// recomputed locally after create/update/delete.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
}

// Order is a confirmed order, usually converted from a proposal.
// Some backend endpoints identify orders by "id", others by "order_id";
// CanonicalID resolves whichever is present.
type Order struct {
	ID         ID        `json:"id,omitempty"`
	OrderID    ID        `json:"order_id,omitempty"`
	ProposalID ID        `json:"proposal_id,omitempty"`
	PersonID   ID        `json:"person_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Total      float64   `json:"total,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

func (o Order) CanonicalID() ID      { return firstID(o.ID, o.OrderID) }
func (o Order) ResourceName() string { return "orders" }

// Proposal is a quote under composition, owning an ordered item collection.
type Proposal struct {
	ID        ID             `json:"id,omitempty"`
	PersonID  ID             `json:"person_id,omitempty"`
	Title     string         `json:"title,omitempty"`
	Status    string         `json:"status,omitempty"`
	Total     float64        `json:"total,omitempty"`
	Items     []ProposalItem `json:"items,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

func (p Proposal) CanonicalID() ID      { return p.ID }
func (p Proposal) ResourceName() string { return "proposals" }

// ProposalItem is a line within a proposal, either linked to a catalog
// product or fully custom.
type ProposalItem struct {
	ID          ID      `json:"id,omitempty"`
	ProposalID  ID      `json:"proposal_id,omitempty"`
	ProductID   ID      `json:"product_id,omitempty"`
	Custom      bool    `json:"custom,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
	UnitPrice   float64 `json:"unit_price,omitempty"`
}

func (i ProposalItem) CanonicalID() ID      { return i.ID }
func (i ProposalItem) ResourceName() string { return "proposal_items" }

// Person is a customer or contact. The backend answers "person_id" on some
// endpoints and "id" on others.
type Person struct {
	ID        ID     `json:"id,omitempty"`
	PersonID  ID     `json:"person_id,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

func (p Person) CanonicalID() ID      { return firstID(p.ID, p.PersonID) }
func (p Person) ResourceName() string { return "persons" }

// Product is a catalog entry selectable when composing proposal items.
type Product struct {
	ID             ID      `json:"id,omitempty"`
	ManufacturerID ID      `json:"manufacturer_id,omitempty"`
	Name           string  `json:"name,omitempty"`
	SKU            string  `json:"sku,omitempty"`
	Price          float64 `json:"price,omitempty"`
	ImageURL       string  `json:"image_url,omitempty"`
}

func (p Product) CanonicalID() ID      { return p.ID }
func (p Product) ResourceName() string { return "products" }

// Manufacturer is a product vendor.
type Manufacturer struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (m Manufacturer) CanonicalID() ID      { return m.ID }
func (m Manufacturer) ResourceName() string { return "manufacturers" }

// Role groups permissions for back-office users.
type Role struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (r Role) CanonicalID() ID      { return r.ID }
func (r Role) ResourceName() string { return "roles" }

// Permission is a single grantable capability.
type Permission struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (p Permission) CanonicalID() ID      { return p.ID }
func (p Permission) ResourceName() string { return "permissions" }

// User is a back-office account.
type User struct {
	ID     ID     `json:"id,omitempty"`
	RoleID ID     `json:"role_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

func (u User) CanonicalID() ID      { return u.ID }
func (u User) ResourceName() string { return "users" }

// Material is a raw material assignable to proposal item pieces.
type Material struct {
	ID       ID      `json:"id,omitempty"`
	Name     string  `json:"name,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	UnitCost float64 `json:"unit_cost,omitempty"`
}

func (m Material) CanonicalID() ID      { return m.ID }
func (m Material) ResourceName() string { return "materials" }

// Piece is a configurable sub-part of a product. Pieces are cached
// partitioned by their owning product id.
type Piece struct {
	ID        ID     `json:"id,omitempty"`
	ProductID ID     `json:"product_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Position  int    `json:"position,omitempty"`
}

func (p Piece) CanonicalID() ID      { return p.ID }
func (p Piece) ResourceName() string { return "pieces" }
func (p Piece) ParentID() ID         { return p.ProductID }

// PieceImage is an image attached to a piece. Images are cached partitioned
// by their owning piece id and carry an explicit ordering position.
type PieceImage struct {
	ID       ID     `json:"id,omitempty"`
	PieceID  ID     `json:"piece_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Position int    `json:"position,omitempty"`
	Primary  bool   `json:"primary,omitempty"`
}

func (i PieceImage) CanonicalID() ID      { return i.ID }
func (i PieceImage) ResourceName() string { return "piece_images" }
func (i PieceImage) ParentID() ID         { return i.PieceID }

// PieceMaterial links a material (with a quantity) to a proposal item piece.
// Cached partitioned by the owning proposal-item-piece id.
type PieceMaterial struct {
	ID                  ID      `json:"id,omitempty"`
	ProposalItemPieceID ID      `json:"proposal_item_piece_id,omitempty"`
	MaterialID          ID      `json:"material_id,omitempty"`
	Quantity            float64 `json:"quantity,omitempty"`
}

func (m PieceMaterial) CanonicalID() ID      { return m.ID }
func (m PieceMaterial) ResourceName() string { return "proposal_item_piece_materials" }
func (m PieceMaterial) ParentID() ID         { return m.ProposalItemPieceID }

// Child is the constraint for parent-partitioned resources.
type Child interface {
	Entity
	ParentID() ID
}
