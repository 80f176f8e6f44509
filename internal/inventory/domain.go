package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Category classifies a stocked product.
type Category string

const (
	// CategoryAccessory covers cases, chargers, cables and the like.
	CategoryAccessory Category = "accessory"
	// CategoryPart covers replacement parts used in repairs.
	CategoryPart Category = "part"
)

// Product is a stock keeping unit. Stock only changes through mutations.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      Category        `json:"category"`
	DeviceID      *string         `json:"deviceId,omitempty"`
	Barcode       *string         `json:"barcode,omitempty"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	Stock         int             `json:"stock"`
	MinStock      int             `json:"minStock"`
	MaxStock      int             `json:"maxStock"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// MutationKind enumerates ledger entry types.
type MutationKind string

const (
	// MutationPurchase adds stock received from a supplier.
	MutationPurchase MutationKind = "purchase"
	// MutationSale removes stock sold to a customer.
	MutationSale MutationKind = "sale"
	// MutationCorrection removes stock found missing or damaged.
	MutationCorrection MutationKind = "correction"
	// MutationReturn adds stock brought back by a customer.
	MutationReturn MutationKind = "return"
)

// Sign returns +1 for kinds that add stock and -1 for kinds that remove it.
func (k MutationKind) Sign() int {
	switch k {
	case MutationPurchase, MutationReturn:
		return 1
	case MutationSale, MutationCorrection:
		return -1
	}
	return 0
}

// Valid reports whether k is a known kind.
func (k MutationKind) Valid() bool {
	return k.Sign() != 0
}

// StockMutation is an append-only ledger entry. Quantity is the signed effect.
type StockMutation struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"productId"`
	Kind          MutationKind     `json:"kind"`
	Quantity      int              `json:"quantity"`
	PreviousStock int              `json:"previousStock"`
	NewStock      int              `json:"newStock"`
	UnitCost      *decimal.Decimal `json:"unitCost,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Reference     string           `json:"reference,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// AlertKind distinguishes an empty shelf from a low one.
type AlertKind string

const (
	// AlertLowStock is raised when stock is at or below the minimum but above zero.
	AlertLowStock AlertKind = "low_stock"
	// AlertOutOfStock is raised when stock reaches zero.
	AlertOutOfStock AlertKind = "out_of_stock"
)

// StockAlert flags a product at or below its minimum stock.
type StockAlert struct {
	ID           string     `json:"id"`
	ProductID    string     `json:"productId"`
	Kind         AlertKind  `json:"kind"`
	CurrentStock int        `json:"currentStock"`
	MinStock     int        `json:"minStock"`
	IsResolved   bool       `json:"isResolved"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// MutationInput requests one ledger mutation.
type MutationInput struct {
	ProductID string           `json:"productId" validate:"required"`
	Kind      MutationKind     `json:"kind" validate:"required,oneof=purchase sale correction return"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	UnitCost  *decimal.Decimal `json:"unitCost,omitempty"`
	Notes     string           `json:"notes,omitempty" validate:"max=500"`
	Reference string           `json:"reference,omitempty" validate:"max=120"`
}

// MutationResult is the product after the mutation plus the ledger entry written.
type MutationResult struct {
	Product  Product       `json:"product"`
	Mutation StockMutation `json:"mutation"`
}

// ProductInput creates or updates a product.
type ProductInput struct {
	Name          string           `json:"name" validate:"required,max=200"`
	Category      Category         `json:"category" validate:"required,oneof=accessory part"`
	DeviceID      *string          `json:"deviceId,omitempty"`
	Barcode       *string          `json:"barcode,omitempty" validate:"omitempty,max=64"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice,omitempty"`
	SalePrice     *decimal.Decimal `json:"salePrice" validate:"required"`
	MinStock      int              `json:"minStock" validate:"gte=0"`
	MaxStock      int              `json:"maxStock" validate:"gte=0"`
	IsActive      *bool            `json:"isActive,omitempty"`
	InitialStock  int              `json:"initialStock,omitempty" validate:"gte=0"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category   Category
	Search     string
	ActiveOnly bool
	LowStock   bool
	Page       shared.Page
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	ProductID  string
	Unresolved bool
	Page       shared.Page
}
