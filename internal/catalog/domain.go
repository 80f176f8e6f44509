// Package catalog serves the shop's reference data: brands, device models,
// the repairs offered per device and the product types used on the site.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Brand is a device manufacturer.
type Brand struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   string    `json:"logoUrl,omitempty"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Device is a model of a brand.
type Device struct {
	ID        string    `json:"id"`
	BrandID   string    `json:"brandId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repair is a priced service for one device.
type Repair struct {
	ID          string          `json:"id"`
	DeviceID    string          `json:"deviceId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	DurationMin int             `json:"durationMin"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductType groups showcase items and products on the site.
type ProductType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

// BrandInput creates or replaces a brand. Slug is derived from Name when empty.
type BrandInput struct {
	Name      string `json:"name" validate:"required,max=80"`
	Slug      string `json:"slug,omitempty" validate:"max=80"`
	LogoURL   string `json:"logoUrl,omitempty" validate:"max=500"`
	SortOrder int    `json:"sortOrder"`
}

// DeviceInput creates or replaces a device.
type DeviceInput struct {
	BrandID   string `json:"brandId" validate:"required"`
	Name      string `json:"name" validate:"required,max=120"`
	Slug      string `json:"slug,omitempty" validate:"max=120"`
	ImageURL  string `json:"imageUrl,omitempty" validate:"max=500"`
	SortOrder int    `json:"sortOrder"`
}

// RepairInput creates or replaces a repair.
type RepairInput struct {
	DeviceID    string           `json:"deviceId" validate:"required"`
	Name        string           `json:"name" validate:"required,max=120"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	DurationMin int              `json:"durationMin" validate:"gte=0"`
	Description string           `json:"description,omitempty" validate:"max=2000"`
}

// ProductTypeInput creates or replaces a product type.
type ProductTypeInput struct {
	Name string `json:"name" validate:"required,max=60"`
	Slug string `json:"slug,omitempty" validate:"max=60"`
}

// Entity names a catalog table for generic operations.
type Entity string

const (
	EntityBrand       Entity = "brand"
	EntityDevice      Entity = "device"
	EntityRepair      Entity = "repair"
	EntityProductType Entity = "product type"
)
