// Package showcase manages the devices on display in the shop window and
// reconciles them with invoice lines by IMEI.
package showcase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Condition grades a device.
type Condition string

const (
	ConditionSealed  Condition = "sealed"
	ConditionOpenBox Condition = "open-box"
	ConditionUsed    Condition = "used"
)

// StockStatus tells whether a device can still be bought.
type StockStatus string

const (
	StatusAvailable StockStatus = "available"
	StatusSold      StockStatus = "sold"
)

// Defaults for items created from purchase invoices.
const (
	DefaultBrand = "Onbekend"
	DefaultType  = "Telefoon"
)

// Item is a device listed in the showcase.
type Item struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Brand         string          `json:"brand"`
	Model         string          `json:"model"`
	Storage       string          `json:"storage,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Color         string          `json:"color,omitempty"`
	BatteryHealth *int            `json:"batteryHealth,omitempty"`
	Condition     Condition       `json:"condition"`
	IMEI          string          `json:"imei,omitempty"`
	StockStatus   StockStatus     `json:"stockStatus"`
	Photos        []string        `json:"photos"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ItemInput creates or replaces an item.
type ItemInput struct {
	Type          string           `json:"type" validate:"required,max=60"`
	Brand         string           `json:"brand" validate:"required,max=80"`
	Model         string           `json:"model" validate:"required,max=120"`
	Storage       string           `json:"storage,omitempty" validate:"max=40"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	Color         string           `json:"color,omitempty" validate:"max=40"`
	BatteryHealth *int             `json:"batteryHealth,omitempty" validate:"omitempty,gte=0,lte=100"`
	Condition     Condition        `json:"condition" validate:"required,oneof=sealed open-box used"`
	IMEI          string           `json:"imei,omitempty" validate:"max=40"`
	StockStatus   StockStatus      `json:"stockStatus,omitempty" validate:"omitempty,oneof=available sold"`
	Photos        []string         `json:"photos,omitempty" validate:"max=20"`
	Description   string           `json:"description,omitempty" validate:"max=4000"`
}

// Filter narrows item listings.
type Filter struct {
	Type   string
	Brand  string
	Status StockStatus
	Search string
	Page   shared.Page
}
