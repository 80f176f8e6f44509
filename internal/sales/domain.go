package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// PaymentMethod enumerates accepted tenders at the counter.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentPin      PaymentMethod = "pin"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// PaymentStatus tracks whether the sale has been settled.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
)

// Line is one product on a receipt. ProductName is a snapshot taken when the
// sale was created.
type Line struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Customer holds optional buyer details.
type Customer struct {
	Name  string `json:"name,omitempty" validate:"max=200"`
	Phone string `json:"phone,omitempty" validate:"max=40"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Sale is a point-of-sale receipt.
type Sale struct {
	ID            string          `json:"id"`
	Number        string          `json:"saleNumber"`
	Lines         []Line          `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	Customer      Customer        `json:"customer"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// LineRequest asks for quantity units of a product at unitPrice.
type LineRequest struct {
	ProductID string           `json:"productId" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unitPrice" validate:"required"`
}

// CreateSaleRequest is the input of CreateSale.
type CreateSaleRequest struct {
	Lines         []LineRequest    `json:"lines" validate:"required,min=1,dive"`
	PaymentMethod PaymentMethod    `json:"paymentMethod" validate:"required,oneof=cash pin card transfer"`
	PaymentStatus PaymentStatus    `json:"paymentStatus,omitempty" validate:"omitempty,oneof=paid pending"`
	Customer      Customer         `json:"customer"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	Tax           *decimal.Decimal `json:"tax,omitempty"`
	Notes         string           `json:"notes,omitempty" validate:"max=500"`
}

// SaleFilter narrows sale listings. Zero times are open bounds.
type SaleFilter struct {
	From time.Time
	To   time.Time
	Page shared.Page
}
