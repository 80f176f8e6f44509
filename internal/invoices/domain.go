package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Type classifies an invoice.
type Type string

const (
	TypePurchase Type = "purchase"
	TypeSale     Type = "sale"
	TypeRepair   Type = "repair"
)

// Line is one invoice row.
type Line struct {
	Description string          `json:"description"`
	IMEI        string          `json:"imei,omitempty"`
	Model       string          `json:"model,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Condition   string          `json:"condition,omitempty"`
	Color       string          `json:"color,omitempty"`
	Storage     string          `json:"storage,omitempty"`
}

// Customer holds the contact details printed on an invoice.
type Customer struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Invoice is a purchase, sale or repair document.
type Invoice struct {
	ID        string          `json:"id"`
	Number    int64           `json:"number"`
	Type      Type            `json:"type"`
	Date      time.Time       `json:"date"`
	Customer  Customer        `json:"customer"`
	Notes     string          `json:"notes,omitempty"`
	Lines     []Line          `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// IMEIs returns the trimmed non-empty IMEIs in line order.
func (inv Invoice) IMEIs() []string {
	var out []string
	for _, l := range inv.Lines {
		if imei := trim(l.IMEI); imei != "" {
			out = append(out, imei)
		}
	}
	return out
}

// LineInput is a requested invoice row.
type LineInput struct {
	Description string           `json:"description" validate:"required,max=500"`
	IMEI        string           `json:"imei,omitempty" validate:"max=40"`
	Model       string           `json:"model,omitempty" validate:"max=120"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Condition   string           `json:"condition,omitempty" validate:"max=40"`
	Color       string           `json:"color,omitempty" validate:"max=40"`
	Storage     string           `json:"storage,omitempty" validate:"max=40"`
}

// CustomerInput is the requested customer block.
type CustomerInput struct {
	Name    string `json:"name,omitempty" validate:"max=200"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" validate:"max=40"`
	Address string `json:"address,omitempty" validate:"max=500"`
}

// Input creates or replaces an invoice.
type Input struct {
	Type     Type          `json:"type" validate:"required,oneof=purchase sale repair"`
	Date     string        `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Customer CustomerInput `json:"customer"`
	Notes    string        `json:"notes,omitempty" validate:"max=4000"`
	Lines    []LineInput   `json:"lines" validate:"required,min=1,dive"`
}

// Filter narrows invoice listings.
type Filter struct {
	Type   Type
	Search string
	From   *time.Time
	To     *time.Time
	Page   shared.Page
}
