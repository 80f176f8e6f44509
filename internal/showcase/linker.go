package showcase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// MatchRule names the lookup that found an item.
type MatchRule string

const (
	MatchExact  MatchRule = "exact"
	MatchDigits MatchRule = "digits"
	MatchLoose  MatchRule = "loose"
	MatchNone   MatchRule = "none"
)

// DefaultLooseMinDigits is the shortest digit run the loose rule accepts.
const DefaultLooseMinDigits = 8

// LinkStore is what the linker reads and writes.
type LinkStore interface {
	FindByIMEI(ctx context.Context, imei string) (Item, bool, error)
	FindByIMEIPattern(ctx context.Context, m Matcher) (Item, bool, error)
	InsertItem(ctx context.Context, it Item) error
	UpdateItem(ctx context.Context, it Item) error
}

// LinkMetrics counts which rule matched.
type LinkMetrics interface {
	IMEIMatch(rule string)
}

// PurchaseLine is the part of a purchase invoice line the linker copies.
type PurchaseLine struct {
	IMEI        string
	Model       string
	Description string
	Condition   string
	Price       decimal.Decimal
	Storage     string
	Color       string
}

// LinkResult describes what a link call did.
type LinkResult struct {
	ItemID    string    `json:"itemId,omitempty"`
	IMEI      string    `json:"imei"`
	MatchedBy MatchRule `json:"matchedBy"`
	Created   bool      `json:"created"`
	Skipped   bool      `json:"skipped,omitempty"`
}

// Linker reconciles invoice lines with showcase items by IMEI.
type Linker struct {
	store          LinkStore
	logger         *slog.Logger
	metrics        LinkMetrics
	looseMinDigits int
	now            func() time.Time
}

// LinkerConfig tunes the linker.
type LinkerConfig struct {
	// LooseMinDigits disables the loose rule for shorter digit runs.
	LooseMinDigits int
}

// NewLinker builds a Linker.
func NewLinker(store LinkStore, logger *slog.Logger, metrics LinkMetrics, cfg LinkerConfig) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LooseMinDigits <= 0 {
		cfg.LooseMinDigits = DefaultLooseMinDigits
	}
	return &Linker{store: store, logger: logger, metrics: metrics, looseMinDigits: cfg.LooseMinDigits, now: func() time.Time { return time.Now().UTC() }}
}

// find tries exact raw, exact digits, then the loose pattern, in that order.
func (l *Linker) find(ctx context.Context, raw string) (Item, MatchRule, error) {
	it, ok, err := l.store.FindByIMEI(ctx, raw)
	if err != nil || ok {
		return it, MatchExact, err
	}

	digits := DigitsOnly(raw)
	if digits != "" && digits != raw {
		it, ok, err = l.store.FindByIMEI(ctx, digits)
		if err != nil || ok {
			return it, MatchDigits, err
		}
	}

	if len(digits) < l.looseMinDigits {
		return Item{}, MatchNone, nil
	}
	it, ok, err = l.store.FindByIMEIPattern(ctx, DigitsInOrderPattern(digits))
	if err != nil {
		return Item{}, MatchNone, err
	}
	if !ok {
		return Item{}, MatchNone, nil
	}
	l.logger.Warn("showcase item matched by loose imei pattern",
		slog.String("imei", raw),
		slog.String("stored_imei", it.IMEI),
		slog.String("item_id", it.ID))
	return it, MatchLoose, nil
}

func (l *Linker) observe(rule MatchRule) {
	if l.metrics != nil {
		l.metrics.IMEIMatch(string(rule))
	}
}

// LinkPurchaseLine upserts the showcase item for a purchased device. An
// empty IMEI is a no-op.
func (l *Linker) LinkPurchaseLine(ctx context.Context, line PurchaseLine) (LinkResult, error) {
	raw := strings.TrimSpace(line.IMEI)
	if raw == "" {
		return LinkResult{MatchedBy: MatchNone, Skipped: true}, nil
	}

	existing, rule, err := l.find(ctx, raw)
	if err != nil {
		return LinkResult{}, err
	}
	l.observe(rule)
	now := l.now()

	condition, ok := parseCondition(line.Condition)
	if !ok {
		condition = ConditionUsed
	}

	// A matched item takes every device field from the line, blanks
	// included. Type, brand, photos and description are not on invoices.
	if rule != MatchNone {
		existing.Model = firstNonEmpty(line.Model, line.Description)
		existing.Condition = condition
		existing.Price = line.Price
		existing.Storage = strings.TrimSpace(line.Storage)
		existing.Color = strings.TrimSpace(line.Color)
		existing.IMEI = raw
		existing.StockStatus = StatusAvailable
		existing.UpdatedAt = now
		if err := l.store.UpdateItem(ctx, existing); err != nil {
			return LinkResult{}, err
		}
		return LinkResult{ItemID: existing.ID, IMEI: raw, MatchedBy: rule}, nil
	}

	created := Item{
		ID:          uuid.NewString(),
		Type:        DefaultType,
		Brand:       DefaultBrand,
		Model:       firstNonEmpty(line.Model, line.Description),
		Storage:     strings.TrimSpace(line.Storage),
		Price:       line.Price,
		Color:       strings.TrimSpace(line.Color),
		Condition:   condition,
		IMEI:        raw,
		StockStatus: StatusAvailable,
		Photos:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.store.InsertItem(ctx, created); err != nil {
		return LinkResult{}, err
	}
	return LinkResult{ItemID: created.ID, IMEI: raw, MatchedBy: MatchNone, Created: true}, nil
}

// MarkSoldByIMEI flips the matching item to sold.
func (l *Linker) MarkSoldByIMEI(ctx context.Context, imei string) (Item, LinkResult, error) {
	raw := strings.TrimSpace(imei)
	if raw == "" {
		return Item{}, LinkResult{}, &shared.MissingImeiError{}
	}
	it, rule, err := l.find(ctx, raw)
	if err != nil {
		return Item{}, LinkResult{}, err
	}
	l.observe(rule)
	if rule == MatchNone {
		return Item{}, LinkResult{IMEI: raw, MatchedBy: MatchNone}, &shared.DeviceNotFoundError{IMEI: raw}
	}
	it.StockStatus = StatusSold
	it.UpdatedAt = l.now()
	if err := l.store.UpdateItem(ctx, it); err != nil {
		return Item{}, LinkResult{}, err
	}
	return it, LinkResult{ItemID: it.ID, IMEI: raw, MatchedBy: rule}, nil
}

// parseCondition maps the free text staff type on invoices to a grade.
func parseCondition(s string) (Condition, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sealed", "nieuw", "new", "geseald":
		return ConditionSealed, true
	case "open-box", "open box", "openbox":
		return ConditionOpenBox, true
	case "used", "gebruikt", "refurbished", "tweedehands":
		return ConditionUsed, true
	}
	return "", false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
