package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/inventory"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSaleByNumber(ctx context.Context, number string) (Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]Sale, int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives counters for committed sales.
type MetricsPort interface {
	inventory.MetricsPort
	SaleRecorded(method string, total float64)
}

// Service coordinates point-of-sale transactions.
type Service struct {
	repo     RepositoryPort
	ledger   *inventory.Ledger
	audit    AuditPort
	metrics  MetricsPort
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

// NewService builds Service. Sale numbers count days in loc.
func NewService(repo RepositoryPort, ledger *inventory.Ledger, audit AuditPort, metrics MetricsPort, logger *slog.Logger, loc *time.Location) *Service {
	if ledger == nil {
		ledger = inventory.NewLedger(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, ledger: ledger, audit: audit, metrics: metrics, logger: logger, location: loc, now: time.Now}
}

// FormatSaleNumber renders SALE-YYYYMMDD-NNNN.
func FormatSaleNumber(day time.Time, seq int) string {
	return fmt.Sprintf("SALE-%s-%04d", day.Format("20060102"), seq)
}

// CreateSale applies every line against the ledger and records the receipt in
// one transaction. Any failing line rolls back all earlier lines.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (*Sale, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := s.now().In(s.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	sale := Sale{
		ID:            uuid.NewString(),
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: req.PaymentStatus,
		Customer:      req.Customer,
		Notes:         req.Notes,
		CreatedAt:     now.UTC(),
	}
	if sale.PaymentStatus == "" {
		sale.PaymentStatus = PaymentPaid
	}
	computeTotals(&sale, req)

	var applied []inventory.Applied
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		applied = applied[:0]
		count, err := tx.CountSalesBetween(ctx, dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC())
		if err != nil {
			return fmt.Errorf("sales: count today's sales: %w", err)
		}
		sale.Number = FormatSaleNumber(dayStart, count+1)

		for i, line := range req.Lines {
			result, err := s.ledger.Apply(ctx, tx, inventory.MutationInput{
				ProductID: line.ProductID,
				Kind:      inventory.MutationSale,
				Quantity:  line.Quantity,
				Notes:     "sale",
				Reference: sale.Number,
			})
			if err != nil {
				var notFound *shared.ProductNotFoundError
				if errors.As(err, &notFound) {
					return &shared.ProductNotFoundError{ProductID: line.ProductID, Line: i + 1}
				}
				return err
			}
			sale.Lines[i].ProductName = result.Product.Name
			applied = append(applied, result)
		}
		return tx.InsertSale(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	inventory.ReportApplied(s.metrics, applied...)
	if s.metrics != nil {
		total, _ := sale.Total.Float64()
		s.metrics.SaleRecorded(string(sale.PaymentMethod), total)
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    shared.ActorFromContext(ctx),
			Action:   "sales:create",
			Entity:   "sale",
			EntityID: sale.Number,
			Meta: map[string]any{
				"lines": len(sale.Lines),
				"total": sale.Total.StringFixed(2),
			},
		}); err != nil {
			s.logger.Warn("audit sale", slog.String("number", sale.Number), slog.Any("error", err))
		}
	}
	return &sale, nil
}

func validateRequest(req CreateSaleRequest) error {
	if err := shared.Validate(req); err != nil {
		return err
	}
	for i, line := range req.Lines {
		if line.UnitPrice.IsNegative() {
			return shared.NewValidationError(fmt.Sprintf("lines[%d].unitPrice", i), "must be at least 0")
		}
	}
	if req.Discount != nil && req.Discount.IsNegative() {
		return shared.NewValidationError("discount", "must be at least 0")
	}
	if req.Tax != nil && req.Tax.IsNegative() {
		return shared.NewValidationError("tax", "must be at least 0")
	}
	return nil
}

// computeTotals fills lines and totals: line = qty x price, total = subtotal -
// discount + tax, never below zero.
func computeTotals(sale *Sale, req CreateSaleRequest) {
	sale.Lines = make([]Line, len(req.Lines))
	subtotal := decimal.Zero
	for i, l := range req.Lines {
		lineTotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		sale.Lines[i] = Line{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: *l.UnitPrice,
			LineTotal: lineTotal,
		}
		subtotal = subtotal.Add(lineTotal)
	}
	sale.Subtotal = subtotal
	sale.Discount = decimal.Zero
	if req.Discount != nil {
		sale.Discount = req.Discount.Round(2)
	}
	sale.Tax = decimal.Zero
	if req.Tax != nil {
		sale.Tax = req.Tax.Round(2)
	}
	total := subtotal.Sub(sale.Discount).Add(sale.Tax)
	if total.IsNegative() {
		total = decimal.Zero
	}
	sale.Total = total
}

// GetSale loads a sale by its number.
func (s *Service) GetSale(ctx context.Context, number string) (Sale, error) {
	return s.repo.GetSaleByNumber(ctx, number)
}

// ListSales lists sales in a window.
func (s *Service) ListSales(ctx context.Context, filter SaleFilter) (shared.Listing[Sale], error) {
	items, total, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return shared.Listing[Sale]{}, err
	}
	if items == nil {
		items = []Sale{}
	}
	return shared.Listing[Sale]{Items: items, Total: total, Page: filter.Page}, nil
}
