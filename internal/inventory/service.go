package inventory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	DeleteProduct(ctx context.Context, id string) error
	ListMutations(ctx context.Context, productID string, page shared.Page) ([]StockMutation, int, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]StockAlert, int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives business counters after a commit.
type MetricsPort interface {
	StockMutation(kind string)
	AlertOpened(kind string)
	AlertsResolved(n int)
}

// Service coordinates inventory operations.
type Service struct {
	repo    RepositoryPort
	ledger  *Ledger
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *Ledger, audit AuditPort, metrics MetricsPort, logger *slog.Logger) *Service {
	if ledger == nil {
		ledger = NewLedger(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledger, audit: audit, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ApplyMutation records one stock movement atomically.
func (s *Service) ApplyMutation(ctx context.Context, input MutationInput) (MutationResult, error) {
	if err := shared.Validate(input); err != nil {
		return MutationResult{}, err
	}
	var applied Applied
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		applied, err = s.ledger.Apply(ctx, tx, input)
		return err
	})
	if err != nil {
		return MutationResult{}, err
	}
	ReportApplied(s.metrics, applied)
	s.record(ctx, "inventory:"+string(input.Kind), "product", input.ProductID, map[string]any{
		"quantity":       applied.Mutation.Quantity,
		"previous_stock": applied.Mutation.PreviousStock,
		"new_stock":      applied.Mutation.NewStock,
		"reference":      input.Reference,
	})
	return applied.MutationResult, nil
}

// ReportApplied forwards committed ledger steps to metrics. Call it only after
// the surrounding transaction committed.
func ReportApplied(m MetricsPort, applied ...Applied) {
	if m == nil {
		return
	}
	for _, a := range applied {
		m.StockMutation(string(a.Mutation.Kind))
		if a.Alerts.Opened != nil {
			m.AlertOpened(string(a.Alerts.Opened.Kind))
		}
		if a.Alerts.Resolved > 0 {
			m.AlertsResolved(int(a.Alerts.Resolved))
		}
	}
}

// ResolveAlert marks an alert resolved by hand. Resolving twice is a no-op.
func (s *Service) ResolveAlert(ctx context.Context, alertID string) (StockAlert, error) {
	var alert StockAlert
	var wasOpen bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		alert, wasOpen, err = tx.ResolveAlert(ctx, alertID, s.now())
		return err
	})
	if err != nil {
		return StockAlert{}, err
	}
	if wasOpen && s.metrics != nil {
		s.metrics.AlertsResolved(1)
	}
	s.record(ctx, "inventory:resolve_alert", "stock_alert", alertID, map[string]any{"product_id": alert.ProductID})
	return alert, nil
}

// ListAlerts lists alerts, optionally only unresolved ones.
func (s *Service) ListAlerts(ctx context.Context, filter AlertFilter) (shared.Listing[StockAlert], error) {
	alerts, total, err := s.repo.ListAlerts(ctx, filter)
	if err != nil {
		return shared.Listing[StockAlert]{}, err
	}
	return shared.Listing[StockAlert]{Items: nonNil(alerts), Total: total, Page: filter.Page}, nil
}

// ListMutations returns the ledger of one product.
func (s *Service) ListMutations(ctx context.Context, productID string, page shared.Page) (shared.Listing[StockMutation], error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return shared.Listing[StockMutation]{}, err
	}
	mutations, total, err := s.repo.ListMutations(ctx, productID, page)
	if err != nil {
		return shared.Listing[StockMutation]{}, err
	}
	return shared.Listing[StockMutation]{Items: nonNil(mutations), Total: total, Page: page}, nil
}

// GetProduct loads one product.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts lists products.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) (shared.Listing[Product], error) {
	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return shared.Listing[Product]{}, err
	}
	return shared.Listing[Product]{Items: nonNil(products), Total: total, Page: filter.Page}, nil
}

// CreateProduct inserts a product. A positive InitialStock is booked as a
// purchase mutation in the same transaction so the ledger explains it.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	if err := validateProduct(input); err != nil {
		return Product{}, err
	}
	now := s.now()
	product := Product{
		ID:        uuid.NewString(),
		Stock:     0,
		CreatedAt: now,
	}
	applyProductInput(&product, input, now)
	if input.IsActive == nil {
		product.IsActive = true
	}

	var applied []Applied
	var outcome AlertOutcome
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertProduct(ctx, product); err != nil {
			return err
		}
		if input.InitialStock > 0 {
			a, err := s.ledger.Apply(ctx, tx, MutationInput{
				ProductID: product.ID,
				Kind:      MutationPurchase,
				Quantity:  input.InitialStock,
				UnitCost:  input.PurchasePrice,
				Notes:     "initial stock",
			})
			if err != nil {
				return err
			}
			applied = append(applied, a)
			product = a.Product
			return nil
		}
		var err error
		outcome, err = s.ledger.alerts.OnStockChanged(ctx, tx, product, product.Stock)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	ReportApplied(s.metrics, applied...)
	if outcome.Opened != nil && s.metrics != nil {
		s.metrics.AlertOpened(string(outcome.Opened.Kind))
	}
	s.record(ctx, "inventory:create_product", "product", product.ID, map[string]any{"name": product.Name})
	return product, nil
}

// UpdateProduct edits descriptive fields and thresholds. Stock is untouched;
// a changed minimum re-evaluates the product's alert.
func (s *Service) UpdateProduct(ctx context.Context, id string, input ProductInput) (Product, error) {
	if err := validateProduct(input); err != nil {
		return Product{}, err
	}
	var product Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		thresholdChanged := current.MinStock != input.MinStock
		applyProductInput(&current, input, s.now())
		if err := tx.UpdateProduct(ctx, current); err != nil {
			return err
		}
		if thresholdChanged {
			if _, err := s.ledger.alerts.OnStockChanged(ctx, tx, current, current.Stock); err != nil {
				return err
			}
		}
		product = current
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, "inventory:update_product", "product", id, map[string]any{"name": product.Name})
	return product, nil
}

// DeleteProduct removes a product that was never sold.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "inventory:delete_product", "product", id, nil)
	return nil
}

func validateProduct(input ProductInput) error {
	if err := shared.Validate(input); err != nil {
		return err
	}
	if input.SalePrice.IsNegative() {
		return shared.NewValidationError("salePrice", "must be at least 0")
	}
	if input.PurchasePrice != nil && input.PurchasePrice.IsNegative() {
		return shared.NewValidationError("purchasePrice", "must be at least 0")
	}
	if input.MaxStock > 0 && input.MaxStock < input.MinStock {
		return shared.NewValidationError("maxStock", "must be at least minStock")
	}
	if input.Barcode != nil && strings.TrimSpace(*input.Barcode) == "" {
		return shared.NewValidationError("barcode", "must not be blank")
	}
	return nil
}

func applyProductInput(p *Product, input ProductInput, now time.Time) {
	p.Name = strings.TrimSpace(input.Name)
	p.Category = input.Category
	p.DeviceID = input.DeviceID
	if input.Barcode != nil {
		code := strings.TrimSpace(*input.Barcode)
		p.Barcode = &code
	} else {
		p.Barcode = nil
	}
	p.PurchasePrice = decimal.Zero
	if input.PurchasePrice != nil {
		p.PurchasePrice = *input.PurchasePrice
	}
	p.SalePrice = *input.SalePrice
	p.MinStock = input.MinStock
	p.MaxStock = input.MaxStock
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
	p.UpdatedAt = now
}

func (s *Service) record(ctx context.Context, action, entity, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: id,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit inventory", slog.String("action", action), slog.String("entity_id", id), slog.Any("error", err))
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
