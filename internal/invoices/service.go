package invoices

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/showcase"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id string) (Invoice, error)
	ListInvoices(ctx context.Context, filter Filter) ([]Invoice, int, error)
	DeleteInvoice(ctx context.Context, id string) error
}

// LinkerPort is the showcase reconciliation run after an invoice is saved.
type LinkerPort interface {
	LinkPurchaseLine(ctx context.Context, line showcase.PurchaseLine) (showcase.LinkResult, error)
	MarkSoldByIMEI(ctx context.Context, imei string) (showcase.Item, showcase.LinkResult, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LinkError reports a showcase side effect that failed for one line.
type LinkError struct {
	Line    int    `json:"line,omitempty"`
	IMEI    string `json:"imei,omitempty"`
	Message string `json:"message"`
	err     error
}

// Unwrap exposes the linker error.
func (e LinkError) Unwrap() error { return e.err }

func (e LinkError) Error() string { return e.Message }

// SaveResult is the stored invoice plus the outcome of showcase linking.
type SaveResult struct {
	Invoice    Invoice               `json:"invoice"`
	Links      []showcase.LinkResult `json:"links,omitempty"`
	LinkErrors []LinkError           `json:"linkErrors,omitempty"`
}

// Service implements invoice use cases.
type Service struct {
	repo   RepositoryPort
	linker LinkerPort
	audit  AuditPort
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewService builds Service. linker may be nil to disable showcase linking.
func NewService(repo RepositoryPort, linker LinkerPort, audit AuditPort, logger *slog.Logger, loc *time.Location) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, linker: linker, audit: audit, logger: logger, loc: loc, now: time.Now}
}

// Save creates the invoice when id is empty and replaces it otherwise. Once
// the invoice is committed the showcase is reconciled; linking failures are
// reported in the result and never undo the save.
func (s *Service) Save(ctx context.Context, id string, input Input) (SaveResult, error) {
	if err := shared.Validate(input); err != nil {
		return SaveResult{}, err
	}
	date, err := s.invoiceDate(input.Date)
	if err != nil {
		return SaveResult{}, err
	}
	lines := make([]Line, len(input.Lines))
	total := decimal.Zero
	for i, l := range input.Lines {
		if l.Price.IsNegative() {
			return SaveResult{}, shared.NewValidationError("lines["+strconv.Itoa(i)+"].price", "must be at least 0")
		}
		lines[i] = Line{
			Description: trim(l.Description),
			IMEI:        trim(l.IMEI),
			Model:       trim(l.Model),
			Price:       l.Price.Round(2),
			Condition:   trim(l.Condition),
			Color:       trim(l.Color),
			Storage:     trim(l.Storage),
		}
		total = total.Add(lines[i].Price)
	}

	now := s.now().UTC()
	inv := Invoice{
		ID:   id,
		Type: input.Type,
		Date: date,
		Customer: Customer{
			Name:    trim(input.Customer.Name),
			Email:   trim(input.Customer.Email),
			Phone:   trim(input.Customer.Phone),
			Address: trim(input.Customer.Address),
		},
		Notes:     input.Notes,
		Lines:     lines,
		Total:     total,
		UpdatedAt: now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if inv.ID == "" {
			inv.ID = uuid.NewString()
			inv.CreatedAt = now
			number, err := tx.InsertInvoice(ctx, inv)
			if err != nil {
				return err
			}
			inv.Number = number
		} else {
			current, err := tx.GetInvoiceForUpdate(ctx, inv.ID)
			if err != nil {
				return err
			}
			inv.Number = current.Number
			inv.CreatedAt = current.CreatedAt
			if err := tx.UpdateInvoice(ctx, inv); err != nil {
				return err
			}
		}
		return tx.ReplaceLines(ctx, inv.ID, inv.Lines)
	})
	if err != nil {
		return SaveResult{}, err
	}

	action := "invoice:update"
	if id == "" {
		action = "invoice:create"
	}
	s.record(ctx, action, inv)

	result := SaveResult{Invoice: inv}
	s.link(ctx, inv, &result)
	return result, nil
}

// link runs the showcase side effects for purchase and sale invoices.
func (s *Service) link(ctx context.Context, inv Invoice, result *SaveResult) {
	if s.linker == nil {
		return
	}
	switch inv.Type {
	case TypePurchase:
		for i, l := range inv.Lines {
			if l.IMEI == "" {
				continue
			}
			res, err := s.linker.LinkPurchaseLine(ctx, showcase.PurchaseLine{
				IMEI:        l.IMEI,
				Model:       l.Model,
				Description: l.Description,
				Condition:   l.Condition,
				Price:       l.Price,
				Storage:     l.Storage,
				Color:       l.Color,
			})
			if err != nil {
				s.linkFailed(ctx, inv, result, i+1, l.IMEI, err)
				continue
			}
			result.Links = append(result.Links, res)
		}
	case TypeSale:
		imeis := inv.IMEIs()
		if len(imeis) == 0 {
			s.linkFailed(ctx, inv, result, 0, "", &shared.MissingImeiError{InvoiceID: inv.ID})
			return
		}
		_, res, err := s.linker.MarkSoldByIMEI(ctx, imeis[0])
		if err != nil {
			s.linkFailed(ctx, inv, result, 0, imeis[0], err)
			return
		}
		result.Links = append(result.Links, res)
	}
}

func (s *Service) linkFailed(ctx context.Context, inv Invoice, result *SaveResult, line int, imei string, err error) {
	level := slog.LevelWarn
	if errors.Is(err, shared.ErrMissingIMEI) || errors.Is(err, shared.ErrNotFound) {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "showcase link failed",
		slog.String("invoice_id", inv.ID),
		slog.Int64("invoice_number", inv.Number),
		slog.Int("line", line),
		slog.String("imei", imei),
		slog.Any("error", err))
	result.LinkErrors = append(result.LinkErrors, LinkError{Line: line, IMEI: imei, Message: err.Error(), err: err})
}

// Get loads one invoice.
func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// List returns a page of invoices.
func (s *Service) List(ctx context.Context, filter Filter) (shared.Listing[Invoice], error) {
	list, total, err := s.repo.ListInvoices(ctx, filter)
	if err != nil {
		return shared.Listing[Invoice]{}, err
	}
	if list == nil {
		list = []Invoice{}
	}
	return shared.Listing[Invoice]{Items: list, Total: total, Page: filter.Page}, nil
}

// Delete removes an invoice. Showcase items created from it are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "invoice:delete", Invoice{ID: id})
	return nil
}

func (s *Service) invoiceDate(raw string) (time.Time, error) {
	if raw == "" {
		y, m, d := s.now().In(s.loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, shared.NewValidationError("date", "must be a date (YYYY-MM-DD)")
	}
	return date, nil
}

func (s *Service) record(ctx context.Context, action string, inv Invoice) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{}
	if inv.Number > 0 {
		meta["number"] = inv.Number
		meta["type"] = string(inv.Type)
		meta["total"] = inv.Total.StringFixed(2)
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "invoice",
		EntityID: inv.ID,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit invoice", slog.String("action", action), slog.Any("error", err))
	}
}

func trim(s string) string { return strings.TrimSpace(s) }
