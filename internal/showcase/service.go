package showcase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	LinkStore
	GetItem(ctx context.Context, id string) (Item, error)
	ListItems(ctx context.Context, filter Filter) ([]Item, int, error)
	DeleteItem(ctx context.Context, id string) error
	CountPhotoReferences(ctx context.Context, photo string) (int, error)
}

// AssetStore removes uploaded photos.
type AssetStore interface {
	Delete(ctx context.Context, ref string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements showcase CRUD.
type Service struct {
	repo   RepositoryPort
	assets AssetStore
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, assets AssetStore, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, assets: assets, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns a page of items. IMEIs are blanked unless admin.
func (s *Service) List(ctx context.Context, filter Filter, admin bool) (shared.Listing[Item], error) {
	items, total, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return shared.Listing[Item]{}, err
	}
	if items == nil {
		items = []Item{}
	}
	if !admin {
		for i := range items {
			items[i].IMEI = ""
		}
	}
	return shared.Listing[Item]{Items: items, Total: total, Page: filter.Page}, nil
}

// Get loads one item. The IMEI is blanked unless admin.
func (s *Service) Get(ctx context.Context, id string, admin bool) (Item, error) {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if !admin {
		it.IMEI = ""
	}
	return it, nil
}

// Create stores a new item.
func (s *Service) Create(ctx context.Context, input ItemInput) (Item, error) {
	if err := validateInput(input); err != nil {
		return Item{}, err
	}
	now := s.now()
	it := Item{ID: uuid.NewString(), CreatedAt: now}
	applyInput(&it, input, now)
	if err := s.repo.InsertItem(ctx, it); err != nil {
		return Item{}, err
	}
	s.record(ctx, "showcase:create", it.ID)
	return it, nil
}

// Update replaces an item's fields. Photos dropped by the update are
// garbage-collected.
func (s *Service) Update(ctx context.Context, id string, input ItemInput) (Item, error) {
	if err := validateInput(input); err != nil {
		return Item{}, err
	}
	current, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	previousPhotos := current.Photos
	applyInput(&current, input, s.now())
	if err := s.repo.UpdateItem(ctx, current); err != nil {
		return Item{}, err
	}
	s.collectPhotos(ctx, removed(previousPhotos, current.Photos))
	s.record(ctx, "showcase:update", id)
	return current, nil
}

// Delete removes an item and the photos no other item references.
func (s *Service) Delete(ctx context.Context, id string) error {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.collectPhotos(ctx, it.Photos)
	s.record(ctx, "showcase:delete", id)
	return nil
}

// collectPhotos deletes unreferenced assets. Failures are logged only.
func (s *Service) collectPhotos(ctx context.Context, photos []string) {
	if s.assets == nil {
		return
	}
	for _, photo := range photos {
		refs, err := s.repo.CountPhotoReferences(ctx, photo)
		if err != nil {
			s.logger.Warn("count photo references", slog.String("photo", photo), slog.Any("error", err))
			continue
		}
		if refs > 0 {
			continue
		}
		if err := s.assets.Delete(ctx, photo); err != nil {
			s.logger.Warn("delete orphaned photo", slog.String("photo", photo), slog.Any("error", err))
		}
	}
}

func removed(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, p := range after {
		keep[p] = struct{}{}
	}
	var out []string
	for _, p := range before {
		if _, ok := keep[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func validateInput(input ItemInput) error {
	if err := shared.Validate(input); err != nil {
		return err
	}
	if input.Price.IsNegative() {
		return shared.NewValidationError("price", "must be at least 0")
	}
	if imei := strings.TrimSpace(input.IMEI); imei != "" && DigitsOnly(imei) == "" {
		return shared.NewValidationError("imei", "must contain digits")
	}
	return nil
}

func applyInput(it *Item, input ItemInput, now time.Time) {
	it.Type = strings.TrimSpace(input.Type)
	it.Brand = strings.TrimSpace(input.Brand)
	it.Model = strings.TrimSpace(input.Model)
	it.Storage = strings.TrimSpace(input.Storage)
	it.Price = *input.Price
	it.Color = strings.TrimSpace(input.Color)
	it.BatteryHealth = input.BatteryHealth
	it.Condition = input.Condition
	it.IMEI = strings.TrimSpace(input.IMEI)
	it.StockStatus = input.StockStatus
	if it.StockStatus == "" {
		it.StockStatus = StatusAvailable
	}
	it.Photos = input.Photos
	if it.Photos == nil {
		it.Photos = []string{}
	}
	it.Description = input.Description
	it.UpdatedAt = now
}

func (s *Service) record(ctx context.Context, action, id string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "showcase_item",
		EntityID: id,
	}); err != nil {
		s.logger.Warn("audit showcase item", slog.String("action", action), slog.String("item_id", id), slog.Any("error", err))
	}
}
