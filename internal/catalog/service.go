package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	platformcache "github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/cache"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListBrands(ctx context.Context) ([]Brand, error)
	GetBrandBySlug(ctx context.Context, slug string) (Brand, error)
	SaveBrand(ctx context.Context, b Brand, create bool) error
	ListDevices(ctx context.Context, brandID string) ([]Device, error)
	GetDevice(ctx context.Context, id string) (Device, error)
	SaveDevice(ctx context.Context, d Device, create bool) error
	ListRepairs(ctx context.Context, deviceID string) ([]Repair, error)
	SaveRepair(ctx context.Context, r Repair, create bool) error
	ListProductTypes(ctx context.Context) ([]ProductType, error)
	SaveProductType(ctx context.Context, p ProductType, create bool) error
	Delete(ctx context.Context, entity Entity, id string) error
}

// CachePort is the versioned read-through cache in front of public reads.
type CachePort interface {
	FetchJSON(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error
	Bump(ctx context.Context) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements catalog reads and admin writes.
type Service struct {
	repo   RepositoryPort
	cache  CachePort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service. cache may be nil.
func NewService(repo RepositoryPort, cache CachePort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = platformcache.NewVersioned(nil, "catalog", 0)
	}
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	return s.cache.FetchJSON(ctx, dest, loader, parts...)
}

// Brands lists every brand.
func (s *Service) Brands(ctx context.Context) ([]Brand, error) {
	var out []Brand
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.ListBrands(ctx)
	}, "brands")
	return nonNil(out), err
}

// DevicesForBrand lists the devices of the brand with the given slug.
func (s *Service) DevicesForBrand(ctx context.Context, brandSlug string) ([]Device, error) {
	var out []Device
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		b, err := s.repo.GetBrandBySlug(ctx, brandSlug)
		if err != nil {
			return nil, err
		}
		return s.repo.ListDevices(ctx, b.ID)
	}, "devices", brandSlug)
	return nonNil(out), err
}

// RepairsForDevice lists the repairs offered for a device.
func (s *Service) RepairsForDevice(ctx context.Context, deviceID string) ([]Repair, error) {
	var out []Repair
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		if _, err := s.repo.GetDevice(ctx, deviceID); err != nil {
			return nil, err
		}
		return s.repo.ListRepairs(ctx, deviceID)
	}, "repairs", deviceID)
	return nonNil(out), err
}

// ProductTypes lists every product type.
func (s *Service) ProductTypes(ctx context.Context) ([]ProductType, error) {
	var out []ProductType
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.ListProductTypes(ctx)
	}, "product-types")
	return nonNil(out), err
}

// SaveBrand creates a brand when id is empty, otherwise replaces it.
func (s *Service) SaveBrand(ctx context.Context, id string, in BrandInput) (Brand, error) {
	if err := shared.Validate(in); err != nil {
		return Brand{}, err
	}
	slug, err := slugFor(in.Slug, in.Name)
	if err != nil {
		return Brand{}, err
	}
	now := s.now()
	b := Brand{ID: id, Name: strings.TrimSpace(in.Name), Slug: slug, LogoURL: strings.TrimSpace(in.LogoURL),
		SortOrder: in.SortOrder, CreatedAt: now, UpdatedAt: now}
	create := id == ""
	if create {
		b.ID = uuid.NewString()
	}
	if err := s.repo.SaveBrand(ctx, b, create); err != nil {
		return Brand{}, err
	}
	s.changed(ctx, EntityBrand, b.ID, create)
	return b, nil
}

// SaveDevice creates a device when id is empty, otherwise replaces it.
func (s *Service) SaveDevice(ctx context.Context, id string, in DeviceInput) (Device, error) {
	if err := shared.Validate(in); err != nil {
		return Device{}, err
	}
	slug, err := slugFor(in.Slug, in.Name)
	if err != nil {
		return Device{}, err
	}
	now := s.now()
	d := Device{ID: id, BrandID: in.BrandID, Name: strings.TrimSpace(in.Name), Slug: slug,
		ImageURL: strings.TrimSpace(in.ImageURL), SortOrder: in.SortOrder, CreatedAt: now, UpdatedAt: now}
	create := id == ""
	if create {
		d.ID = uuid.NewString()
	}
	if err := s.repo.SaveDevice(ctx, d, create); err != nil {
		return Device{}, err
	}
	s.changed(ctx, EntityDevice, d.ID, create)
	return d, nil
}

// SaveRepair creates a repair when id is empty, otherwise replaces it.
func (s *Service) SaveRepair(ctx context.Context, id string, in RepairInput) (Repair, error) {
	if err := shared.Validate(in); err != nil {
		return Repair{}, err
	}
	if in.Price.IsNegative() {
		return Repair{}, shared.NewValidationError("price", "must be at least 0")
	}
	now := s.now()
	rp := Repair{ID: id, DeviceID: in.DeviceID, Name: strings.TrimSpace(in.Name), Price: in.Price.Round(2),
		DurationMin: in.DurationMin, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	create := id == ""
	if create {
		rp.ID = uuid.NewString()
	}
	if err := s.repo.SaveRepair(ctx, rp, create); err != nil {
		return Repair{}, err
	}
	s.changed(ctx, EntityRepair, rp.ID, create)
	return rp, nil
}

// SaveProductType creates a product type when id is empty, otherwise renames it.
func (s *Service) SaveProductType(ctx context.Context, id string, in ProductTypeInput) (ProductType, error) {
	if err := shared.Validate(in); err != nil {
		return ProductType{}, err
	}
	slug, err := slugFor(in.Slug, in.Name)
	if err != nil {
		return ProductType{}, err
	}
	p := ProductType{ID: id, Name: strings.TrimSpace(in.Name), Slug: slug, CreatedAt: s.now()}
	create := id == ""
	if create {
		p.ID = uuid.NewString()
	}
	if err := s.repo.SaveProductType(ctx, p, create); err != nil {
		return ProductType{}, err
	}
	s.changed(ctx, EntityProductType, p.ID, create)
	return p, nil
}

// Delete removes a catalog row.
func (s *Service) Delete(ctx context.Context, entity Entity, id string) error {
	if err := s.repo.Delete(ctx, entity, id); err != nil {
		return err
	}
	s.bump(ctx)
	s.record(ctx, string(entity)+":delete", entity, id)
	return nil
}

func (s *Service) changed(ctx context.Context, entity Entity, id string, create bool) {
	s.bump(ctx)
	action := ":update"
	if create {
		action = ":create"
	}
	s.record(ctx, string(entity)+action, entity, id)
}

// bump invalidates public reads. A failed bump leaves stale entries until TTL.
func (s *Service) bump(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("catalog cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, action string, entity Entity, id string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   strings.ReplaceAll(action, " ", "_"),
		Entity:   strings.ReplaceAll(string(entity), " ", "_"),
		EntityID: id,
	}); err != nil {
		s.logger.Warn("audit catalog", slog.String("action", action), slog.String("entity_id", id), slog.Any("error", err))
	}
}

func slugFor(explicit, name string) (string, error) {
	slug := Slugify(explicit)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return "", shared.NewValidationError("slug", "must contain letters or digits")
	}
	return slug, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
