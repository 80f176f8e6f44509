package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformcache "github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/cache"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

type memoryRepo struct {
	mu         sync.Mutex
	brands     map[string]Brand
	devices    map[string]Device
	repairs    map[string]Repair
	types      map[string]ProductType
	brandReads int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		brands:  map[string]Brand{},
		devices: map[string]Device{},
		repairs: map[string]Repair{},
		types:   map[string]ProductType{},
	}
}

func (m *memoryRepo) ListBrands(context.Context) ([]Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brandReads++
	var out []Brand
	for _, b := range m.brands {
		out = append(out, b)
	}
	return out, nil
}

func (m *memoryRepo) GetBrandBySlug(_ context.Context, slug string) (Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.brands {
		if b.Slug == slug {
			return b, nil
		}
	}
	return Brand{}, fmt.Errorf("brand %q: %w", slug, shared.ErrNotFound)
}

func (m *memoryRepo) SaveBrand(_ context.Context, b Brand, create bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.brands {
		if other.Slug == b.Slug && other.ID != b.ID {
			return &shared.DuplicateKeyError{Field: "slug", Value: b.Slug}
		}
	}
	if _, ok := m.brands[b.ID]; !ok && !create {
		return fmt.Errorf("brand %q: %w", b.ID, shared.ErrNotFound)
	}
	m.brands[b.ID] = b
	return nil
}

func (m *memoryRepo) ListDevices(_ context.Context, brandID string) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Device
	for _, d := range m.devices {
		if d.BrandID == brandID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetDevice(_ context.Context, id string) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return Device{}, fmt.Errorf("device %q: %w", id, shared.ErrNotFound)
	}
	return d, nil
}

func (m *memoryRepo) SaveDevice(_ context.Context, d Device, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.brands[d.BrandID]; !ok {
		return shared.NewValidationError("brandId", "unknown brand")
	}
	m.devices[d.ID] = d
	return nil
}

func (m *memoryRepo) ListRepairs(_ context.Context, deviceID string) ([]Repair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Repair
	for _, r := range m.repairs {
		if r.DeviceID == deviceID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRepo) SaveRepair(_ context.Context, r Repair, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repairs[r.ID] = r
	return nil
}

func (m *memoryRepo) ListProductTypes(context.Context) ([]ProductType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ProductType
	for _, p := range m.types {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) SaveProductType(_ context.Context, p ProductType, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[p.ID] = p
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, entity Entity, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ok bool
	switch entity {
	case EntityBrand:
		_, ok = m.brands[id]
		delete(m.brands, id)
	case EntityDevice:
		_, ok = m.devices[id]
		delete(m.devices, id)
	case EntityRepair:
		_, ok = m.repairs[id]
		delete(m.repairs, id)
	case EntityProductType:
		_, ok = m.types[id]
		delete(m.types, id)
	}
	if !ok {
		return fmt.Errorf("%s %q: %w", entity, id, shared.ErrNotFound)
	}
	return nil
}

func newCachedService(t *testing.T) (*Service, *memoryRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepo()
	return NewService(repo, platformcache.NewVersioned(client, "catalog", time.Minute), nil, nil), repo, mr
}

func TestBrandsServedFromCacheUntilWrite(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	ctx := context.Background()

	_, err := svc.SaveBrand(ctx, "", BrandInput{Name: "Apple"})
	require.NoError(t, err)

	brands, err := svc.Brands(ctx)
	require.NoError(t, err)
	require.Len(t, brands, 1)
	_, err = svc.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.brandReads)

	_, err = svc.SaveBrand(ctx, "", BrandInput{Name: "Samsung"})
	require.NoError(t, err)
	brands, err = svc.Brands(ctx)
	require.NoError(t, err)
	assert.Len(t, brands, 2)
	assert.Equal(t, 2, repo.brandReads)
}

func TestDeleteInvalidatesCache(t *testing.T) {
	svc, _, _ := newCachedService(t)
	ctx := context.Background()

	b, err := svc.SaveBrand(ctx, "", BrandInput{Name: "Nokia"})
	require.NoError(t, err)
	brands, _ := svc.Brands(ctx)
	require.Len(t, brands, 1)

	require.NoError(t, svc.Delete(ctx, EntityBrand, b.ID))
	brands, err = svc.Brands(ctx)
	require.NoError(t, err)
	assert.Empty(t, brands)
	assert.NotNil(t, brands)

	assert.ErrorIs(t, svc.Delete(ctx, EntityBrand, b.ID), shared.ErrNotFound)
}

func TestSaveBrandDerivesSlugAndRejectsDuplicates(t *testing.T) {
	svc, _, _ := newCachedService(t)
	ctx := context.Background()

	b, err := svc.SaveBrand(ctx, "", BrandInput{Name: "  Google Pixel "})
	require.NoError(t, err)
	assert.Equal(t, "google-pixel", b.Slug)
	assert.Equal(t, "Google Pixel", b.Name)

	_, err = svc.SaveBrand(ctx, "", BrandInput{Name: "Google", Slug: "Google Pixel"})
	var dup *shared.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "slug", dup.Field)

	_, err = svc.SaveBrand(ctx, "", BrandInput{Name: "***"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "slug")

	_, err = svc.SaveBrand(ctx, "missing", BrandInput{Name: "Sony"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDevicesAndRepairsByParent(t *testing.T) {
	svc, _, _ := newCachedService(t)
	ctx := context.Background()

	apple, err := svc.SaveBrand(ctx, "", BrandInput{Name: "Apple"})
	require.NoError(t, err)
	iphone, err := svc.SaveDevice(ctx, "", DeviceInput{BrandID: apple.ID, Name: "iPhone 13"})
	require.NoError(t, err)
	price := decimal.RequireFromString("129.999")
	repair, err := svc.SaveRepair(ctx, "", RepairInput{DeviceID: iphone.ID, Name: "Scherm", Price: &price, DurationMin: 45})
	require.NoError(t, err)
	assert.Equal(t, "130", repair.Price.String())

	devices, err := svc.DevicesForBrand(ctx, "apple")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "iphone-13", devices[0].Slug)

	repairs, err := svc.RepairsForDevice(ctx, iphone.ID)
	require.NoError(t, err)
	require.Len(t, repairs, 1)

	_, err = svc.DevicesForBrand(ctx, "unknown")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.RepairsForDevice(ctx, "unknown")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.SaveDevice(ctx, "", DeviceInput{BrandID: "nope", Name: "Ghost"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "brandId")
}

func TestServiceWithoutCache(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.SaveProductType(ctx, "", ProductTypeInput{Name: "Tablet"})
	require.NoError(t, err)
	types, err := svc.ProductTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "tablet", types[0].Slug)
}

func TestHandlerRoutes(t *testing.T) {
	svc, _, _ := newCachedService(t)
	h := NewHandler(svc.logger, svc)
	r := chi.NewRouter()
	h.MountPublicRoutes(r)
	r.Route("/admin", h.MountAdminRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/catalog/brands", strings.NewReader(`{"name":"OnePlus"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slug":"oneplus"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/brands", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OnePlus")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/brands/unknown/devices", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/catalog/brands", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
