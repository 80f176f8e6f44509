package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/db"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func mapWriteError(err error, entity, slug string) error {
	if err == nil {
		return nil
	}
	if _, ok := db.UniqueViolation(err); ok {
		return &shared.DuplicateKeyError{Field: "slug", Value: slug}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		switch entity {
		case "device":
			return shared.NewValidationError("brandId", "unknown brand")
		case "repair":
			return shared.NewValidationError("deviceId", "unknown device")
		}
	}
	return fmt.Errorf("catalog: write %s: %w", entity, err)
}

func notFound(entity, key string) error {
	return fmt.Errorf("catalog: %s %q: %w", entity, key, shared.ErrNotFound)
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanBrand(row pgx.Row) (Brand, error) {
	var b Brand
	err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.LogoURL, &b.SortOrder, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func scanDevice(row pgx.Row) (Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.BrandID, &d.Name, &d.Slug, &d.ImageURL, &d.SortOrder, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func scanRepair(row pgx.Row) (Repair, error) {
	var r Repair
	err := row.Scan(&r.ID, &r.DeviceID, &r.Name, &r.Price, &r.DurationMin, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func scanProductType(row pgx.Row) (ProductType, error) {
	var p ProductType
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.CreatedAt)
	return p, err
}

const (
	brandColumns  = `id, name, slug, logo_url, sort_order, created_at, updated_at`
	deviceColumns = `id, brand_id, name, slug, image_url, sort_order, created_at, updated_at`
	repairColumns = `id, device_id, name, price, duration_min, description, created_at, updated_at`
)

// ListBrands returns brands in display order.
func (r *Repository) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+brandColumns+` FROM brands ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list brands: %w", err)
	}
	return collect(rows, scanBrand)
}

// GetBrandBySlug resolves a brand from its URL slug.
func (r *Repository) GetBrandBySlug(ctx context.Context, slug string) (Brand, error) {
	b, err := scanBrand(r.pool.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands WHERE slug = $1`, slug))
	if err != nil {
		if db.IsNoRows(err) {
			return Brand{}, notFound("brand", slug)
		}
		return Brand{}, fmt.Errorf("catalog: get brand: %w", err)
	}
	return b, nil
}

// SaveBrand inserts a brand, or replaces an existing one when create is false.
func (r *Repository) SaveBrand(ctx context.Context, b Brand, create bool) error {
	if create {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO brands (id, name, slug, logo_url, sort_order, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			b.ID, b.Name, b.Slug, b.LogoURL, b.SortOrder, b.CreatedAt, b.UpdatedAt)
		return mapWriteError(err, "brand", b.Slug)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE brands SET name = $2, slug = $3, logo_url = $4, sort_order = $5, updated_at = $6 WHERE id = $1`,
		b.ID, b.Name, b.Slug, b.LogoURL, b.SortOrder, b.UpdatedAt)
	return updated(tag, mapWriteError(err, "brand", b.Slug), "brand", b.ID)
}

func updated(tag pgconn.CommandTag, err error, entity, id string) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(entity, id)
	}
	return nil
}

// ListDevices returns the devices of a brand in display order.
func (r *Repository) ListDevices(ctx context.Context, brandID string) ([]Device, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+deviceColumns+` FROM devices WHERE brand_id = $1 ORDER BY sort_order, name`, brandID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list devices: %w", err)
	}
	return collect(rows, scanDevice)
}

// GetDevice loads a device.
func (r *Repository) GetDevice(ctx context.Context, id string) (Device, error) {
	d, err := scanDevice(r.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Device{}, notFound("device", id)
		}
		return Device{}, fmt.Errorf("catalog: get device: %w", err)
	}
	return d, nil
}

// SaveDevice inserts a device, or replaces an existing one when create is false.
func (r *Repository) SaveDevice(ctx context.Context, d Device, create bool) error {
	if create {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO devices (id, brand_id, name, slug, image_url, sort_order, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			d.ID, d.BrandID, d.Name, d.Slug, d.ImageURL, d.SortOrder, d.CreatedAt, d.UpdatedAt)
		return mapWriteError(err, "device", d.Slug)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE devices SET brand_id = $2, name = $3, slug = $4, image_url = $5, sort_order = $6, updated_at = $7
		WHERE id = $1`,
		d.ID, d.BrandID, d.Name, d.Slug, d.ImageURL, d.SortOrder, d.UpdatedAt)
	return updated(tag, mapWriteError(err, "device", d.Slug), "device", d.ID)
}

// ListRepairs returns the repairs offered for a device, cheapest first.
func (r *Repository) ListRepairs(ctx context.Context, deviceID string) ([]Repair, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+repairColumns+` FROM repairs WHERE device_id = $1 ORDER BY price, name`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list repairs: %w", err)
	}
	return collect(rows, scanRepair)
}

// SaveRepair inserts a repair, or replaces an existing one when create is false.
func (r *Repository) SaveRepair(ctx context.Context, rp Repair, create bool) error {
	if create {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO repairs (id, device_id, name, price, duration_min, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rp.ID, rp.DeviceID, rp.Name, rp.Price, rp.DurationMin, rp.Description, rp.CreatedAt, rp.UpdatedAt)
		return mapWriteError(err, "repair", "")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE repairs SET device_id = $2, name = $3, price = $4, duration_min = $5, description = $6, updated_at = $7
		WHERE id = $1`,
		rp.ID, rp.DeviceID, rp.Name, rp.Price, rp.DurationMin, rp.Description, rp.UpdatedAt)
	return updated(tag, mapWriteError(err, "repair", ""), "repair", rp.ID)
}

// ListProductTypes returns every product type by name.
func (r *Repository) ListProductTypes(ctx context.Context) ([]ProductType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug, created_at FROM product_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list product types: %w", err)
	}
	return collect(rows, scanProductType)
}

// SaveProductType inserts a product type, or renames an existing one when
// create is false.
func (r *Repository) SaveProductType(ctx context.Context, p ProductType, create bool) error {
	if create {
		_, err := r.pool.Exec(ctx, `INSERT INTO product_types (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
			p.ID, p.Name, p.Slug, p.CreatedAt)
		return mapWriteError(err, "product type", p.Slug)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE product_types SET name = $2, slug = $3 WHERE id = $1`, p.ID, p.Name, p.Slug)
	return updated(tag, mapWriteError(err, "product type", p.Slug), "product type", p.ID)
}

var deleteStatements = map[Entity]string{
	EntityBrand:       `DELETE FROM brands WHERE id = $1`,
	EntityDevice:      `DELETE FROM devices WHERE id = $1`,
	EntityRepair:      `DELETE FROM repairs WHERE id = $1`,
	EntityProductType: `DELETE FROM product_types WHERE id = $1`,
}

// Delete removes one catalog row. Brands cascade to devices and repairs.
func (r *Repository) Delete(ctx context.Context, entity Entity, id string) error {
	stmt, ok := deleteStatements[entity]
	if !ok {
		return fmt.Errorf("catalog: unknown entity %q", entity)
	}
	tag, err := r.pool.Exec(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", entity, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(string(entity), id)
	}
	return nil
}
