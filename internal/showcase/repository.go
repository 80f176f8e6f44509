package showcase

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/db"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Repository persists showcase items in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, type, brand, model, storage, price, color, battery_health, condition,
	COALESCE(imei, ''), stock_status, photos, description, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	var condition, status string
	err := row.Scan(&it.ID, &it.Type, &it.Brand, &it.Model, &it.Storage, &it.Price, &it.Color, &it.BatteryHealth,
		&condition, &it.IMEI, &status, &it.Photos, &it.Description, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	it.Condition = Condition(condition)
	it.StockStatus = StockStatus(status)
	if it.Photos == nil {
		it.Photos = []string{}
	}
	return it, nil
}

func nullableIMEI(imei string) *string {
	if imei == "" {
		return nil
	}
	return &imei
}

func mapWriteError(err error, it Item) error {
	if err == nil {
		return nil
	}
	if constraint, ok := db.UniqueViolation(err); ok && strings.Contains(constraint, "imei") {
		return &shared.DuplicateKeyError{Field: "imei", Value: it.IMEI}
	}
	return fmt.Errorf("showcase: write item: %w", err)
}

// GetItem loads an item.
func (r *Repository) GetItem(ctx context.Context, id string) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM showcase_items WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Item{}, fmt.Errorf("showcase: item %q: %w", id, shared.ErrNotFound)
		}
		return Item{}, fmt.Errorf("showcase: get item: %w", err)
	}
	return it, nil
}

// ListItems returns a filtered page, newest first.
func (r *Repository) ListItems(ctx context.Context, filter Filter) ([]Item, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(type) = LOWER($%d)", argPos))
		args = append(args, filter.Type)
		argPos++
	}
	if filter.Brand != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(brand) = LOWER($%d)", argPos))
		args = append(args, filter.Brand)
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("stock_status = $%d", argPos))
		args = append(args, string(filter.Status))
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(model) LIKE $%d OR LOWER(brand) LIKE $%d OR LOWER(description) LIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		argPos++
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM showcase_items `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("showcase: count items: %w", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM showcase_items %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		itemColumns, whereClause, argPos, argPos+1)
	args = append(args, filter.Page.Limit, filter.Page.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("showcase: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// InsertItem stores a new item.
func (r *Repository) InsertItem(ctx context.Context, it Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO showcase_items (id, type, brand, model, storage, price, color, battery_health, condition,
			imei, stock_status, photos, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		it.ID, it.Type, it.Brand, it.Model, it.Storage, it.Price, it.Color, it.BatteryHealth, string(it.Condition),
		nullableIMEI(it.IMEI), string(it.StockStatus), it.Photos, it.Description, it.CreatedAt, it.UpdatedAt)
	return mapWriteError(err, it)
}

// UpdateItem overwrites every mutable column of an item.
func (r *Repository) UpdateItem(ctx context.Context, it Item) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE showcase_items SET type = $2, brand = $3, model = $4, storage = $5, price = $6, color = $7,
			battery_health = $8, condition = $9, imei = $10, stock_status = $11, photos = $12,
			description = $13, updated_at = $14
		WHERE id = $1`,
		it.ID, it.Type, it.Brand, it.Model, it.Storage, it.Price, it.Color,
		it.BatteryHealth, string(it.Condition), nullableIMEI(it.IMEI), string(it.StockStatus), it.Photos,
		it.Description, it.UpdatedAt)
	if err != nil {
		return mapWriteError(err, it)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("showcase: item %q: %w", it.ID, shared.ErrNotFound)
	}
	return nil
}

// DeleteItem removes an item.
func (r *Repository) DeleteItem(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM showcase_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("showcase: delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("showcase: item %q: %w", id, shared.ErrNotFound)
	}
	return nil
}

// FindByIMEI returns the item whose stored IMEI equals imei.
func (r *Repository) FindByIMEI(ctx context.Context, imei string) (Item, bool, error) {
	return r.findOne(ctx, `SELECT `+itemColumns+` FROM showcase_items WHERE imei = $1 LIMIT 1`, imei)
}

// FindByIMEIPattern returns the most recently updated item whose stored IMEI
// matches m.
func (r *Repository) FindByIMEIPattern(ctx context.Context, m Matcher) (Item, bool, error) {
	if m.IsZero() {
		return Item{}, false, nil
	}
	return r.findOne(ctx, `SELECT `+itemColumns+` FROM showcase_items WHERE imei ~ $1 ORDER BY updated_at DESC, id LIMIT 1`, m.String())
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (Item, bool, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if db.IsNoRows(err) {
			return Item{}, false, nil
		}
		return Item{}, false, fmt.Errorf("showcase: find item: %w", err)
	}
	return it, true, nil
}

// CountPhotoReferences counts items that still list photo.
func (r *Repository) CountPhotoReferences(ctx context.Context, photo string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM showcase_items WHERE $1 = ANY(photos)`, photo).Scan(&n)
	return n, err
}
