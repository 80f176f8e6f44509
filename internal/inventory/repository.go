package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/db"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AlertStore is the part of a transaction the alert engine writes through.
type AlertStore interface {
	FindOpenAlert(ctx context.Context, productID string) (StockAlert, bool, error)
	InsertAlert(ctx context.Context, alert StockAlert) error
	RefreshAlert(ctx context.Context, id string, kind AlertKind, currentStock int) error
	ResolveOpenAlerts(ctx context.Context, productID string, at time.Time) (int64, error)
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	AlertStore
	GetProductForUpdate(ctx context.Context, id string) (Product, error)
	SetProductStock(ctx context.Context, id string, stock int, at time.Time) error
	InsertMutation(ctx context.Context, m StockMutation) error
	InsertProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	ResolveAlert(ctx context.Context, id string, at time.Time) (StockAlert, bool, error)
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository binds the inventory statements to an open transaction so
// other modules can compose ledger writes into their own unit of work.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

const productColumns = `id, name, category, device_id, barcode, purchase_price, sale_price,
	stock, min_stock, max_stock, is_active, created_at, updated_at`

const alertColumns = `id, product_id, kind, current_stock, min_stock, is_resolved, resolved_at, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var category string
	err := row.Scan(&p.ID, &p.Name, &category, &p.DeviceID, &p.Barcode, &p.PurchasePrice, &p.SalePrice,
		&p.Stock, &p.MinStock, &p.MaxStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Category = Category(category)
	return p, nil
}

func scanAlert(row pgx.Row) (StockAlert, error) {
	var a StockAlert
	var kind string
	if err := row.Scan(&a.ID, &a.ProductID, &kind, &a.CurrentStock, &a.MinStock, &a.IsResolved, &a.ResolvedAt, &a.CreatedAt); err != nil {
		return StockAlert{}, err
	}
	a.Kind = AlertKind(kind)
	return a, nil
}

// GetProduct loads a product by id.
func (r *Repository) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Product{}, &shared.ProductNotFoundError{ProductID: id}
		}
		return Product{}, fmt.Errorf("inventory: get product: %w", err)
	}
	return p, nil
}

// ListProducts returns a filtered page of products and the total match count.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argPos))
		args = append(args, string(filter.Category))
		argPos++
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active")
	}
	if filter.LowStock {
		conditions = append(conditions, "stock <= min_stock")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(COALESCE(barcode, '')) LIKE $%d)", argPos, argPos))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argPos, argPos+1)
	args = append(args, filter.Page.Limit, filter.Page.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// DeleteProduct removes a product without sales history.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.NewValidationError("id", "product has sales history, deactivate it instead")
		}
		return fmt.Errorf("inventory: delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.ProductNotFoundError{ProductID: id}
	}
	return nil
}

// ListMutations returns the ledger of a product, newest first.
func (r *Repository) ListMutations(ctx context.Context, productID string, page shared.Page) ([]StockMutation, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_mutations WHERE product_id = $1`, productID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count mutations: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, kind, quantity, previous_stock, new_stock, unit_cost, notes, reference, created_at
		FROM stock_mutations
		WHERE product_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, productID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: list mutations: %w", err)
	}
	defer rows.Close()

	var mutations []StockMutation
	for rows.Next() {
		var m StockMutation
		var kind string
		var cost decimal.NullDecimal
		if err := rows.Scan(&m.ID, &m.ProductID, &kind, &m.Quantity, &m.PreviousStock, &m.NewStock, &cost, &m.Notes, &m.Reference, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		m.Kind = MutationKind(kind)
		if cost.Valid {
			c := cost.Decimal
			m.UnitCost = &c
		}
		mutations = append(mutations, m)
	}
	return mutations, total, rows.Err()
}

// ListAlerts returns alerts, open ones first.
func (r *Repository) ListAlerts(ctx context.Context, filter AlertFilter) ([]StockAlert, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1
	if filter.ProductID != "" {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", argPos))
		args = append(args, filter.ProductID)
		argPos++
	}
	if filter.Unresolved {
		conditions = append(conditions, "NOT is_resolved")
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_alerts `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count alerts: %w", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM stock_alerts %s ORDER BY is_resolved, created_at DESC LIMIT $%d OFFSET $%d`,
		alertColumns, whereClause, argPos, argPos+1)
	args = append(args, filter.Page.Limit, filter.Page.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []StockAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, a)
	}
	return alerts, total, rows.Err()
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Product{}, &shared.ProductNotFoundError{ProductID: id}
		}
		return Product{}, err
	}
	return p, nil
}

func (r *txRepo) SetProductStock(ctx context.Context, id string, stock int, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET stock = $2, updated_at = $3 WHERE id = $1`, id, stock, at)
	return err
}

func (r *txRepo) InsertMutation(ctx context.Context, m StockMutation) error {
	var cost decimal.NullDecimal
	if m.UnitCost != nil {
		cost = decimal.NewNullDecimal(*m.UnitCost)
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO stock_mutations (id, product_id, kind, quantity, previous_stock, new_stock, unit_cost, notes, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.ProductID, string(m.Kind), m.Quantity, m.PreviousStock, m.NewStock, cost, m.Notes, m.Reference, m.CreatedAt)
	return err
}

func (r *txRepo) InsertProduct(ctx context.Context, p Product) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO products (id, name, category, device_id, barcode, purchase_price, sale_price,
			stock, min_stock, max_stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.Name, string(p.Category), p.DeviceID, p.Barcode, p.PurchasePrice, p.SalePrice,
		p.Stock, p.MinStock, p.MaxStock, p.IsActive, p.CreatedAt, p.UpdatedAt)
	return mapProductWriteError(err, p)
}

func (r *txRepo) UpdateProduct(ctx context.Context, p Product) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE products SET name = $2, category = $3, device_id = $4, barcode = $5, purchase_price = $6,
			sale_price = $7, min_stock = $8, max_stock = $9, is_active = $10, updated_at = $11
		WHERE id = $1`,
		p.ID, p.Name, string(p.Category), p.DeviceID, p.Barcode, p.PurchasePrice,
		p.SalePrice, p.MinStock, p.MaxStock, p.IsActive, p.UpdatedAt)
	return mapProductWriteError(err, p)
}

func mapProductWriteError(err error, p Product) error {
	if err == nil {
		return nil
	}
	if constraint, ok := db.UniqueViolation(err); ok && strings.Contains(constraint, "barcode") {
		value := ""
		if p.Barcode != nil {
			value = *p.Barcode
		}
		return &shared.DuplicateKeyError{Field: "barcode", Value: value}
	}
	return err
}

func (r *txRepo) FindOpenAlert(ctx context.Context, productID string) (StockAlert, bool, error) {
	a, err := scanAlert(r.tx.QueryRow(ctx, `SELECT `+alertColumns+` FROM stock_alerts WHERE product_id = $1 AND NOT is_resolved LIMIT 1`, productID))
	if err != nil {
		if db.IsNoRows(err) {
			return StockAlert{}, false, nil
		}
		return StockAlert{}, false, err
	}
	return a, true, nil
}

func (r *txRepo) InsertAlert(ctx context.Context, a StockAlert) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO stock_alerts (id, product_id, kind, current_stock, min_stock, is_resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)`,
		a.ID, a.ProductID, string(a.Kind), a.CurrentStock, a.MinStock, a.CreatedAt)
	return err
}

func (r *txRepo) RefreshAlert(ctx context.Context, id string, kind AlertKind, currentStock int) error {
	_, err := r.tx.Exec(ctx, `UPDATE stock_alerts SET kind = $2, current_stock = $3 WHERE id = $1 AND NOT is_resolved`, id, string(kind), currentStock)
	return err
}

func (r *txRepo) ResolveOpenAlerts(ctx context.Context, productID string, at time.Time) (int64, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_alerts SET is_resolved = TRUE, resolved_at = $2 WHERE product_id = $1 AND NOT is_resolved`, productID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *txRepo) ResolveAlert(ctx context.Context, id string, at time.Time) (StockAlert, bool, error) {
	a, err := scanAlert(r.tx.QueryRow(ctx, `SELECT `+alertColumns+` FROM stock_alerts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return StockAlert{}, false, fmt.Errorf("inventory: alert %q: %w", id, shared.ErrNotFound)
		}
		return StockAlert{}, false, err
	}
	if a.IsResolved {
		return a, false, nil
	}
	if _, err := r.tx.Exec(ctx, `UPDATE stock_alerts SET is_resolved = TRUE, resolved_at = $2 WHERE id = $1`, id, at); err != nil {
		return StockAlert{}, false, err
	}
	a.IsResolved = true
	a.ResolvedAt = &at
	return a, true, nil
}
