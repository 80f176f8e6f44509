package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/inventory"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/db"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Repository provides PostgreSQL backed persistence for sales.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository extends the inventory statements with the sale ones so stock,
// ledger, alerts and the receipt commit together.
type TxRepository interface {
	inventory.TxRepository
	CountSalesBetween(ctx context.Context, from, to time.Time) (int, error)
	InsertSale(ctx context.Context, sale Sale) error
}

type txRepo struct {
	inventory.TxRepository
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{TxRepository: inventory.NewTxRepository(tx), tx: tx})
	})
}

func (r *txRepo) CountSalesBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE created_at >= $1 AND created_at < $2`, from, to).Scan(&n)
	return n, err
}

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO sales (id, sale_number, subtotal, discount, tax, total, payment_method, payment_status,
			customer_name, customer_phone, customer_email, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sale.ID, sale.Number, sale.Subtotal, sale.Discount, sale.Tax, sale.Total,
		string(sale.PaymentMethod), string(sale.PaymentStatus),
		sale.Customer.Name, sale.Customer.Phone, sale.Customer.Email, sale.Notes, sale.CreatedAt)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			// A concurrent sale took the same daily sequence number.
			return &shared.TransactionError{Op: "sales: sale number " + sale.Number + " taken", Err: err}
		}
		return err
	}
	for i, line := range sale.Lines {
		_, err := r.tx.Exec(ctx, `
			INSERT INTO sale_lines (sale_id, line_no, product_id, product_name, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sale.ID, i+1, line.ProductID, line.ProductName, line.Quantity, line.UnitPrice, line.LineTotal)
		if err != nil {
			return fmt.Errorf("insert sale line %d: %w", i+1, err)
		}
	}
	return nil
}

const saleColumns = `id, sale_number, subtotal, discount, tax, total, payment_method, payment_status,
	customer_name, customer_phone, customer_email, notes, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var method, status string
	err := row.Scan(&s.ID, &s.Number, &s.Subtotal, &s.Discount, &s.Tax, &s.Total, &method, &status,
		&s.Customer.Name, &s.Customer.Phone, &s.Customer.Email, &s.Notes, &s.CreatedAt)
	if err != nil {
		return Sale{}, err
	}
	s.PaymentMethod = PaymentMethod(method)
	s.PaymentStatus = PaymentStatus(status)
	return s, nil
}

// GetSaleByNumber loads a sale with its lines.
func (r *Repository) GetSaleByNumber(ctx context.Context, number string) (Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE sale_number = $1`, number))
	if err != nil {
		if db.IsNoRows(err) {
			return Sale{}, fmt.Errorf("sales: sale %q: %w", number, shared.ErrNotFound)
		}
		return Sale{}, fmt.Errorf("sales: get sale: %w", err)
	}
	lines, err := r.loadLines(ctx, []string{sale.ID})
	if err != nil {
		return Sale{}, err
	}
	sale.Lines = lines[sale.ID]
	return sale, nil
}

// ListSales returns sales newest first with their lines.
func (r *Repository) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1
	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, filter.From)
		argPos++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argPos))
		args = append(args, filter.To)
		argPos++
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sales: count sales: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM sales %s ORDER BY created_at DESC, sale_number DESC LIMIT $%d OFFSET $%d`,
		saleColumns, whereClause, argPos, argPos+1)
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sales: list sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	var ids []string
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range sales {
		sales[i].Lines = lines[sales[i].ID]
	}
	return sales, total, nil
}

func (r *Repository) loadLines(ctx context.Context, saleIDs []string) (map[string][]Line, error) {
	out := make(map[string][]Line, len(saleIDs))
	if len(saleIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT sale_id, product_id, product_name, quantity, unit_price, line_total
		FROM sale_lines
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, line_no`, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("sales: load lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var saleID string
		var l Line
		if err := rows.Scan(&saleID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return nil, err
		}
		out[saleID] = append(out[saleID], l)
	}
	return out, rows.Err()
}
