package invoices

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/db"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes performed while saving an invoice.
type TxRepository interface {
	GetInvoiceForUpdate(ctx context.Context, id string) (Invoice, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	ReplaceLines(ctx context.Context, invoiceID string, lines []Line) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const invoiceColumns = `id, number, type, invoice_date, customer_name, customer_email, customer_phone,
	customer_address, notes, total, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var typ string
	err := row.Scan(&inv.ID, &inv.Number, &typ, &inv.Date, &inv.Customer.Name, &inv.Customer.Email,
		&inv.Customer.Phone, &inv.Customer.Address, &inv.Notes, &inv.Total, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	inv.Type = Type(typ)
	return inv, nil
}

func (r *txRepo) GetInvoiceForUpdate(ctx context.Context, id string) (Invoice, error) {
	inv, err := scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Invoice{}, fmt.Errorf("invoices: invoice %q: %w", id, shared.ErrNotFound)
		}
		return Invoice{}, fmt.Errorf("invoices: lock invoice: %w", err)
	}
	return inv, nil
}

// InsertInvoice stores the header and returns the number drawn from
// invoice_number_seq.
func (r *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var number int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO invoices (id, type, invoice_date, customer_name, customer_email, customer_phone,
			customer_address, notes, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING number`,
		inv.ID, string(inv.Type), inv.Date, inv.Customer.Name, inv.Customer.Email, inv.Customer.Phone,
		inv.Customer.Address, inv.Notes, inv.Total, inv.CreatedAt, inv.UpdatedAt).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("invoices: insert invoice: %w", err)
	}
	return number, nil
}

func (r *txRepo) UpdateInvoice(ctx context.Context, inv Invoice) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE invoices SET type = $2, invoice_date = $3, customer_name = $4, customer_email = $5,
			customer_phone = $6, customer_address = $7, notes = $8, total = $9, updated_at = $10
		WHERE id = $1`,
		inv.ID, string(inv.Type), inv.Date, inv.Customer.Name, inv.Customer.Email, inv.Customer.Phone,
		inv.Customer.Address, inv.Notes, inv.Total, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("invoices: update invoice: %w", err)
	}
	return nil
}

func (r *txRepo) ReplaceLines(ctx context.Context, invoiceID string, lines []Line) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("invoices: clear lines: %w", err)
	}
	batch := &pgx.Batch{}
	for i, l := range lines {
		batch.Queue(`
			INSERT INTO invoice_lines (invoice_id, line_no, description, imei, model, price, condition, color, storage)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			invoiceID, i+1, l.Description, l.IMEI, l.Model, l.Price, l.Condition, l.Color, l.Storage)
	}
	if err := r.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("invoices: insert lines: %w", err)
	}
	return nil
}

// GetInvoice loads an invoice with its lines.
func (r *Repository) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Invoice{}, fmt.Errorf("invoices: invoice %q: %w", id, shared.ErrNotFound)
		}
		return Invoice{}, fmt.Errorf("invoices: get invoice: %w", err)
	}
	lines, err := r.loadLines(ctx, []string{id})
	if err != nil {
		return Invoice{}, err
	}
	inv.Lines = nonNilLines(lines[id])
	return inv, nil
}

// ListInvoices returns a filtered page, highest number first.
func (r *Repository) ListInvoices(ctx context.Context, filter Filter) ([]Invoice, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, string(filter.Type))
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`(LOWER(customer_name) LIKE $%d OR id IN
			(SELECT invoice_id FROM invoice_lines WHERE LOWER(description) LIKE $%d OR imei LIKE $%d))`, argPos, argPos, argPos))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		argPos++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("invoice_date >= $%d", argPos))
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("invoice_date <= $%d", argPos))
		args = append(args, *filter.To)
		argPos++
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("invoices: count invoices: %w", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY number DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, whereClause, argPos, argPos+1)
	args = append(args, filter.Page.Limit, filter.Page.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoices: list invoices: %w", err)
	}
	var list []Invoice
	var ids []string
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		list = append(list, inv)
		ids = append(ids, inv.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return list, total, nil
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		list[i].Lines = nonNilLines(lines[list[i].ID])
	}
	return list, total, nil
}

func (r *Repository) loadLines(ctx context.Context, ids []string) (map[string][]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT invoice_id, description, imei, model, price, condition, color, storage
		FROM invoice_lines WHERE invoice_id = ANY($1) ORDER BY invoice_id, line_no`, ids)
	if err != nil {
		return nil, fmt.Errorf("invoices: load lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Line, len(ids))
	for rows.Next() {
		var id string
		var l Line
		if err := rows.Scan(&id, &l.Description, &l.IMEI, &l.Model, &l.Price, &l.Condition, &l.Color, &l.Storage); err != nil {
			return nil, err
		}
		out[id] = append(out[id], l)
	}
	return out, rows.Err()
}

// DeleteInvoice removes an invoice; lines cascade.
func (r *Repository) DeleteInvoice(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("invoices: delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoices: invoice %q: %w", id, shared.ErrNotFound)
	}
	return nil
}

func nonNilLines(lines []Line) []Line {
	if lines == nil {
		return []Line{}
	}
	return lines
}
