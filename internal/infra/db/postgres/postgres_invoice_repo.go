package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/manojnerkar/viep/internal/domain"
	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct{ pool *pgxpool.Pool }

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

const invoiceColumns = `id, invoice_number, user_id, payment_id, items, subtotal, tax, total, currency, generated_at, created_at`

// NextNumber draws from invoice_number_seq. Sequence values are never
// handed out twice, even across rolled back transactions.
func (r *invoiceRepo) NextNumber(ctx context.Context, tx repository.Tx) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT nextval('invoice_number_seq');`)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, scanErr(err)
	}
	return n, nil
}

func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("%w: encode invoice items: %v", domain.ErrInvalidArgument, err)
	}
	const q = `INSERT INTO invoices (` + invoiceColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	_, err = execSQL(ctx, r.pool, tx, q,
		inv.ID, inv.InvoiceNumber, inv.UserID, inv.PaymentID, items, inv.Subtotal, inv.Tax, inv.Total,
		inv.Currency, inv.GeneratedAt, inv.CreatedAt,
	)
	return err
}

func (r *invoiceRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Invoice, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+invoiceColumns+` FROM invoices WHERE payment_id=$1;`, paymentID)
	if err != nil {
		return nil, err
	}
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return inv, nil
}

func (r *invoiceRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Invoice, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+invoiceColumns+` FROM invoices WHERE user_id=$1 ORDER BY generated_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, scanErr(err)
		}
		out = append(out, inv)
	}
	return out, mapError(rows.Err())
}

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var (
		inv   model.Invoice
		items []byte
	)
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.UserID, &inv.PaymentID, &items, &inv.Subtotal, &inv.Tax,
		&inv.Total, &inv.Currency, &inv.GeneratedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return nil, err
	}
	return &inv, nil
}
