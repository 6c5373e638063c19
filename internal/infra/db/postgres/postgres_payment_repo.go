package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/manojnerkar/viep/internal/domain"
	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, plan_id, amount, currency, status, gateway, transaction_id, gateway_order_id,
       gateway_payment_id, gateway_signature, payment_method, failure_reason, paid_at, refunded_at,
       refund_reason, created_at, updated_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.PlanID, p.Amount, p.Currency, string(p.Status), p.Gateway, p.TransactionID, p.GatewayOrderID,
		p.GatewayPaymentID, p.GatewaySignature, p.PaymentMethod, p.FailureReason, p.PaidAt, p.RefundedAt,
		p.RefundReason, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return p, nil
}

// Transition writes t with a status compare-and-swap. The fields a
// transition does not own are left untouched.
func (r *paymentRepo) Transition(ctx context.Context, tx repository.Tx, id string, t model.PaymentTransition) (bool, error) {
	if !t.From.CanTransitionTo(t.To) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, t.From, t.To)
	}
	var (
		q    string
		args []interface{}
	)
	switch t.To {
	case model.PaymentStatusCompleted:
		q = `
UPDATE payments
   SET status = $3, gateway_payment_id = $4, gateway_signature = $5, transaction_id = $6,
       payment_method = $8, paid_at = $7, updated_at = $7
 WHERE id = $1 AND status = $2;`
		args = []interface{}{id, string(t.From), string(t.To), t.GatewayPaymentID, t.GatewaySignature, t.TransactionID, t.At, t.PaymentMethod}
	case model.PaymentStatusFailed:
		q = `
UPDATE payments
   SET status = $3, failure_reason = $4, updated_at = $5
 WHERE id = $1 AND status = $2;`
		args = []interface{}{id, string(t.From), string(t.To), t.Reason, t.At}
	case model.PaymentStatusRefunded:
		q = `
UPDATE payments
   SET status = $3, refund_reason = $4, refunded_at = $5, updated_at = $5
 WHERE id = $1 AND status = $2;`
		args = []interface{}{id, string(t.From), string(t.To), t.Reason, t.At}
	default:
		return false, domain.ErrInvalidArgument
	}

	cmd, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Payment, error) {
	return r.list(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE user_id=$1 ORDER BY created_at DESC;`, userID)
}

func (r *paymentRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(ctx, tx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC LIMIT $1;`, limit)
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 200
	}
	return r.list(ctx, tx, `
SELECT `+paymentColumns+`
  FROM payments
 WHERE status = 'pending' AND created_at < $1
 ORDER BY created_at
 LIMIT $2;`, cutoff, limit)
}

func (r *paymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, scanErr(err)
		}
		out = append(out, p)
	}
	return out, mapError(rows.Err())
}

func (r *paymentRepo) SumCompleted(ctx context.Context, tx repository.Tx) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COALESCE(SUM(amount),0) FROM payments WHERE status='completed';`)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, scanErr(err)
	}
	return sum, nil
}

func (r *paymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM payments GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.PaymentStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, scanErr(err)
		}
		out[model.PaymentStatus(status)] = n
	}
	return out, mapError(rows.Err())
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p      model.Payment
		status string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.Amount, &p.Currency, &status, &p.Gateway, &p.TransactionID,
		&p.GatewayOrderID, &p.GatewayPaymentID, &p.GatewaySignature, &p.PaymentMethod, &p.FailureReason,
		&p.PaidAt, &p.RefundedAt, &p.RefundReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
