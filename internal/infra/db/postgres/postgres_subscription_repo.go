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

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, payment_id, status, start_date, end_date, auto_renew,
       cancelled_at, cancel_reason, carried_from_id, carried_until, created_at, updated_at`

// Save inserts a subscription. The partial unique index on active rows
// surfaces a second active subscription as domain.ErrDuplicateKey.
func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PlanID, s.PaymentID, string(s.Status), s.StartDate, s.EndDate, s.AutoRenew,
		s.CancelledAt, s.CancelReason, s.CarriedFromID, s.CarriedUntil, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	return r.queryOne(ctx, tx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id=$1;`, id)
}

func (r *subscriptionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Subscription, error) {
	return r.queryOne(ctx, tx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE payment_id=$1;`, paymentID)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1 AND status='active' LIMIT 1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	return r.queryOne(ctx, tx, q+";", userID)
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id=$1 ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, scanErr(err)
		}
		out = append(out, s)
	}
	return out, mapError(rows.Err())
}

func (r *subscriptionRepo) Transition(ctx context.Context, tx repository.Tx, id string, from, to model.SubscriptionStatus, at time.Time, reason string) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, from, to)
	}
	q := `UPDATE subscriptions SET status=$3, updated_at=$4 WHERE id=$1 AND status=$2;`
	args := []interface{}{id, string(from), string(to), at}
	if to == model.SubscriptionStatusCancelled {
		q = `UPDATE subscriptions SET status=$3, updated_at=$4, cancelled_at=$4, cancel_reason=$5 WHERE id=$1 AND status=$2;`
		args = append(args, reason)
	}
	cmd, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) Reschedule(ctx context.Context, tx repository.Tx, id string, end time.Time, carriedUntil *time.Time, at time.Time) error {
	const q = `UPDATE subscriptions SET end_date=$2, carried_until=$3, updated_at=$4 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, end, carriedUntil, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `UPDATE subscriptions SET status='expired', updated_at=$1 WHERE status='active' AND end_date < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

// LockUser takes a transaction-scoped advisory lock keyed by the user id.
// Outside a transaction there is nothing to hold the lock, so it is a no-op.
func (r *subscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	if !inTx(tx) {
		return nil
	}
	_, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1);`, lockKey("subscriptions:"+userID))
	return err
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM subscriptions GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.SubscriptionStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, scanErr(err)
		}
		out[model.SubscriptionStatus(status)] = n
	}
	return out, mapError(rows.Err())
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	s, err := scanSubscription(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return s, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var (
		s      model.Subscription
		status string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PaymentID, &status, &s.StartDate, &s.EndDate, &s.AutoRenew,
		&s.CancelledAt, &s.CancelReason, &s.CarriedFromID, &s.CarriedUntil, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = model.SubscriptionStatus(status)
	return &s, nil
}
