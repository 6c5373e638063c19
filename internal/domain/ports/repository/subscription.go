package repository

import (
	"context"
	"time"

	"github.com/manojnerkar/viep/internal/domain/model"
)

// SubscriptionRepository is the port for user subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Subscription, error)
	// FindActiveByUser returns the subscription whose status is active,
	// regardless of its end date, or domain.ErrNotFound.
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
	// Transition moves a subscription from -> to only if it is still in `from`.
	Transition(ctx context.Context, tx Tx, id string, from, to model.SubscriptionStatus, at time.Time, reason string) (bool, error)
	// Reschedule rewrites the window end and the end of the carried part.
	Reschedule(ctx context.Context, tx Tx, id string, end time.Time, carriedUntil *time.Time, at time.Time) error
	// ExpireDue marks active subscriptions whose end date is before now as expired.
	ExpireDue(ctx context.Context, tx Tx, now time.Time) (int, error)
	// LockUser serializes subscription writes for one user until tx ends.
	LockUser(ctx context.Context, tx Tx, userID string) error

	// --- Statistics read-only methods ---
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
