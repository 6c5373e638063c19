package usecase

import (
	"context"
	"time"
)

// SubscriptionExpirer defines the subscription operation needed by background workers.
type SubscriptionExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// StalePaymentFailer closes checkouts that were never confirmed.
type StalePaymentFailer interface {
	FailStale(ctx context.Context, cutoff time.Time) (int, error)
}
