package repository

import (
	"context"
	"time"

	"github.com/manojnerkar/viep/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	// FindByID locks the row (FOR UPDATE) when tx is a live transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// Transition applies t only if the stored status equals t.From.
	// It reports false when another writer changed the status first.
	Transition(ctx context.Context, tx Tx, id string, t model.PaymentTransition) (bool, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Payment, error)
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.Payment, error)
	// ListPendingOlderThan returns up to limit pending payments created before cutoff, oldest first.
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Payment, error)
	SumCompleted(ctx context.Context, tx Tx) (int64, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.PaymentStatus]int, error)
}
