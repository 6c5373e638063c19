package repository

import (
	"context"

	"github.com/manojnerkar/viep/internal/domain/model"
)

// PlanRepository is the port for the plan catalog.
type PlanRepository interface {
	// Save inserts or updates a plan; a duplicate name yields domain.ErrDuplicateKey.
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	// ListActive returns active plans ordered by display order.
	ListActive(ctx context.Context, tx Tx) ([]*model.Plan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Plan, error)
}
