package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/domain/ports/repository"
	"github.com/manojnerkar/viep/internal/infra/logging"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase manages the plan catalog.
type PlanUseCase interface {
	ListActive(ctx context.Context) ([]*model.Plan, error)
	ListAll(ctx context.Context) ([]*model.Plan, error)
	Get(ctx context.Context, id string) (*model.Plan, error)
	Create(ctx context.Context, in model.PlanInput) (*model.Plan, error)
	Update(ctx context.Context, id string, in model.PlanInput) (*model.Plan, error)
}

type planUC struct {
	plans repository.PlanRepository
	log   *zerolog.Logger
}

// NewPlanUseCase constructs a PlanUseCase.
func NewPlanUseCase(plans repository.PlanRepository, logger *zerolog.Logger) *planUC {
	l := logger.With().Str("component", "PlanUC").Logger()
	return &planUC{plans: plans, log: &l}
}

func (u *planUC) ListActive(ctx context.Context) ([]*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.ListActive")()
	return u.plans.ListActive(ctx, repository.NoTX)
}

func (u *planUC) ListAll(ctx context.Context) ([]*model.Plan, error) {
	return u.plans.ListAll(ctx, repository.NoTX)
}

func (u *planUC) Get(ctx context.Context, id string) (*model.Plan, error) {
	return u.plans.FindByID(ctx, repository.NoTX, id)
}

func (u *planUC) Create(ctx context.Context, in model.PlanInput) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Create")()
	in.Name = cleanText(in.Name)
	in.Description = cleanText(in.Description)
	in.Features = cleanAll(in.Features)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	now := time.Now()
	p := &model.Plan{ID: uuid.NewString(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	in.Apply(p)
	if err := u.plans.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	u.log.Info().Str("plan_id", p.ID).Str("name", p.Name).Msg("plan created")
	return p, nil
}

func (u *planUC) Update(ctx context.Context, id string, in model.PlanInput) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Update")()
	in.Name = cleanText(in.Name)
	in.Description = cleanText(in.Description)
	in.Features = cleanAll(in.Features)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	p, err := u.plans.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	in.Apply(p)
	p.UpdatedAt = time.Now()
	if err := u.plans.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	u.log.Info().Str("plan_id", p.ID).Bool("active", p.IsActive).Msg("plan updated")
	return p, nil
}
