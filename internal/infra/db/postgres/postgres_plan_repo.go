package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

const planColumns = `id, name, description, price, currency, duration_days, features, project_access,
       mentorship_hours, certificate_included, is_active, display_order, created_at, updated_at`

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (` + planColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE
  SET name                 = EXCLUDED.name,
      description          = EXCLUDED.description,
      price                = EXCLUDED.price,
      currency             = EXCLUDED.currency,
      duration_days        = EXCLUDED.duration_days,
      features             = EXCLUDED.features,
      project_access       = EXCLUDED.project_access,
      mentorship_hours     = EXCLUDED.mentorship_hours,
      certificate_included = EXCLUDED.certificate_included,
      is_active            = EXCLUDED.is_active,
      display_order        = EXCLUDED.display_order,
      updated_at           = EXCLUDED.updated_at;`

	features := p.Features
	if features == nil {
		features = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Name, p.Description, p.Price, p.Currency, p.DurationDays, features, p.ProjectAccess,
		p.MentorshipHours, p.CertificateIncluded, p.IsActive, p.DisplayOrder, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+planColumns+` FROM plans WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return p, nil
}

func (r *PostgresPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	return r.list(ctx, tx, `SELECT `+planColumns+` FROM plans WHERE is_active ORDER BY display_order ASC, name ASC;`)
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	return r.list(ctx, tx, `SELECT `+planColumns+` FROM plans ORDER BY display_order ASC, name ASC;`)
}

func (r *PostgresPlanRepo) list(ctx context.Context, tx repository.Tx, q string) ([]*model.Plan, error) {
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, scanErr(err)
		}
		out = append(out, p)
	}
	return out, mapError(rows.Err())
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency, &p.DurationDays, &p.Features,
		&p.ProjectAccess, &p.MentorshipHours, &p.CertificateIncluded, &p.IsActive, &p.DisplayOrder,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
