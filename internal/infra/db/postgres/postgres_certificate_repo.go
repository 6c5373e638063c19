package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/domain/ports/repository"
)

var _ repository.CertificateRepository = (*certificateRepo)(nil)

type certificateRepo struct{ pool *pgxpool.Pool }

func NewCertificateRepo(pool *pgxpool.Pool) *certificateRepo {
	return &certificateRepo{pool: pool}
}

const certificateColumns = `id, certificate_id, user_id, project_id, user_name, project_title, completion_date, issue_date,
       tech_stack, tools, skills, duration_weeks, mentor_id, mentor_name, performance_rating, qr_code, pdf_url,
       verification_url, status, revoked_at, revoke_reason, revoked_by, download_count, verification_count,
       created_at, updated_at`

func (r *certificateRepo) Save(ctx context.Context, tx repository.Tx, c *model.Certificate) error {
	const q = `
INSERT INTO certificates (` + certificateColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26);`

	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.CertificateID, c.UserID, c.ProjectID, c.UserName, c.ProjectTitle, c.CompletionDate, c.IssueDate,
		strs(c.TechStack), strs(c.Tools), strs(c.Skills), c.DurationWeeks, c.MentorID, c.MentorName,
		c.PerformanceRating, c.QRCode, c.PDFURL, c.VerificationURL, string(c.Status), c.RevokedAt,
		c.RevokeReason, c.RevokedBy, c.DownloadCount, c.VerificationCount, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *certificateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Certificate, error) {
	return r.queryOne(ctx, tx, `SELECT `+certificateColumns+` FROM certificates WHERE id=$1;`, id)
}

// IncrementVerification is one statement so concurrent verifications never
// lose an update and a revoked certificate is never counted.
func (r *certificateRepo) IncrementVerification(ctx context.Context, tx repository.Tx, certificateID string) (*model.Certificate, error) {
	const q = `
UPDATE certificates
   SET verification_count = verification_count + 1
 WHERE certificate_id = $1 AND status = 'active'
RETURNING ` + certificateColumns + `;`
	return r.queryOne(ctx, tx, q, certificateID)
}

func (r *certificateRepo) IncrementDownload(ctx context.Context, tx repository.Tx, id string) (*model.Certificate, error) {
	const q = `
UPDATE certificates
   SET download_count = download_count + 1
 WHERE id = $1 AND status = 'active'
RETURNING ` + certificateColumns + `;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *certificateRepo) Revoke(ctx context.Context, tx repository.Tx, id string, at time.Time, reason, actorID string) (bool, error) {
	const q = `
UPDATE certificates
   SET status = 'revoked', revoked_at = $2, revoke_reason = $3, revoked_by = $4, updated_at = $2
 WHERE id = $1 AND status = 'active';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, at, reason, actorID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *certificateRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Certificate, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+certificateColumns+` FROM certificates WHERE user_id=$1 AND status='active' ORDER BY issue_date DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Certificate{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, scanErr(err)
		}
		out = append(out, c)
	}
	return out, mapError(rows.Err())
}

func (r *certificateRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.CertificateStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM certificates GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.CertificateStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, scanErr(err)
		}
		out[model.CertificateStatus(status)] = n
	}
	return out, mapError(rows.Err())
}

func (r *certificateRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Certificate, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	c, err := scanCertificate(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return c, nil
}

func scanCertificate(row pgx.Row) (*model.Certificate, error) {
	var (
		c      model.Certificate
		status string
	)
	err := row.Scan(&c.ID, &c.CertificateID, &c.UserID, &c.ProjectID, &c.UserName, &c.ProjectTitle,
		&c.CompletionDate, &c.IssueDate, &c.TechStack, &c.Tools, &c.Skills, &c.DurationWeeks, &c.MentorID,
		&c.MentorName, &c.PerformanceRating, &c.QRCode, &c.PDFURL, &c.VerificationURL, &status, &c.RevokedAt,
		&c.RevokeReason, &c.RevokedBy, &c.DownloadCount, &c.VerificationCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = model.CertificateStatus(status)
	return &c, nil
}

func strs(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
