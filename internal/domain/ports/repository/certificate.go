package repository

import (
	"context"
	"time"

	"github.com/manojnerkar/viep/internal/domain/model"
)

type CertificateRepository interface {
	// Save inserts a certificate. A reused certificate id, or a second active
	// certificate for the same user and project, yields domain.ErrDuplicateKey.
	Save(ctx context.Context, tx Tx, c *model.Certificate) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Certificate, error)
	// IncrementVerification bumps the counter of an active certificate and
	// returns it; absent or revoked certificates yield domain.ErrNotFound.
	IncrementVerification(ctx context.Context, tx Tx, certificateID string) (*model.Certificate, error)
	IncrementDownload(ctx context.Context, tx Tx, id string) (*model.Certificate, error)
	// Revoke moves an active certificate to revoked; false if it was not active.
	Revoke(ctx context.Context, tx Tx, id string, at time.Time, reason, actorID string) (bool, error)
	ListActiveByUser(ctx context.Context, tx Tx, userID string) ([]*model.Certificate, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.CertificateStatus]int, error)
}
