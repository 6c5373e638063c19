// File: internal/usecase/certificate_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/manojnerkar/viep/internal/domain"
	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/domain/ports/repository"
	"github.com/manojnerkar/viep/internal/infra/logging"
	"github.com/manojnerkar/viep/internal/infra/metrics"
)

// Compile-time check
var _ CertificateUseCase = (*certificateUC)(nil)

const defaultRevokeReason = "Revoked by admin"

type CertificateUseCase interface {
	Issue(ctx context.Context, in model.IssueInput) (*model.Certificate, error)
	// VerifyPublic resolves a public certificate code. Absent and revoked
	// certificates are indistinguishable to the caller.
	VerifyPublic(ctx context.Context, certificateID string) (*model.CertificateView, error)
	Download(ctx context.Context, id, userID string) (*model.DownloadRef, error)
	Revoke(ctx context.Context, id, reason, actorID string) (*model.Certificate, error)
	// Get is the admin read; revoked certificates are returned too.
	Get(ctx context.Context, id string) (*model.Certificate, error)
	// GetForOwner is the holder's read. Revoked certificates answer
	// ErrNotFound, other users' certificates ErrForbidden.
	GetForOwner(ctx context.Context, id, userID string) (*model.Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Certificate, error)
}

type certificateUC struct {
	certs       repository.CertificateRepository
	frontendURL string
	log         *zerolog.Logger
}

func NewCertificateUseCase(certs repository.CertificateRepository, frontendURL string, logger *zerolog.Logger) *certificateUC {
	l := logger.With().Str("component", "CertificateUC").Logger()
	return &certificateUC{certs: certs, frontendURL: frontendURL, log: &l}
}

func (u *certificateUC) Issue(ctx context.Context, in model.IssueInput) (*model.Certificate, error) {
	defer logging.TraceDuration(u.log, "CertificateUC.Issue")()
	in.UserName = cleanText(in.UserName)
	in.ProjectTitle = cleanText(in.ProjectTitle)
	in.MentorName = cleanText(in.MentorName)
	in.TechStack = cleanAll(in.TechStack)
	in.Tools = cleanAll(in.Tools)
	in.Skills = cleanAll(in.Skills)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := time.Now()
	code, err := model.NewCertificateID(now)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate id: %v", domain.ErrOperationFailed, err)
	}
	c := &model.Certificate{
		ID:                uuid.NewString(),
		CertificateID:     code,
		UserID:            in.UserID,
		ProjectID:         in.ProjectID,
		UserName:          in.UserName,
		ProjectTitle:      in.ProjectTitle,
		CompletionDate:    in.CompletionDate,
		IssueDate:         now,
		TechStack:         nonNil(in.TechStack),
		Tools:             nonNil(in.Tools),
		Skills:            nonNil(in.Skills),
		DurationWeeks:     in.DurationWeeks,
		MentorName:        in.MentorName,
		PerformanceRating: in.PerformanceRating,
		QRCode:            in.QRCode,
		PDFURL:            in.PDFURL,
		VerificationURL:   model.VerificationURL(u.frontendURL, code),
		Status:            model.CertificateStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.MentorID != "" {
		m := in.MentorID
		c.MentorID = &m
	}
	if err := u.certs.Save(ctx, repository.NoTX, c); err != nil {
		return nil, err
	}
	metrics.IncCertificateEvent("issued")
	u.log.Info().
		Str("certificate_id", c.CertificateID).
		Str("user_id", c.UserID).
		Str("project_id", c.ProjectID).
		Msg("certificate issued")
	return c, nil
}

func (u *certificateUC) VerifyPublic(ctx context.Context, certificateID string) (*model.CertificateView, error) {
	certificateID = strings.TrimSpace(certificateID)
	if certificateID == "" {
		return nil, domain.ErrNotFound
	}
	c, err := u.certs.IncrementVerification(ctx, repository.NoTX, certificateID)
	if err != nil {
		metrics.IncCertificateEvent("verify_miss")
		return nil, err
	}
	metrics.IncCertificateEvent("verified")
	return c.View(), nil
}

func (u *certificateUC) Download(ctx context.Context, id, userID string) (*model.DownloadRef, error) {
	c, err := u.certs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CertificateStatusActive {
		return nil, domain.ErrNotFound
	}
	if c.UserID != userID {
		return nil, domain.ErrForbidden
	}
	// revoked between the read and the increment surfaces as not found
	c, err = u.certs.IncrementDownload(ctx, repository.NoTX, c.ID)
	if err != nil {
		return nil, err
	}
	metrics.IncCertificateEvent("downloaded")
	return &model.DownloadRef{CertificateID: c.CertificateID, PDFURL: c.PDFURL}, nil
}

func (u *certificateUC) Revoke(ctx context.Context, id, reason, actorID string) (*model.Certificate, error) {
	defer logging.TraceDuration(u.log, "CertificateUC.Revoke")()
	c, err := u.certs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if !c.Status.CanTransitionTo(model.CertificateStatusRevoked) {
		return nil, fmt.Errorf("%w: certificate is already %s", domain.ErrInvalidStateTransition, c.Status)
	}
	if strings.TrimSpace(reason) == "" {
		reason = defaultRevokeReason
	}
	now := time.Now()
	ok, err := u.certs.Revoke(ctx, repository.NoTX, c.ID, now, reason, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: certificate is already revoked", domain.ErrInvalidStateTransition)
	}
	c.Status = model.CertificateStatusRevoked
	c.RevokedAt = &now
	c.RevokeReason = reason
	c.RevokedBy = actorID
	c.UpdatedAt = now
	metrics.IncCertificateEvent("revoked")
	u.log.Info().Str("certificate_id", c.CertificateID).Str("actor_id", actorID).Msg("certificate revoked")
	return c, nil
}

func (u *certificateUC) Get(ctx context.Context, id string) (*model.Certificate, error) {
	return u.certs.FindByID(ctx, repository.NoTX, id)
}

func (u *certificateUC) GetForOwner(ctx context.Context, id, userID string) (*model.Certificate, error) {
	c, err := u.certs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CertificateStatusActive {
		return nil, domain.ErrNotFound
	}
	if c.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return c, nil
}

func (u *certificateUC) ListByUser(ctx context.Context, userID string) ([]*model.Certificate, error) {
	return u.certs.ListActiveByUser(ctx, repository.NoTX, userID)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
