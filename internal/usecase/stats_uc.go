package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/domain/ports/repository"
	"github.com/manojnerkar/viep/internal/infra/metrics"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Stats is the admin dashboard summary.
type Stats struct {
	Revenue       int64                            `json:"revenue"`
	Payments      map[model.PaymentStatus]int      `json:"payments"`
	Subscriptions map[model.SubscriptionStatus]int `json:"subscriptions"`
	Certificates  map[model.CertificateStatus]int  `json:"certificates"`
}

type StatsUseCase interface {
	Totals(ctx context.Context) (*Stats, error)
}

type statsUC struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	certs    repository.CertificateRepository

	log *zerolog.Logger
}

func NewStatsUseCase(payments repository.PaymentRepository, subs repository.SubscriptionRepository, certs repository.CertificateRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{payments: payments, subs: subs, certs: certs, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (*Stats, error) {
	revenue, err := s.payments.SumCompleted(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	subs, err := s.subs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	certs, err := s.certs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	metrics.SetSubscriptionsTotal(subs)
	return &Stats{Revenue: revenue, Payments: payments, Subscriptions: subs, Certificates: certs}, nil
}
