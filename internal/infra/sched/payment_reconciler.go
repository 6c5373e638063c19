package sched

import (
	"context"
	"time"

	"github.com/manojnerkar/viep/internal/domain/ports/usecase"

	"github.com/rs/zerolog"
)

// PaymentReconciler fails checkouts left pending longer than staleAfter, so an
// abandoned order cannot be confirmed days later.
type PaymentReconciler struct {
	payments   usecase.StalePaymentFailer
	staleAfter time.Duration
	now        func() time.Time
	log        *zerolog.Logger
}

func NewPaymentReconciler(payments usecase.StalePaymentFailer, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{payments: payments, staleAfter: staleAfter, now: time.Now, log: &l}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	n, err := w.payments.FailStale(ctx, w.now().Add(-w.staleAfter))
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("stale checkouts closed")
	}
	return nil
}
