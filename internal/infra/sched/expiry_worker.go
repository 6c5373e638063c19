package sched

import (
	"context"
	"time"

	"github.com/manojnerkar/viep/internal/domain/ports/usecase"

	"github.com/rs/zerolog"
)

// ExpiryWorker finishes subscriptions whose end date has passed.
type ExpiryWorker struct {
	subs usecase.SubscriptionExpirer
	now  func() time.Time
	log  *zerolog.Logger
}

func NewExpiryWorker(subs usecase.SubscriptionExpirer, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		subs: subs,
		now:  time.Now,
		log:  &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	n, err := w.subs.ExpireDue(ctx, w.now())
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("expired subscriptions finished")
	}
	return nil
}
