// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
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
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

const defaultCancelReason = "User requested cancellation"

// maxCarryChain bounds the walk along carried-from links.
const maxCarryChain = 64

type SubscriptionUseCase interface {
	// ActivateFrom grants the entitlement bought by a just-completed payment.
	// It must run inside the transaction that completed the payment.
	ActivateFrom(ctx context.Context, tx repository.Tx, payment *model.Payment, plan *model.Plan) (*model.Subscription, error)
	Cancel(ctx context.Context, subscriptionID, userID, reason string) (*model.Subscription, error)
	// WithdrawPayment removes the time bought by paymentID from the user's
	// entitlement, wherever that time currently lives.
	WithdrawPayment(ctx context.Context, tx repository.Tx, paymentID, reason string) error
	// CurrentActive returns nil, nil when the user has no current entitlement.
	CurrentActive(ctx context.Context, userID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Subscription, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	log  *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, log: &l}
}

// ActivateFrom keeps at most one active subscription per user: a prior
// active subscription is cancelled as superseded and its unused time is
// carried into the new window.
func (u *subscriptionUC) ActivateFrom(ctx context.Context, tx repository.Tx, payment *model.Payment, plan *model.Plan) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ActivateFrom")()
	if payment == nil || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	if err := u.subs.LockUser(ctx, tx, payment.UserID); err != nil {
		return nil, err
	}

	existing, err := u.subs.FindByPaymentID(ctx, tx, payment.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	var carryFrom *model.Subscription
	prior, err := u.subs.FindActiveByUser(ctx, tx, payment.UserID)
	switch {
	case err == nil:
		reason := fmt.Sprintf("superseded by payment %s", payment.ID)
		ok, terr := u.subs.Transition(ctx, tx, prior.ID, model.SubscriptionStatusActive, model.SubscriptionStatusCancelled, now, reason)
		if terr != nil {
			return nil, terr
		}
		if !ok {
			return nil, fmt.Errorf("%w: subscription %s changed concurrently", domain.ErrInvalidStateTransition, prior.ID)
		}
		carryFrom = prior
		metrics.IncSubscriptionEvent("superseded")
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	sub, err := model.NewSubscription(uuid.NewString(), payment, plan, now, carryFrom)
	if err != nil {
		return nil, err
	}
	if err := u.subs.Save(ctx, tx, sub); err != nil {
		return nil, err
	}
	metrics.IncSubscriptionEvent("activated")
	u.log.Info().
		Str("subscription_id", sub.ID).
		Str("payment_id", payment.ID).
		Str("user_id", sub.UserID).
		Time("end_date", sub.EndDate).
		Msg("subscription activated")
	return sub, nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, subscriptionID, userID, reason string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Cancel")()
	sub, err := u.subs.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if !sub.Status.CanTransitionTo(model.SubscriptionStatusCancelled) {
		return nil, fmt.Errorf("%w: subscription is %s", domain.ErrInvalidStateTransition, sub.Status)
	}
	if reason == "" {
		reason = defaultCancelReason
	}

	now := time.Now()
	ok, err := u.subs.Transition(ctx, repository.NoTX, sub.ID, model.SubscriptionStatusActive, model.SubscriptionStatusCancelled, now, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: subscription is no longer active", domain.ErrInvalidStateTransition)
	}
	sub.Status = model.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	sub.CancelReason = reason
	sub.UpdatedAt = now
	metrics.IncSubscriptionEvent("cancelled")
	u.log.Info().Str("subscription_id", sub.ID).Str("user_id", userID).Msg("subscription cancelled")
	return sub, nil
}

// WithdrawPayment drops the own time of an active subscription and keeps
// what it carried from earlier payments. A superseded subscription's unused
// time sits inside the carried part of its successors, which are pulled in
// by that amount.
func (u *subscriptionUC) WithdrawPayment(ctx context.Context, tx repository.Tx, paymentID, reason string) error {
	defer logging.TraceDuration(u.log, "SubscriptionUC.WithdrawPayment")()
	found, err := u.subs.FindByPaymentID(ctx, tx, paymentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := u.subs.LockUser(ctx, tx, found.UserID); err != nil {
		return err
	}
	sub, err := u.subs.FindByID(ctx, tx, found.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	switch sub.Status {
	case model.SubscriptionStatusActive:
		if sub.CarriedUntil != nil && sub.CarriedUntil.After(now) {
			if err := u.subs.Reschedule(ctx, tx, sub.ID, *sub.CarriedUntil, sub.CarriedUntil, now); err != nil {
				return err
			}
			u.log.Info().Str("subscription_id", sub.ID).Time("end_date", *sub.CarriedUntil).Msg("refunded time withdrawn")
		} else {
			ok, err := u.subs.Transition(ctx, tx, sub.ID, model.SubscriptionStatusActive, model.SubscriptionStatusCancelled, now, reason)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: subscription %s changed concurrently", domain.ErrInvalidStateTransition, sub.ID)
			}
		}
		metrics.IncSubscriptionEvent("refunded")
		return nil
	case model.SubscriptionStatusCancelled:
		return u.withdrawCarried(ctx, tx, sub, now)
	}
	return nil
}

func (u *subscriptionUC) withdrawCarried(ctx context.Context, tx repository.Tx, refunded *model.Subscription, now time.Time) error {
	unused := refunded.UnusedAt(now)
	if unused <= 0 {
		return nil
	}
	active, err := u.subs.FindActiveByUser(ctx, tx, refunded.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// successors of the refunded subscription, newest first
	var chain []*model.Subscription
	cur := active
	for i := 0; ; i++ {
		if i == maxCarryChain {
			return fmt.Errorf("%w: carry chain from %s is too long", domain.ErrInvalidStateTransition, active.ID)
		}
		chain = append(chain, cur)
		if cur.CarriedFromID == nil {
			return nil
		}
		if *cur.CarriedFromID == refunded.ID {
			break
		}
		if cur, err = u.subs.FindByID(ctx, tx, *cur.CarriedFromID); err != nil {
			return err
		}
	}

	for _, s := range chain {
		s.Shift(unused)
		if err := u.subs.Reschedule(ctx, tx, s.ID, s.EndDate, s.CarriedUntil, now); err != nil {
			return err
		}
	}
	metrics.IncSubscriptionEvent("refunded")
	u.log.Info().
		Str("refunded_subscription_id", refunded.ID).
		Str("subscription_id", active.ID).
		Dur("withdrawn", unused).
		Time("end_date", active.EndDate).
		Msg("refunded time withdrawn from successor")
	return nil
}

func (u *subscriptionUC) CurrentActive(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := u.subs.FindActiveByUser(ctx, repository.NoTX, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !sub.IsCurrent(time.Now()) {
		return nil, nil
	}
	return sub, nil
}

func (u *subscriptionUC) ListByUser(ctx context.Context, userID string) ([]*model.Subscription, error) {
	return u.subs.ListByUser(ctx, repository.NoTX, userID)
}

func (u *subscriptionUC) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	n, err := u.subs.ExpireDue(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
	}
	return n, nil
}
