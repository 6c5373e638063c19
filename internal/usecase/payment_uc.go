// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/manojnerkar/viep/internal/domain"
	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/domain/ports/adapter"
	"github.com/manojnerkar/viep/internal/domain/ports/repository"
	"github.com/manojnerkar/viep/internal/infra/logging"
	"github.com/manojnerkar/viep/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

const refundCancelReason = "payment refunded"

// CheckoutResult is what the client needs to open the gateway widget.
type CheckoutResult struct {
	Payment  *model.Payment `json:"payment"`
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
	OrderID  string         `json:"order_id"`
	KeyID    string         `json:"key_id,omitempty"`
}

// ConfirmInput carries the gateway callback the client forwards after paying.
type ConfirmInput struct {
	PaymentID        string `json:"payment_id" validate:"required"`
	UserID           string `json:"-" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	GatewaySignature string `json:"gateway_signature" validate:"required,hexadecimal"`
	PaymentMethod    string `json:"payment_method"`
}

// ConfirmResult bundles the records produced by a successful confirmation.
// Subscription and Invoice are nil when a repeated confirmation returns an
// already completed payment.
type ConfirmResult struct {
	Payment      *model.Payment      `json:"payment"`
	Subscription *model.Subscription `json:"subscription,omitempty"`
	Invoice      *model.Invoice      `json:"invoice,omitempty"`
}

type PaymentUseCase interface {
	Checkout(ctx context.Context, userID, planID string) (*CheckoutResult, error)
	// Confirm verifies the gateway signature and, exactly once per payment,
	// completes it, activates the subscription and issues the invoice.
	Confirm(ctx context.Context, in ConfirmInput) (*ConfirmResult, error)
	Fail(ctx context.Context, paymentID, userID, reason string) (*model.Payment, error)
	Refund(ctx context.Context, paymentID, reason string) (*model.Payment, error)
	// FailStale moves pending payments created before cutoff to failed and
	// returns how many it moved.
	FailStale(ctx context.Context, cutoff time.Time) (int, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Payment, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Payment, error)
	Revenue(ctx context.Context) (int64, error)
}

type keyIdentifier interface {
	KeyID() string
}

type paymentUC struct {
	payments repository.PaymentRepository
	plans    repository.PlanRepository
	gateway  adapter.PaymentGateway
	subs     SubscriptionUseCase
	invoices InvoiceUseCase
	tm       repository.TransactionManager
	currency string

	log *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	plans repository.PlanRepository,
	gateway adapter.PaymentGateway,
	subs SubscriptionUseCase,
	invoices InvoiceUseCase,
	tm repository.TransactionManager,
	currency string,
	logger *zerolog.Logger,
) *paymentUC {
	if currency == "" {
		currency = model.DefaultCurrency
	}
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments: payments,
		plans:    plans,
		gateway:  gateway,
		subs:     subs,
		invoices: invoices,
		tm:       tm,
		currency: currency,
		log:      &l,
	}
}

func (u *paymentUC) Checkout(ctx context.Context, userID, planID string) (*CheckoutResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Checkout")()
	if userID == "" || planID == "" {
		return nil, fmt.Errorf("%w: user id and plan id are required", domain.ErrValidation)
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("%w: plan %s is not available", domain.ErrValidation, plan.ID)
	}
	currency := plan.Currency
	if currency == "" {
		currency = u.currency
	}

	id := uuid.NewString()
	orderID, err := u.gateway.CreateOrder(ctx, adapter.OrderRequest{
		PaymentID: id,
		Amount:    plan.Price,
		Currency:  currency,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &model.Payment{
		ID:             id,
		UserID:         userID,
		PlanID:         plan.ID,
		Amount:         plan.Price,
		Currency:       currency,
		Status:         model.PaymentStatusPending,
		Gateway:        u.gateway.Name(),
		GatewayOrderID: orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusPending))
	logging.With(ctx, u.log).Info().
		Str("payment_id", p.ID).
		Str("plan_id", plan.ID).
		Int64("amount", p.Amount).
		Msg("checkout created")

	res := &CheckoutResult{Payment: p, Amount: p.Amount, Currency: p.Currency, OrderID: orderID}
	if k, ok := u.gateway.(keyIdentifier); ok {
		res.KeyID = k.KeyID()
	}
	return res, nil
}

func (u *paymentUC) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Confirm")()
	start := time.Now()
	in.GatewaySignature = strings.ToLower(strings.TrimSpace(in.GatewaySignature))
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var (
		res    *ConfirmResult
		reason = "completed"
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, in.PaymentID)
		if err != nil {
			return err
		}
		if p.UserID != in.UserID {
			return domain.ErrNotFound
		}

		switch p.Status {
		case model.PaymentStatusPending:
		case model.PaymentStatusCompleted:
			if !p.SameGatewayData(in.GatewayPaymentID, in.GatewaySignature) {
				return fmt.Errorf("%w: payment already completed with different gateway data", domain.ErrInvalidStateTransition)
			}
			reason = "idempotent"
			res = &ConfirmResult{Payment: p}
			return nil
		default:
			return fmt.Errorf("%w: payment is %s", domain.ErrInvalidStateTransition, p.Status)
		}

		if err := u.gateway.VerifyCallback(ctx, adapter.Callback{
			OrderID:          p.GatewayOrderID,
			GatewayPaymentID: in.GatewayPaymentID,
			Amount:           p.Amount,
			Currency:         p.Currency,
			Signature:        in.GatewaySignature,
		}); err != nil {
			return err
		}

		now := time.Now()
		txID := in.GatewayPaymentID
		ok, err := u.payments.Transition(ctx, tx, p.ID, model.PaymentTransition{
			From:             model.PaymentStatusPending,
			To:               model.PaymentStatusCompleted,
			At:               now,
			GatewayPaymentID: in.GatewayPaymentID,
			GatewaySignature: in.GatewaySignature,
			PaymentMethod:    in.PaymentMethod,
			TransactionID:    &txID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: payment changed concurrently", domain.ErrInvalidStateTransition)
		}
		p.Status = model.PaymentStatusCompleted
		p.GatewayPaymentID = in.GatewayPaymentID
		p.GatewaySignature = in.GatewaySignature
		p.TransactionID = &txID
		p.PaymentMethod = in.PaymentMethod
		p.PaidAt = &now
		p.UpdatedAt = now

		plan, err := u.plans.FindByID(ctx, tx, p.PlanID)
		if err != nil {
			return err
		}
		sub, err := u.subs.ActivateFrom(ctx, tx, p, plan)
		if err != nil {
			return err
		}
		inv, err := u.invoices.Generate(ctx, tx, p, plan)
		if err != nil {
			return err
		}
		res = &ConfirmResult{Payment: p, Subscription: sub, Invoice: inv}
		return nil
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.ObservePaymentVerify("fail", verifyFailReason(err), elapsed)
		logging.With(ctx, u.log).Warn().Err(err).Str("payment_id", in.PaymentID).Msg("payment confirmation rejected")
		return nil, err
	}

	metrics.ObservePaymentVerify("ok", reason, elapsed)
	if reason == "completed" {
		metrics.IncPayment(string(model.PaymentStatusCompleted))
		metrics.AddPaymentRevenue(res.Payment.Currency, res.Payment.Amount)
		logging.With(ctx, u.log).Info().
			Str("payment_id", res.Payment.ID).
			Str("subscription_id", res.Subscription.ID).
			Str("invoice", res.Invoice.InvoiceNumber).
			Msg("payment completed")
	}
	return res, nil
}

func verifyFailReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrGatewayVerification):
		return "bad_signature"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	}
	return "error"
}

// Fail records a gateway-reported failure for a pending payment.
func (u *paymentUC) Fail(ctx context.Context, paymentID, userID, reason string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Fail")()
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if !p.Status.CanTransitionTo(model.PaymentStatusFailed) {
		return nil, fmt.Errorf("%w: payment is %s", domain.ErrInvalidStateTransition, p.Status)
	}
	if reason == "" {
		reason = "payment failed at gateway"
	}
	now := time.Now()
	ok, err := u.payments.Transition(ctx, repository.NoTX, p.ID, model.PaymentTransition{
		From:   model.PaymentStatusPending,
		To:     model.PaymentStatusFailed,
		At:     now,
		Reason: reason,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment changed concurrently", domain.ErrInvalidStateTransition)
	}
	p.Status = model.PaymentStatusFailed
	p.FailureReason = reason
	p.UpdatedAt = now
	metrics.IncPayment(string(model.PaymentStatusFailed))
	return p, nil
}

const staleBatch = 200

func (u *paymentUC) FailStale(ctx context.Context, cutoff time.Time) (int, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.FailStale")()
	stale, err := u.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, staleBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range stale {
		ok, err := u.payments.Transition(ctx, repository.NoTX, p.ID, model.PaymentTransition{
			From:   model.PaymentStatusPending,
			To:     model.PaymentStatusFailed,
			At:     time.Now(),
			Reason: "checkout abandoned",
		})
		if err != nil {
			return n, err
		}
		// a concurrent confirm won the row
		if !ok {
			continue
		}
		n++
		metrics.IncPayment(string(model.PaymentStatusFailed))
	}
	if n > 0 {
		u.log.Info().Int("count", n).Time("cutoff", cutoff).Msg("stale checkouts failed")
	}
	return n, nil
}

func (u *paymentUC) Refund(ctx context.Context, paymentID, reason string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Refund")()
	if reason == "" {
		reason = "Refunded by admin"
	}
	var out *model.Payment
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if !p.Status.CanTransitionTo(model.PaymentStatusRefunded) {
			return fmt.Errorf("%w: only completed payments can be refunded, payment is %s", domain.ErrInvalidStateTransition, p.Status)
		}
		now := time.Now()
		ok, err := u.payments.Transition(ctx, tx, p.ID, model.PaymentTransition{
			From:   model.PaymentStatusCompleted,
			To:     model.PaymentStatusRefunded,
			At:     now,
			Reason: reason,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: payment changed concurrently", domain.ErrInvalidStateTransition)
		}
		if err := u.subs.WithdrawPayment(ctx, tx, p.ID, refundCancelReason); err != nil {
			return err
		}
		p.Status = model.PaymentStatusRefunded
		p.RefundedAt = &now
		p.RefundReason = reason
		p.UpdatedAt = now
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusRefunded))
	u.log.Info().Str("payment_id", out.ID).Str("reason", reason).Msg("payment refunded")
	return out, nil
}

func (u *paymentUC) ListByUser(ctx context.Context, userID string) ([]*model.Payment, error) {
	return u.payments.ListByUser(ctx, repository.NoTX, userID)
}

func (u *paymentUC) ListRecent(ctx context.Context, limit int) ([]*model.Payment, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return u.payments.ListRecent(ctx, repository.NoTX, limit)
}

func (u *paymentUC) Revenue(ctx context.Context) (int64, error) {
	return u.payments.SumCompleted(ctx, repository.NoTX)
}
