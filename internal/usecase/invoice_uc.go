package usecase

import (
	"context"
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
var _ InvoiceUseCase = (*invoiceUC)(nil)

type InvoiceUseCase interface {
	// Generate issues the single invoice for a completed payment inside tx.
	Generate(ctx context.Context, tx repository.Tx, payment *model.Payment, plan *model.Plan) (*model.Invoice, error)
	GetForPayment(ctx context.Context, paymentID, userID string) (*model.Invoice, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Invoice, error)
}

type invoiceUC struct {
	invoices       repository.InvoiceRepository
	payments       repository.PaymentRepository
	taxBasisPoints int64
	log            *zerolog.Logger
}

func NewInvoiceUseCase(invoices repository.InvoiceRepository, payments repository.PaymentRepository, taxBasisPoints int64, logger *zerolog.Logger) *invoiceUC {
	l := logger.With().Str("component", "InvoiceUC").Logger()
	return &invoiceUC{invoices: invoices, payments: payments, taxBasisPoints: taxBasisPoints, log: &l}
}

func (u *invoiceUC) Generate(ctx context.Context, tx repository.Tx, payment *model.Payment, plan *model.Plan) (*model.Invoice, error) {
	defer logging.TraceDuration(u.log, "InvoiceUC.Generate")()
	if payment == nil || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	if payment.Status != model.PaymentStatusCompleted {
		return nil, fmt.Errorf("%w: invoice requires a completed payment, got %s", domain.ErrInvalidStateTransition, payment.Status)
	}

	seq, err := u.invoices.NextNumber(ctx, tx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	tax := model.TaxFor(payment.Amount, u.taxBasisPoints)
	inv := &model.Invoice{
		ID:            uuid.NewString(),
		InvoiceNumber: model.FormatInvoiceNumber(now, seq),
		UserID:        payment.UserID,
		PaymentID:     payment.ID,
		Items: []model.InvoiceItem{{
			Description: fmt.Sprintf("%s plan (%d days)", plan.Name, plan.DurationDays),
			Quantity:    1,
			UnitPrice:   payment.Amount,
			Total:       payment.Amount,
		}},
		Subtotal:    payment.Amount,
		Tax:         tax,
		Total:       payment.Amount + tax,
		Currency:    payment.Currency,
		GeneratedAt: now,
		CreatedAt:   now,
	}
	if err := u.invoices.Save(ctx, tx, inv); err != nil {
		return nil, err
	}
	metrics.IncInvoiceGenerated()
	u.log.Info().Str("invoice", inv.InvoiceNumber).Str("payment_id", payment.ID).Int64("total", inv.Total).Msg("invoice generated")
	return inv, nil
}

func (u *invoiceUC) GetForPayment(ctx context.Context, paymentID, userID string) (*model.Invoice, error) {
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return u.invoices.FindByPaymentID(ctx, repository.NoTX, paymentID)
}

func (u *invoiceUC) ListByUser(ctx context.Context, userID string) ([]*model.Invoice, error) {
	return u.invoices.ListByUser(ctx, repository.NoTX, userID)
}
