package repository

import (
	"context"

	"github.com/manojnerkar/viep/internal/domain/model"
)

type InvoiceRepository interface {
	// NextNumber atomically allocates the next invoice sequence value.
	NextNumber(ctx context.Context, tx Tx) (int64, error)
	// Save inserts an invoice; a second invoice for the same payment or a
	// reused number yields domain.ErrDuplicateKey.
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Invoice, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Invoice, error)
}
