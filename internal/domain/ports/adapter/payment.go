package adapter

import "context"

// OrderRequest describes the amount a gateway order is opened for.
type OrderRequest struct {
	PaymentID string
	Amount    int64 // minor units
	Currency  string
}

// Callback is the data a gateway hands back to the client after payment,
// which the client forwards to us for verification.
type Callback struct {
	OrderID          string
	GatewayPaymentID string
	Amount           int64
	Currency         string
	Signature        string
}

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string
	// CreateOrder opens an order for the checkout and returns its id.
	CreateOrder(ctx context.Context, req OrderRequest) (orderID string, err error)
	// VerifyCallback checks the callback signature against the shared secret.
	// It returns domain.ErrGatewayVerification on any mismatch.
	VerifyCallback(ctx context.Context, cb Callback) error
}
