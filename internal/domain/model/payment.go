package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // checkout created; awaiting gateway callback
	PaymentStatusCompleted PaymentStatus = "completed" // signature verified
	PaymentStatusFailed    PaymentStatus = "failed"    // gateway reported failure
	PaymentStatusRefunded  PaymentStatus = "refunded"  // admin refund of a completed payment
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether the ledger allows s -> next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusCompleted || next == PaymentStatusFailed
	case PaymentStatusCompleted:
		return next == PaymentStatusRefunded
	case PaymentStatusFailed, PaymentStatusRefunded:
		return false
	}
	return false
}

// Payment records one purchase attempt from checkout to settlement.
type Payment struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	PlanID           string        `json:"plan_id"`
	Amount           int64         `json:"amount"` // minor units, copied from plan.Price at checkout
	Currency         string        `json:"currency"`
	Status           PaymentStatus `json:"status"`
	Gateway          string        `json:"gateway"`
	TransactionID    *string       `json:"transaction_id,omitempty"`
	GatewayOrderID   string        `json:"gateway_order_id"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`
	GatewaySignature string        `json:"-"`
	PaymentMethod    string        `json:"payment_method,omitempty"`
	FailureReason    string        `json:"failure_reason,omitempty"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	RefundedAt       *time.Time    `json:"refunded_at,omitempty"`
	RefundReason     string        `json:"refund_reason,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// SameGatewayData reports whether a repeated confirmation carries the
// gateway fields already recorded on p.
func (p *Payment) SameGatewayData(gatewayPaymentID, signature string) bool {
	return p.GatewayPaymentID == gatewayPaymentID && p.GatewaySignature == signature
}

// PaymentTransition is the set of fields written together with a status change.
type PaymentTransition struct {
	From             PaymentStatus
	To               PaymentStatus
	At               time.Time
	GatewayPaymentID string
	GatewaySignature string
	PaymentMethod    string
	TransactionID    *string
	Reason           string // failure or refund reason
}
