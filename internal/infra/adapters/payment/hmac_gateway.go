// File: internal/infra/adapters/payment/hmac_gateway.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/manojnerkar/viep/internal/domain"
	"github.com/manojnerkar/viep/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*HMACGateway)(nil)

// HMACGateway implements adapter.PaymentGateway for gateways that sign their
// client-side callback with a shared secret (Razorpay-style checkout).
// Orders are opened locally; the callback signature is
//
//	hex(HMAC-SHA256(secret, orderID|gatewayPaymentID|amount|currency))
//
// so a callback for a different amount or currency never verifies.
type HMACGateway struct {
	name   string
	keyID  string
	secret []byte
}

func NewHMACGateway(name, keyID, secret string) (*HMACGateway, error) {
	if secret == "" {
		return nil, errors.New("gateway secret empty")
	}
	if name == "" {
		name = "razorpay"
	}
	return &HMACGateway{name: name, keyID: keyID, secret: []byte(secret)}, nil
}

func (g *HMACGateway) Name() string { return g.name }

// KeyID is the public key the client checkout widget is opened with.
func (g *HMACGateway) KeyID() string { return g.keyID }

// CreateOrder returns an order id bound to the checkout. No network call is made.
func (g *HMACGateway) CreateOrder(ctx context.Context, req adapter.OrderRequest) (string, error) {
	if req.PaymentID == "" || req.Amount < 0 || req.Currency == "" {
		return "", domain.ErrInvalidArgument
	}
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("order id: %w", err)
	}
	return "order_" + strings.ToLower(id.String()), nil
}

// VerifyCallback recomputes the signature and compares it in constant time.
func (g *HMACGateway) VerifyCallback(ctx context.Context, cb adapter.Callback) error {
	if cb.OrderID == "" || cb.GatewayPaymentID == "" || cb.Signature == "" {
		return fmt.Errorf("%w: missing callback fields", domain.ErrGatewayVerification)
	}
	got, err := hex.DecodeString(strings.TrimSpace(cb.Signature))
	if err != nil {
		return fmt.Errorf("%w: malformed signature", domain.ErrGatewayVerification)
	}
	if !hmac.Equal(got, g.mac(cb)) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrGatewayVerification)
	}
	return nil
}

// Sign produces the signature the gateway would attach to cb.
func (g *HMACGateway) Sign(cb adapter.Callback) string {
	return hex.EncodeToString(g.mac(cb))
}

func (g *HMACGateway) mac(cb adapter.Callback) []byte {
	h := hmac.New(sha256.New, g.secret)
	h.Write([]byte(signaturePayload(cb)))
	return h.Sum(nil)
}

func signaturePayload(cb adapter.Callback) string {
	return strings.Join([]string{
		cb.OrderID,
		cb.GatewayPaymentID,
		strconv.FormatInt(cb.Amount, 10),
		strings.ToUpper(cb.Currency),
	}, "|")
}
