package model

import (
	"fmt"
	"time"
)

// InvoiceItem is one billed line.
type InvoiceItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Total       int64  `json:"total"`
}

// Invoice is the immutable billing record of a completed payment.
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoice_number"`
	UserID        string        `json:"user_id"`
	PaymentID     string        `json:"payment_id"`
	Items         []InvoiceItem `json:"items"`
	Subtotal      int64         `json:"subtotal"`
	Tax           int64         `json:"tax"`
	Total         int64         `json:"total"`
	Currency      string        `json:"currency"`
	GeneratedAt   time.Time     `json:"generated_at"`
	CreatedAt     time.Time     `json:"created_at"`
}

// FormatInvoiceNumber renders a sequence value as INV-<year>-<seq>.
func FormatInvoiceNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("INV-%04d-%06d", at.Year(), seq)
}

// TaxFor returns amount * basisPoints / 10000, rounded half up.
func TaxFor(amount int64, basisPoints int64) int64 {
	if basisPoints <= 0 || amount <= 0 {
		return 0
	}
	return (amount*basisPoints + 5000) / 10000
}
