package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		invoicesGeneratedTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment ledger transitions by resulting status (pending/completed/failed/refunded).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value (minor units) of completed payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	invoicesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_generated_total",
			Help: "Invoices generated for completed payments.",
		},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncInvoiceGenerated() {
	invoicesGeneratedTotal.Inc()
}
