package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(certificateEventsTotal)
}

// event: issued|verified|verify_miss|downloaded|revoked
var certificateEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "certificate_events_total",
		Help: "Certificate issuance, verification, download and revocation events.",
	},
	[]string{"event"},
)

func IncCertificateEvent(event string) {
	certificateEventsTotal.WithLabelValues(norm(event)).Inc()
}
