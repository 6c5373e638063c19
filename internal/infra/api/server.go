package api

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/manojnerkar/viep/internal/domain"
	"github.com/manojnerkar/viep/internal/infra/metrics"
	red "github.com/manojnerkar/viep/internal/infra/redis"
	"github.com/manojnerkar/viep/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Limiter is satisfied by redis.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Pinger reports the health of one dependency.
type Pinger func(ctx context.Context) error

// Deps groups everything the HTTP layer calls into.
type Deps struct {
	Plans         usecase.PlanUseCase
	Payments      usecase.PaymentUseCase
	Subscriptions usecase.SubscriptionUseCase
	Invoices      usecase.InvoiceUseCase
	Certificates  usecase.CertificateUseCase
	Stats         usecase.StatsUseCase

	Auth    *AuthManager
	Limiter Limiter // nil disables rate limiting

	VerifyPerMinute int
	RequestTimeout  time.Duration
	// TrustedProxies may set the client address through X-Forwarded-For.
	// Empty means the socket peer is always the client.
	TrustedProxies []netip.Prefix
	Health          map[string]Pinger
}

type Server struct {
	d   Deps
	log *zerolog.Logger

	// fallback is the process-wide verify budget used while Limiter errors.
	fallback *rate.Limiter
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}
	if d.VerifyPerMinute <= 0 {
		d.VerifyPerMinute = 60
	}
	l := logger.With().Str("component", "HTTP").Logger()
	return &Server{
		d:        d,
		log:      &l,
		fallback: rate.NewLimiter(rate.Every(time.Minute/time.Duration(d.VerifyPerMinute)), d.VerifyPerMinute),
	}
}

// Handler builds the router with the full middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		ClientIP(s.d.TrustedProxies),
		TraceID(s.log),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.d.RequestTimeout),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, domain.ErrNotFound)
	})

	r.Get("/api/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/plans", s.listActivePlans)
		r.Get("/plans/{id}", s.getPlan)
		r.Get("/certificates/verify/{certificateId}", s.verifyCertificate)

		r.Group(func(r chi.Router) {
			r.Use(s.d.Auth.RequireUser)

			r.Post("/payments/checkout", s.checkout)
			r.Post("/payments/verify", s.verifyPayment)
			r.Post("/payments/{id}/fail", s.failPayment)
			r.Get("/payments/my-payments", s.myPayments)
			r.Get("/payments/{id}/invoice", s.paymentInvoice)
			r.Get("/invoices/my-invoices", s.myInvoices)

			r.Get("/subscriptions/status", s.subscriptionStatus)
			r.Get("/subscriptions/my-subscriptions", s.mySubscriptions)
			r.Post("/subscriptions/{id}/cancel", s.cancelSubscription)

			r.Get("/certificates/my-certificates", s.myCertificates)
			r.Get("/certificates/{id}", s.myCertificate)
			r.Post("/certificates/download/{id}", s.downloadCertificate)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.d.Auth.RequireAdmin)

				r.Get("/plans", s.listAllPlans)
				r.Post("/plans", s.createPlan)
				r.Put("/plans/{id}", s.updatePlan)

				r.Get("/payments", s.recentPayments)
				r.Post("/payments/{id}/refund", s.refundPayment)

				r.Post("/certificates", s.issueCertificate)
				r.Get("/certificates/{id}", s.getCertificate)
				r.Post("/certificates/{id}/revoke", s.revokeCertificate)

				r.Get("/stats", s.stats)
			})
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, ping := range s.d.Health {
		if err := ping(ctx); err != nil {
			status[name] = "down"
			healthy = false
			s.log.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			continue
		}
		status[name] = "up"
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "time": time.Now().UTC()})
}

// allowVerify applies the per-address budget of the public verify route.
// While the shared limiter is down every caller draws from one local bucket.
func (s *Server) allowVerify(r *http.Request) bool {
	if s.d.Limiter == nil {
		return true
	}
	ok, err := s.d.Limiter.Allow(r.Context(), red.VerifyKey(clientIP(r)), s.d.VerifyPerMinute, time.Minute)
	if err != nil {
		s.log.Warn().Err(err).Msg("rate limiter unavailable, using local budget")
		ok = s.fallback.Allow()
	}
	if !ok {
		metrics.IncRateLimited("certificate_verify")
	}
	return ok
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// callerID is only valid behind RequireUser.
func callerID(r *http.Request) string {
	if c := ClaimsFrom(r.Context()); c != nil {
		return c.Subject
	}
	return ""
}
