//go:build !integration

package api_test

import (
	"context"
	"sync"
	"time"

	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/usecase"
)

// The fakes embed their interface; calling an unset method panics, which the
// Recover middleware turns into a 500.

type fakePlans struct {
	usecase.PlanUseCase
	ListActiveFunc func(ctx context.Context) ([]*model.Plan, error)
	GetFunc        func(ctx context.Context, id string) (*model.Plan, error)
	CreateFunc     func(ctx context.Context, in model.PlanInput) (*model.Plan, error)
}

func (f *fakePlans) ListActive(ctx context.Context) ([]*model.Plan, error) {
	return f.ListActiveFunc(ctx)
}
func (f *fakePlans) Get(ctx context.Context, id string) (*model.Plan, error) {
	return f.GetFunc(ctx, id)
}
func (f *fakePlans) Create(ctx context.Context, in model.PlanInput) (*model.Plan, error) {
	return f.CreateFunc(ctx, in)
}

type fakePayments struct {
	usecase.PaymentUseCase
	CheckoutFunc   func(ctx context.Context, userID, planID string) (*usecase.CheckoutResult, error)
	ConfirmFunc    func(ctx context.Context, in usecase.ConfirmInput) (*usecase.ConfirmResult, error)
	RefundFunc     func(ctx context.Context, paymentID, reason string) (*model.Payment, error)
	ListByUserFunc func(ctx context.Context, userID string) ([]*model.Payment, error)
}

func (f *fakePayments) Checkout(ctx context.Context, userID, planID string) (*usecase.CheckoutResult, error) {
	return f.CheckoutFunc(ctx, userID, planID)
}
func (f *fakePayments) Confirm(ctx context.Context, in usecase.ConfirmInput) (*usecase.ConfirmResult, error) {
	return f.ConfirmFunc(ctx, in)
}
func (f *fakePayments) Refund(ctx context.Context, paymentID, reason string) (*model.Payment, error) {
	return f.RefundFunc(ctx, paymentID, reason)
}
func (f *fakePayments) ListByUser(ctx context.Context, userID string) ([]*model.Payment, error) {
	return f.ListByUserFunc(ctx, userID)
}

type fakeSubscriptions struct {
	usecase.SubscriptionUseCase
	CurrentActiveFunc func(ctx context.Context, userID string) (*model.Subscription, error)
	CancelFunc        func(ctx context.Context, id, userID, reason string) (*model.Subscription, error)
}

func (f *fakeSubscriptions) CurrentActive(ctx context.Context, userID string) (*model.Subscription, error) {
	return f.CurrentActiveFunc(ctx, userID)
}
func (f *fakeSubscriptions) Cancel(ctx context.Context, id, userID, reason string) (*model.Subscription, error) {
	return f.CancelFunc(ctx, id, userID, reason)
}

type fakeCertificates struct {
	usecase.CertificateUseCase
	VerifyPublicFunc func(ctx context.Context, certificateID string) (*model.CertificateView, error)
	DownloadFunc     func(ctx context.Context, id, userID string) (*model.DownloadRef, error)
	RevokeFunc       func(ctx context.Context, id, reason, actorID string) (*model.Certificate, error)
	GetForOwnerFunc  func(ctx context.Context, id, userID string) (*model.Certificate, error)
}

func (f *fakeCertificates) VerifyPublic(ctx context.Context, certificateID string) (*model.CertificateView, error) {
	return f.VerifyPublicFunc(ctx, certificateID)
}
func (f *fakeCertificates) Download(ctx context.Context, id, userID string) (*model.DownloadRef, error) {
	return f.DownloadFunc(ctx, id, userID)
}
func (f *fakeCertificates) Revoke(ctx context.Context, id, reason, actorID string) (*model.Certificate, error) {
	return f.RevokeFunc(ctx, id, reason, actorID)
}
func (f *fakeCertificates) GetForOwner(ctx context.Context, id, userID string) (*model.Certificate, error) {
	return f.GetForOwnerFunc(ctx, id, userID)
}

type fakeStats struct {
	TotalsFunc func(ctx context.Context) (*usecase.Stats, error)
}

func (f *fakeStats) Totals(ctx context.Context) (*usecase.Stats, error) { return f.TotalsFunc(ctx) }

// fakeLimiter allows the first Limit hits per key.
type fakeLimiter struct {
	mu    sync.Mutex
	hits  map[string]int
	Limit int
	Err   error
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if l.Err != nil {
		return false, l.Err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hits == nil {
		l.hits = map[string]int{}
	}
	l.hits[key]++
	return l.hits[key] <= l.Limit, nil
}

func (l *fakeLimiter) keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.hits))
	for k := range l.hits {
		out = append(out, k)
	}
	return out
}
