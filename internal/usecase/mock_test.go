//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/manojnerkar/viep/internal/domain"
	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/domain/ports/adapter"
	"github.com/manojnerkar/viep/internal/domain/ports/repository"
)

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	NameVal string

	CreateOrderFunc    func(ctx context.Context, req adapter.OrderRequest) (string, error)
	VerifyCallbackFunc func(ctx context.Context, cb adapter.Callback) error
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string {
	if m.NameVal == "" {
		return "mockpay"
	}
	return m.NameVal
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req adapter.OrderRequest) (string, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return "order_" + req.PaymentID, nil
}

func (m *MockPaymentGateway) VerifyCallback(ctx context.Context, cb adapter.Callback) error {
	if m.VerifyCallbackFunc != nil {
		return m.VerifyCallbackFunc(ctx, cb)
	}
	return nil
}

// =============================
// Repositories
// =============================

// ---- Plans ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan

	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.Plan) error
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.Plan{}}
}

func (m *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.data {
		if id != p.ID && strings.EqualFold(other.Name, p.Name) {
			return domain.ErrDuplicateKey
		}
	}
	cp := *p
	m.data[p.ID] = &cp
	return nil
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	all, _ := m.ListAll(ctx, tx)
	out := all[:0]
	for _, p := range all {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Plan, 0, len(m.data))
	for _, p := range m.data {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ---- Payments ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[p.ID]; ok {
		return domain.ErrDuplicateKey
	}
	cp := *p
	m.data[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) Transition(ctx context.Context, tx repository.Tx, id string, t model.PaymentTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != t.From {
		return false, nil
	}
	p.Status = t.To
	p.UpdatedAt = t.At
	switch t.To {
	case model.PaymentStatusCompleted:
		at := t.At
		p.PaidAt = &at
		p.GatewayPaymentID = t.GatewayPaymentID
		p.GatewaySignature = t.GatewaySignature
		p.PaymentMethod = t.PaymentMethod
		p.TransactionID = t.TransactionID
	case model.PaymentStatusFailed:
		p.FailureReason = t.Reason
	case model.PaymentStatusRefunded:
		at := t.At
		p.RefundedAt = &at
		p.RefundReason = t.Reason
	}
	return true, nil
}

func (m *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.data {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockPaymentRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Payment, 0, len(m.data))
	for _, p := range m.data {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Payment{}
	for _, p := range m.data {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockPaymentRepo) SumCompleted(ctx context.Context, tx repository.Tx) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, p := range m.data {
		if p.Status == model.PaymentStatusCompleted {
			sum += p.Amount
		}
	}
	return sum, nil
}

func (m *MockPaymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.PaymentStatus]int{}
	for _, p := range m.data {
		out[p.Status]++
	}
	return out, nil
}

func (m *MockPaymentRepo) get(id string) *model.Payment {
	p, _ := m.FindByID(context.Background(), repository.NoTX, id)
	return p
}

// ---- Subscriptions ----

// MockSubscriptionRepo enforces the same uniqueness the schema does:
// one subscription per payment and one active subscription per user.
type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription

	LockedUsers []string
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.data {
		if id == s.ID {
			continue
		}
		if other.PaymentID == s.PaymentID {
			return domain.ErrDuplicateKey
		}
		if s.Status == model.SubscriptionStatusActive && other.UserID == s.UserID && other.Status == model.SubscriptionStatusActive {
			return domain.ErrDuplicateKey
		}
	}
	cp := *s
	m.data[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.data {
		if s.PaymentID == paymentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.data {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.data {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockSubscriptionRepo) Transition(ctx context.Context, tx repository.Tx, id string, from, to model.SubscriptionStatus, at time.Time, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.Status != from {
		return false, nil
	}
	s.Status = to
	s.UpdatedAt = at
	if to == model.SubscriptionStatusCancelled {
		s.CancelledAt = &at
		s.CancelReason = reason
	}
	return true, nil
}

func (m *MockSubscriptionRepo) Reschedule(ctx context.Context, tx repository.Tx, id string, end time.Time, carriedUntil *time.Time, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !end.After(s.StartDate) {
		return domain.ErrValidation
	}
	s.EndDate = end
	s.CarriedUntil = carriedUntil
	s.UpdatedAt = at
	return nil
}

func (m *MockSubscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.data {
		if s.Status == model.SubscriptionStatusActive && s.EndDate.Before(now) {
			s.Status = model.SubscriptionStatusExpired
			s.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *MockSubscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockedUsers = append(m.LockedUsers, userID)
	return nil
}

func (m *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, s := range m.data {
		out[s.Status]++
	}
	return out, nil
}

func (m *MockSubscriptionRepo) put(s *model.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.data[s.ID] = &cp
}

func (m *MockSubscriptionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// ---- Invoices ----

type MockInvoiceRepo struct {
	mu   sync.Mutex
	seq  int64
	data map[string]*model.Invoice // by payment id

	NextNumberFunc func(ctx context.Context, tx repository.Tx) (int64, error)
}

var _ repository.InvoiceRepository = (*MockInvoiceRepo)(nil)

func NewMockInvoiceRepo() *MockInvoiceRepo {
	return &MockInvoiceRepo{data: map[string]*model.Invoice{}}
}

func (m *MockInvoiceRepo) NextNumber(ctx context.Context, tx repository.Tx) (int64, error) {
	if m.NextNumberFunc != nil {
		return m.NextNumberFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq, nil
}

func (m *MockInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[inv.PaymentID]; ok {
		return domain.ErrDuplicateKey
	}
	for _, other := range m.data {
		if other.InvoiceNumber == inv.InvoiceNumber {
			return domain.ErrDuplicateKey
		}
	}
	cp := *inv
	m.data[inv.PaymentID] = &cp
	return nil
}

func (m *MockInvoiceRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.data[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *MockInvoiceRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range m.data {
		if inv.UserID == userID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockInvoiceRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// ---- Certificates ----

type MockCertificateRepo struct {
	mu   sync.Mutex
	data map[string]*model.Certificate // by row id
}

var _ repository.CertificateRepository = (*MockCertificateRepo)(nil)

func NewMockCertificateRepo() *MockCertificateRepo {
	return &MockCertificateRepo{data: map[string]*model.Certificate{}}
}

func (m *MockCertificateRepo) Save(ctx context.Context, tx repository.Tx, c *model.Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.data {
		if other.CertificateID == c.CertificateID {
			return domain.ErrDuplicateKey
		}
		if other.Status == model.CertificateStatusActive && c.Status == model.CertificateStatusActive &&
			other.UserID == c.UserID && other.ProjectID == c.ProjectID {
			return domain.ErrDuplicateKey
		}
	}
	cp := *c
	m.data[c.ID] = &cp
	return nil
}

func (m *MockCertificateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCertificateRepo) IncrementVerification(ctx context.Context, tx repository.Tx, certificateID string) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.data {
		if c.CertificateID == certificateID && c.Status == model.CertificateStatusActive {
			c.VerificationCount++
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCertificateRepo) IncrementDownload(ctx context.Context, tx repository.Tx, id string) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[id]
	if !ok || c.Status != model.CertificateStatusActive {
		return nil, domain.ErrNotFound
	}
	c.DownloadCount++
	cp := *c
	return &cp, nil
}

func (m *MockCertificateRepo) Revoke(ctx context.Context, tx repository.Tx, id string, at time.Time, reason, actorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.Status != model.CertificateStatusActive {
		return false, nil
	}
	c.Status = model.CertificateStatusRevoked
	c.RevokedAt = &at
	c.RevokeReason = reason
	c.RevokedBy = actorID
	c.UpdatedAt = at
	return true, nil
}

func (m *MockCertificateRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Certificate
	for _, c := range m.data {
		if c.UserID == userID && c.Status == model.CertificateStatusActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockCertificateRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.CertificateStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.CertificateStatus]int{}
	for _, c := range m.data {
		out[c.Status]++
	}
	return out, nil
}

// =============================
// Transactions
// =============================

// MockTxManager runs fn directly. With Serialize set, transactions run one
// at a time, which is how row locks order concurrent confirmations of the
// same payment in Postgres.
type MockTxManager struct {
	mu        sync.Mutex
	Serialize bool

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	if m.Serialize {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	return fn(ctx, repository.NoTX)
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
