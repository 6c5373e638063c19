//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/manojnerkar/viep/internal/domain"
	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/domain/ports/repository"
)

func seedPlan(t *testing.T, name string) *model.Plan {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &model.Plan{
		ID: uuid.NewString(), Name: name, Description: "d", Price: 1999, Currency: "INR",
		DurationDays: 30, Features: []string{"a", "b"}, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	if err := NewPostgresPlanRepo(testPool).Save(context.Background(), nil, p); err != nil {
		t.Fatalf("failed to save plan: %v", err)
	}
	return p
}

func seedPayment(t *testing.T, userID string, plan *model.Plan, status model.PaymentStatus) *model.Payment {
	t.Helper()
	now := time.Now().UTC()
	p := &model.Payment{
		ID: uuid.NewString(), UserID: userID, PlanID: plan.ID, Amount: plan.Price, Currency: "INR",
		Status: status, Gateway: "razorpay", GatewayOrderID: "order_" + uuid.NewString(), CreatedAt: now, UpdatedAt: now,
	}
	if err := NewPaymentRepo(testPool).Save(context.Background(), nil, p); err != nil {
		t.Fatalf("failed to save payment: %v", err)
	}
	return p
}

func TestPlanRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewPostgresPlanRepo(testPool)
	cleanup(t)

	p := seedPlan(t, "Starter")
	got, err := repo.FindByID(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Name != "Starter" || len(got.Features) != 2 || got.Price != 1999 {
		t.Errorf("unexpected plan: %+v", got)
	}

	dup := *p
	dup.ID = uuid.NewString()
	dup.Name = "starter"
	if err := repo.Save(ctx, nil, &dup); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for case-insensitive duplicate name, got %v", err)
	}

	p.IsActive = false
	if err := repo.Save(ctx, nil, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	active, _ := repo.ListActive(ctx, nil)
	if len(active) != 0 {
		t.Errorf("expected no active plans, got %d", len(active))
	}
	if _, err := repo.FindByID(ctx, nil, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPaymentRepo_TransitionIsCompareAndSwap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewPaymentRepo(testPool)
	cleanup(t)
	plan := seedPlan(t, "Pro")
	p := seedPayment(t, "user-1", plan, model.PaymentStatusPending)

	txID := "pay_001"
	complete := model.PaymentTransition{
		From: model.PaymentStatusPending, To: model.PaymentStatusCompleted, At: time.Now(),
		GatewayPaymentID: "pay_001", GatewaySignature: "abcd", TransactionID: &txID,
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Transition(ctx, nil, p.ID, complete)
			if err != nil {
				t.Errorf("Transition: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winning transition, got %d", wins)
	}

	got, _ := repo.FindByID(ctx, nil, p.ID)
	if got.Status != model.PaymentStatusCompleted || got.TransactionID == nil || *got.TransactionID != "pay_001" || got.PaidAt == nil {
		t.Errorf("unexpected payment after completion: %+v", got)
	}

	sum, _ := repo.SumCompleted(ctx, nil)
	if sum != 1999 {
		t.Errorf("expected revenue 1999, got %d", sum)
	}

	if _, err := repo.Transition(ctx, nil, p.ID, model.PaymentTransition{From: model.PaymentStatusRefunded, To: model.PaymentStatusPending}); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition for illegal edge, got %v", err)
	}
}

func TestSubscriptionRepo_OneActivePerUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)
	cleanup(t)
	plan := seedPlan(t, "Pro")

	now := time.Now().UTC()
	mk := func(pay *model.Payment, end time.Time) *model.Subscription {
		return &model.Subscription{
			ID: uuid.NewString(), UserID: pay.UserID, PlanID: plan.ID, PaymentID: pay.ID,
			Status: model.SubscriptionStatusActive, StartDate: end.Add(-30 * 24 * time.Hour), EndDate: end,
			CreatedAt: now, UpdatedAt: now,
		}
	}
	p1 := seedPayment(t, "user-1", plan, model.PaymentStatusCompleted)
	p2 := seedPayment(t, "user-1", plan, model.PaymentStatusCompleted)

	first := mk(p1, now.Add(-time.Hour))
	if err := repo.Save(ctx, nil, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := repo.Save(ctx, nil, mk(p2, now.Add(time.Hour))); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey for a second active subscription, got %v", err)
	}

	n, err := repo.ExpireDue(ctx, nil, now)
	if err != nil || n != 1 {
		t.Fatalf("expected one expiry, got %d (%v)", n, err)
	}
	if err := repo.Save(ctx, nil, mk(p2, now.Add(time.Hour))); err != nil {
		t.Fatalf("save after expiry: %v", err)
	}
	ok, err := repo.Transition(ctx, nil, first.ID, model.SubscriptionStatusActive, model.SubscriptionStatusCancelled, now, "x")
	if err != nil || ok {
		t.Errorf("expired subscription must not be cancelled, got %v %v", ok, err)
	}

	counts, _ := repo.CountByStatus(ctx, nil)
	if counts[model.SubscriptionStatusActive] != 1 || counts[model.SubscriptionStatusExpired] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestSubscriptionRepo_CarriedWindowRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)
	cleanup(t)
	plan := seedPlan(t, "Pro")

	now := time.Now().UTC().Truncate(time.Microsecond)
	p1 := seedPayment(t, "user-1", plan, model.PaymentStatusCompleted)
	p2 := seedPayment(t, "user-1", plan, model.PaymentStatusCompleted)

	first, _ := model.NewSubscription(uuid.NewString(), p1, plan, now.Add(-24*time.Hour), nil)
	first.Status = model.SubscriptionStatusCancelled
	if err := repo.Save(ctx, nil, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, _ := model.NewSubscription(uuid.NewString(), p2, plan, now, first)
	if err := repo.Save(ctx, nil, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := repo.FindByPaymentID(ctx, nil, p2.ID)
	if err != nil {
		t.Fatalf("FindByPaymentID: %v", err)
	}
	if got.CarriedFromID == nil || *got.CarriedFromID != first.ID || !got.CarriedUntil.Equal(first.EndDate) {
		t.Fatalf("carried window not stored: %v %v", got.CarriedFromID, got.CarriedUntil)
	}

	got.Shift(24 * time.Hour)
	if err := repo.Reschedule(ctx, nil, got.ID, got.EndDate, got.CarriedUntil, now); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	again, _ := repo.FindByID(ctx, nil, got.ID)
	if !again.EndDate.Equal(second.EndDate.Add(-24*time.Hour)) || !again.CarriedUntil.Equal(first.EndDate.Add(-24*time.Hour)) {
		t.Errorf("unexpected window after reschedule: %s %s", again.EndDate, again.CarriedUntil)
	}
	if err := repo.Reschedule(ctx, nil, "missing", now, nil, now); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubscriptionRepo_LockUserSerializes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)
	tm := NewTxManager(testPool)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := repo.LockUser(ctx, tx, "user-1"); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	acquired := make(chan struct{})
	go func() {
		_ = tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := repo.LockUser(ctx, tx, "user-1"); err != nil {
				return err
			}
			close(acquired)
			return nil
		})
	}()

	select {
	case <-acquired:
		t.Fatal("second transaction acquired the user lock while it was held")
	case <-time.After(200 * time.Millisecond):
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first tx: %v", err)
	}
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("lock was not released at commit")
	}
}

func TestInvoiceRepo_SequenceIsUnique(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewInvoiceRepo(testPool)

	const n = 40
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := repo.NextNumber(ctx, nil)
			if err != nil {
				t.Errorf("NextNumber: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[v] {
				t.Errorf("sequence value %d handed out twice", v)
			}
			seen[v] = true
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Errorf("expected %d values, got %d", n, len(seen))
	}
}

func TestInvoiceRepo_OnePerPayment(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewInvoiceRepo(testPool)
	cleanup(t)
	plan := seedPlan(t, "Pro")
	p := seedPayment(t, "user-1", plan, model.PaymentStatusCompleted)

	mk := func(num string) *model.Invoice {
		now := time.Now().UTC()
		return &model.Invoice{
			ID: uuid.NewString(), InvoiceNumber: num, UserID: p.UserID, PaymentID: p.ID,
			Items:    []model.InvoiceItem{{Description: "Pro plan (30 days)", Quantity: 1, UnitPrice: 1999, Total: 1999}},
			Subtotal: 1999, Total: 1999, Currency: "INR", GeneratedAt: now, CreatedAt: now,
		}
	}
	if err := repo.Save(ctx, nil, mk("INV-2026-000001")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, nil, mk("INV-2026-000002")); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for second invoice of a payment, got %v", err)
	}
	got, err := repo.FindByPaymentID(ctx, nil, p.ID)
	if err != nil || len(got.Items) != 1 || got.Items[0].UnitPrice != 1999 {
		t.Errorf("unexpected invoice %+v (%v)", got, err)
	}
}

func TestCertificateRepo_VerifyAndRevoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewCertificateRepo(testPool)
	cleanup(t)

	now := time.Now().UTC()
	code, _ := model.NewCertificateID(now)
	c := &model.Certificate{
		ID: uuid.NewString(), CertificateID: code, UserID: "user-1", ProjectID: "proj-1",
		UserName: "Asha", ProjectTitle: "API", CompletionDate: now, IssueDate: now,
		TechStack: []string{"Go"}, VerificationURL: "https://viep.in/verify-certificate/" + code,
		Status: model.CertificateStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.Save(ctx, nil, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again := *c
	again.ID = uuid.NewString()
	again.CertificateID = code + "X"
	if err := repo.Save(ctx, nil, &again); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for second active certificate, got %v", err)
	}

	const calls = 25
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.IncrementVerification(ctx, nil, code); err != nil {
				t.Errorf("IncrementVerification: %v", err)
			}
		}()
	}
	wg.Wait()
	got, _ := repo.FindByID(ctx, nil, c.ID)
	if got.VerificationCount != calls {
		t.Errorf("expected %d verifications, got %d", calls, got.VerificationCount)
	}

	ok, err := repo.Revoke(ctx, nil, c.ID, now, "fraud", "admin-1")
	if err != nil || !ok {
		t.Fatalf("Revoke: %v %v", ok, err)
	}
	if ok, _ := repo.Revoke(ctx, nil, c.ID, now, "fraud", "admin-1"); ok {
		t.Error("second revoke must not apply")
	}
	if _, err := repo.IncrementVerification(ctx, nil, code); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for revoked certificate, got %v", err)
	}
	if _, err := repo.IncrementDownload(ctx, nil, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for revoked download, got %v", err)
	}
	list, _ := repo.ListActiveByUser(ctx, nil, "user-1")
	if len(list) != 0 {
		t.Errorf("revoked certificates must not be listed, got %d", len(list))
	}
}
