package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/channelpass/channelpass/internal/clock"
	"github.com/channelpass/channelpass/internal/config"
	paymentdomain "github.com/channelpass/channelpass/internal/payment/domain"
	paymentrepo "github.com/channelpass/channelpass/internal/payment/repository"
	paymentservice "github.com/channelpass/channelpass/internal/payment/service"
	providerdomain "github.com/channelpass/channelpass/internal/provider/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeProvider struct {
	mu sync.Mutex

	createResult *providerdomain.CreateResult
	createErr    error
	createCalls  int

	status string
	getErr error

	captureErr error
	captured   []string

	cancelErr error
	canceled  []string
}

func (p *fakeProvider) CreatePayment(ctx context.Context, req providerdomain.CreateRequest) (*providerdomain.CreateResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.createResult != nil {
		return p.createResult, nil
	}
	return &providerdomain.CreateResult{
		ProviderPaymentID: "pay_fake",
		Status:            providerdomain.StatusPending,
		ConfirmationURL:   "https://pay.example/confirm/pay_fake",
	}, nil
}

func (p *fakeProvider) GetPayment(ctx context.Context, providerPaymentID string) (*providerdomain.PaymentInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	return &providerdomain.PaymentInfo{ProviderPaymentID: providerPaymentID, Status: p.status}, nil
}

func (p *fakeProvider) CapturePayment(ctx context.Context, providerPaymentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.captureErr != nil {
		return p.captureErr
	}
	p.captured = append(p.captured, providerPaymentID)
	return nil
}

func (p *fakeProvider) CancelPayment(ctx context.Context, providerPaymentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelErr != nil {
		return p.cancelErr
	}
	p.canceled = append(p.canceled, providerPaymentID)
	return nil
}

type fakeGranter struct {
	mu       sync.Mutex
	grants   []int64
	grantErr error
}

func (g *fakeGranter) Grant(ctx context.Context, userID int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grantErr != nil {
		return "", g.grantErr
	}
	g.grants = append(g.grants, userID)
	return "https://t.me/+invite", nil
}

func (g *fakeGranter) InviteLink(ctx context.Context) (string, error) {
	return "https://t.me/+invite", nil
}

func (g *fakeGranter) grantCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.grants)
}

type delivery struct {
	userID int64
	link   string
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered []delivery
}

func (n *fakeNotifier) AccessGranted(ctx context.Context, userID int64, inviteLink string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, delivery{userID: userID, link: inviteLink})
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	schema := `CREATE TABLE payments (
		id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		provider_payment_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

type fixture struct {
	svc      *paymentservice.Service
	db       *gorm.DB
	repo     paymentdomain.Repository
	provider *fakeProvider
	granter  *fakeGranter
	notifier *fakeNotifier
	clock    *clock.FakeClock
}

func newFixture(t *testing.T, nodeID int64) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	provider := &fakeProvider{}
	granter := &fakeGranter{}
	notifier := &fakeNotifier{}
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := paymentrepo.Provide()

	svc := paymentservice.NewService(paymentservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Cfg: config.Config{
			SubscriptionAmount:   "100.00",
			SubscriptionCurrency: "RUB",
			ReturnURL:            "https://t.me/testbot",
		},
		Repo:     repo,
		Provider: provider,
		Access:   granter,
		Notifier: notifier,
	})

	return &fixture{
		svc:      svc,
		db:       db,
		repo:     repo,
		provider: provider,
		granter:  granter,
		notifier: notifier,
		clock:    fc,
	}
}

func (f *fixture) mustStatus(t *testing.T, id snowflake.ID, want paymentdomain.Status) {
	t.Helper()
	found, err := f.repo.Find(context.Background(), f.db, id)
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}
	if found.Status != want {
		t.Fatalf("expected status %s, got %s", want, found.Status)
	}
}

func TestStartPurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 30)

	payment, err := f.svc.StartPurchase(ctx, 42)
	if err != nil {
		t.Fatalf("start purchase: %v", err)
	}
	if payment.Status != paymentdomain.StatusPending {
		t.Fatalf("expected pending, got %s", payment.Status)
	}
	if payment.Metadata[paymentdomain.MetaPaymentID] != payment.ID.String() {
		t.Fatalf("expected payment id in metadata")
	}
	if payment.Metadata[paymentdomain.MetaUserID] != "42" {
		t.Fatalf("expected user id in metadata")
	}
	f.mustStatus(t, payment.ID, paymentdomain.StatusPending)
}

func TestConfirmPurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 31)

	payment, err := f.svc.StartPurchase(ctx, 42)
	if err != nil {
		t.Fatalf("start purchase: %v", err)
	}

	result, err := f.svc.ConfirmPurchase(ctx, 42, payment.ID.String())
	if err != nil {
		t.Fatalf("confirm purchase: %v", err)
	}
	if result.ConfirmationURL != "https://pay.example/confirm/pay_fake" {
		t.Fatalf("unexpected confirmation url %s", result.ConfirmationURL)
	}

	found, err := f.repo.Find(ctx, f.db, payment.ID)
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}
	if found.Status != paymentdomain.StatusAwaitingCapture {
		t.Fatalf("expected awaiting_capture, got %s", found.Status)
	}
	if found.ProviderPaymentID != "pay_fake" {
		t.Fatalf("expected provider id pay_fake, got %s", found.ProviderPaymentID)
	}

	// A second confirm must not create another upstream payment.
	if _, err := f.svc.ConfirmPurchase(ctx, 42, payment.ID.String()); !errors.Is(err, paymentdomain.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
	if f.provider.createCalls != 1 {
		t.Fatalf("expected 1 create call, got %d", f.provider.createCalls)
	}
}

func TestConfirmPurchasePermanentFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 32)
	f.provider.createErr = &providerdomain.Error{Op: "create_payment", StatusCode: 400, Code: "invalid_request"}

	payment, err := f.svc.StartPurchase(ctx, 42)
	if err != nil {
		t.Fatalf("start purchase: %v", err)
	}

	if _, err := f.svc.ConfirmPurchase(ctx, 42, payment.ID.String()); err == nil {
		t.Fatalf("expected provider error")
	}
	f.mustStatus(t, payment.ID, paymentdomain.StatusFailed)
}

func TestConfirmPurchaseTransientFailureKeepsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 33)
	f.provider.createErr = &providerdomain.Error{Op: "create_payment", StatusCode: 503, Code: "unavailable", Transient: true}

	payment, err := f.svc.StartPurchase(ctx, 42)
	if err != nil {
		t.Fatalf("start purchase: %v", err)
	}

	if _, err := f.svc.ConfirmPurchase(ctx, 42, payment.ID.String()); err == nil {
		t.Fatalf("expected provider error")
	}
	f.mustStatus(t, payment.ID, paymentdomain.StatusPending)

	// The ambiguous upstream outcome resolved; a retry must succeed.
	f.provider.createErr = nil
	if _, err := f.svc.ConfirmPurchase(ctx, 42, payment.ID.String()); err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
	f.mustStatus(t, payment.ID, paymentdomain.StatusAwaitingCapture)
}

func confirmedPayment(t *testing.T, f *fixture, userID int64) *paymentdomain.Payment {
	t.Helper()

	payment, err := f.svc.StartPurchase(context.Background(), userID)
	if err != nil {
		t.Fatalf("start purchase: %v", err)
	}
	if _, err := f.svc.ConfirmPurchase(context.Background(), userID, payment.ID.String()); err != nil {
		t.Fatalf("confirm purchase: %v", err)
	}
	return payment
}

func TestCheckPaymentGrantsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 34)
	payment := confirmedPayment(t, f, 42)
	f.provider.status = providerdomain.StatusSucceeded

	result, err := f.svc.CheckPayment(ctx, 42, payment.ID.String())
	if err != nil {
		t.Fatalf("check payment: %v", err)
	}
	if result.Outcome != paymentservice.OutcomeCompleted {
		t.Fatalf("expected completed, got %s", result.Outcome)
	}
	if result.InviteLink == "" {
		t.Fatalf("expected invite link")
	}
	f.mustStatus(t, payment.ID, paymentdomain.StatusCompleted)

	// Re-checking reports completion without granting again.
	result, err = f.svc.CheckPayment(ctx, 42, payment.ID.String())
	if err != nil {
		t.Fatalf("check payment: %v", err)
	}
	if result.Outcome != paymentservice.OutcomeAlreadyCompleted {
		t.Fatalf("expected already_completed, got %s", result.Outcome)
	}
	if f.granter.grantCount() != 1 {
		t.Fatalf("expected 1 grant, got %d", f.granter.grantCount())
	}
}

func TestCheckPaymentCapturesWaiting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 35)
	payment := confirmedPayment(t, f, 42)
	f.provider.status = providerdomain.StatusWaitingForCapture

	result, err := f.svc.CheckPayment(ctx, 42, payment.ID.String())
	if err != nil {
		t.Fatalf("check payment: %v", err)
	}
	if result.Outcome != paymentservice.OutcomeCompleted {
		t.Fatalf("expected completed, got %s", result.Outcome)
	}
	if len(f.provider.captured) != 1 || f.provider.captured[0] != "pay_fake" {
		t.Fatalf("expected capture of pay_fake, got %v", f.provider.captured)
	}
}

func TestCheckPaymentCanceledUpstream(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 36)
	payment := confirmedPayment(t, f, 42)
	f.provider.status = providerdomain.StatusCanceled

	result, err := f.svc.CheckPayment(ctx, 42, payment.ID.String())
	if err != nil {
		t.Fatalf("check payment: %v", err)
	}
	if result.Outcome != paymentservice.OutcomeCanceled {
		t.Fatalf("expected canceled, got %s", result.Outcome)
	}
	f.mustStatus(t, payment.ID, paymentdomain.StatusCanceled)
	if f.granter.grantCount() != 0 {
		t.Fatalf("expected no grants, got %d", f.granter.grantCount())
	}
}

func TestCheckPaymentPendingNotPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 37)

	payment, err := f.svc.StartPurchase(ctx, 42)
	if err != nil {
		t.Fatalf("start purchase: %v", err)
	}

	result, err := f.svc.CheckPayment(ctx, 42, payment.ID.String())
	if err != nil {
		t.Fatalf("check payment: %v", err)
	}
	if result.Outcome != paymentservice.OutcomeNotPaid {
		t.Fatalf("expected not_paid, got %s", result.Outcome)
	}
}

func TestCancelPurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 38)

	// Pending payments have nothing upstream to cancel.
	pending, err := f.svc.StartPurchase(ctx, 42)
	if err != nil {
		t.Fatalf("start purchase: %v", err)
	}
	if err := f.svc.CancelPurchase(ctx, 42, pending.ID.String()); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if len(f.provider.canceled) != 0 {
		t.Fatalf("expected no upstream cancel, got %v", f.provider.canceled)
	}
	f.mustStatus(t, pending.ID, paymentdomain.StatusCanceled)

	// Confirmed payments are canceled upstream first.
	confirmed := confirmedPayment(t, f, 42)
	if err := f.svc.CancelPurchase(ctx, 42, confirmed.ID.String()); err != nil {
		t.Fatalf("cancel confirmed: %v", err)
	}
	if len(f.provider.canceled) != 1 || f.provider.canceled[0] != "pay_fake" {
		t.Fatalf("expected upstream cancel of pay_fake, got %v", f.provider.canceled)
	}
	f.mustStatus(t, confirmed.ID, paymentdomain.StatusCanceled)

	// Terminal payments cannot be canceled.
	if err := f.svc.CancelPurchase(ctx, 42, confirmed.ID.String()); !errors.Is(err, paymentdomain.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
}

func TestOwnershipValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 39)
	payment := confirmedPayment(t, f, 42)

	if _, err := f.svc.CheckPayment(ctx, 99, payment.ID.String()); !errors.Is(err, paymentdomain.ErrUserMismatch) {
		t.Fatalf("expected ErrUserMismatch, got %v", err)
	}
	if _, err := f.svc.CheckPayment(ctx, 42, "not-an-id"); !errors.Is(err, paymentdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.ConfirmPurchase(ctx, 99, payment.ID.String()); !errors.Is(err, paymentdomain.ErrUserMismatch) {
		t.Fatalf("expected ErrUserMismatch, got %v", err)
	}
	if err := f.svc.CancelPurchase(ctx, 99, payment.ID.String()); !errors.Is(err, paymentdomain.ErrUserMismatch) {
		t.Fatalf("expected ErrUserMismatch, got %v", err)
	}
}

func TestHandleNotificationSucceeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 40)
	payment := confirmedPayment(t, f, 42)

	err := f.svc.HandleNotification(ctx, &paymentdomain.Notification{
		Event:             paymentdomain.EventSucceeded,
		ProviderPaymentID: "pay_fake",
		PaymentID:         payment.ID.String(),
		UserID:            42,
	})
	if err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	f.mustStatus(t, payment.ID, paymentdomain.StatusCompleted)
	if f.granter.grantCount() != 1 {
		t.Fatalf("expected 1 grant, got %d", f.granter.grantCount())
	}
	if len(f.notifier.delivered) != 1 || f.notifier.delivered[0].userID != 42 {
		t.Fatalf("expected invite delivery to user 42, got %v", f.notifier.delivered)
	}
	if f.notifier.delivered[0].link == "" {
		t.Fatalf("expected invite link in delivery")
	}
}

func TestHandleNotificationWaitingForCapture(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 41)
	payment := confirmedPayment(t, f, 42)

	err := f.svc.HandleNotification(ctx, &paymentdomain.Notification{
		Event:             paymentdomain.EventWaitingForCapture,
		ProviderPaymentID: "pay_fake",
		PaymentID:         payment.ID.String(),
		UserID:            42,
	})
	if err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if len(f.provider.captured) != 1 {
		t.Fatalf("expected capture call, got %v", f.provider.captured)
	}
	f.mustStatus(t, payment.ID, paymentdomain.StatusCompleted)
}

func TestHandleNotificationReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 42)
	payment := confirmedPayment(t, f, 42)

	notif := &paymentdomain.Notification{
		Event:             paymentdomain.EventSucceeded,
		ProviderPaymentID: "pay_fake",
		PaymentID:         payment.ID.String(),
		UserID:            42,
	}
	if err := f.svc.HandleNotification(ctx, notif); err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if err := f.svc.HandleNotification(ctx, notif); !errors.Is(err, paymentdomain.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if f.granter.grantCount() != 1 {
		t.Fatalf("expected 1 grant, got %d", f.granter.grantCount())
	}
	if len(f.notifier.delivered) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(f.notifier.delivered))
	}
}

func TestHandleNotificationRejectsMismatches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 43)
	payment := confirmedPayment(t, f, 42)

	err := f.svc.HandleNotification(ctx, &paymentdomain.Notification{
		Event:             paymentdomain.EventSucceeded,
		ProviderPaymentID: "pay_fake",
		PaymentID:         payment.ID.String(),
		UserID:            99,
	})
	if !errors.Is(err, paymentdomain.ErrUserMismatch) {
		t.Fatalf("expected ErrUserMismatch, got %v", err)
	}

	err = f.svc.HandleNotification(ctx, &paymentdomain.Notification{
		Event:             paymentdomain.EventSucceeded,
		ProviderPaymentID: "pay_other",
		PaymentID:         payment.ID.String(),
		UserID:            42,
	})
	if !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}

	err = f.svc.HandleNotification(ctx, &paymentdomain.Notification{
		Event:             paymentdomain.EventSucceeded,
		ProviderPaymentID: "pay_fake",
		PaymentID:         "not-an-id",
		UserID:            42,
	})
	if !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}

	f.mustStatus(t, payment.ID, paymentdomain.StatusAwaitingCapture)
}

func TestHandleNotificationCanceled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 44)
	payment := confirmedPayment(t, f, 42)

	notif := &paymentdomain.Notification{
		Event:             paymentdomain.EventCanceled,
		ProviderPaymentID: "pay_fake",
		PaymentID:         payment.ID.String(),
		UserID:            42,
	}
	if err := f.svc.HandleNotification(ctx, notif); err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	f.mustStatus(t, payment.ID, paymentdomain.StatusCanceled)

	// The cancel replay finds a terminal record.
	if err := f.svc.HandleNotification(ctx, notif); !errors.Is(err, paymentdomain.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestHandleNotificationIgnoresUnknownEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 45)
	payment := confirmedPayment(t, f, 42)

	err := f.svc.HandleNotification(ctx, &paymentdomain.Notification{
		Event:             "payment.refunded",
		ProviderPaymentID: "pay_fake",
		PaymentID:         payment.ID.String(),
		UserID:            42,
	})
	if !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
	f.mustStatus(t, payment.ID, paymentdomain.StatusAwaitingCapture)
}
