package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/channelpass/channelpass/internal/clock"
	"github.com/channelpass/channelpass/internal/config"
	"github.com/channelpass/channelpass/internal/metrics"
	paymentdomain "github.com/channelpass/channelpass/internal/payment/domain"
	providerdomain "github.com/channelpass/channelpass/internal/provider/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outcome classifies the result of a completion attempt for the caller's
// reply. The CAS loser observes OutcomeAlreadyCompleted and must not grant.
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyCompleted Outcome = "already_completed"
	OutcomeNotPaid          Outcome = "not_paid"
	OutcomeCanceled         Outcome = "canceled"
)

type ConfirmResult struct {
	ConfirmationURL string
}

type GrantResult struct {
	Outcome    Outcome
	InviteLink string
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Cfg      config.Config
	Repo     paymentdomain.Repository
	Provider providerdomain.Provider
	Access   paymentdomain.AccessGranter
	Notifier paymentdomain.AccessNotifier `optional:"true"`
	Metrics  *metrics.Metrics             `optional:"true"`
}

// Service drives the payment state machine. All status changes funnel through
// the repository's compare-and-swap; provider calls never hold a record lock.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      config.Config
	repo     paymentdomain.Repository
	provider providerdomain.Provider
	access   paymentdomain.AccessGranter
	notifier paymentdomain.AccessNotifier
	metrics  *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Cfg,
		repo:     p.Repo,
		provider: p.Provider,
		access:   p.Access,
		notifier: p.Notifier,
		metrics:  p.Metrics,
	}
}

// StartPurchase creates a pending payment owned by userID.
func (s *Service) StartPurchase(ctx context.Context, userID int64) (*paymentdomain.Payment, error) {
	now := s.clock.Now()
	payment := &paymentdomain.Payment{
		ID:     s.genID.Generate(),
		UserID: userID,
		Status: paymentdomain.StatusPending,
		Metadata: datatypes.JSONMap{
			paymentdomain.MetaUserID: strconv.FormatInt(userID, 10),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	payment.Metadata[paymentdomain.MetaPaymentID] = payment.ID.String()

	if err := s.repo.Create(ctx, s.db, payment); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.PaymentsCreated.Inc()
	}
	s.log.Info("payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.Int64("user_id", userID),
	)
	return payment, nil
}

// GetOwned returns the payment iff it belongs to userID.
func (s *Service) GetOwned(ctx context.Context, userID int64, paymentID string) (*paymentdomain.Payment, error) {
	return s.loadOwned(ctx, paymentID, userID)
}

// ConfirmPurchase creates the upstream payment and moves the record from
// pending to awaiting_capture, storing the provider's id.
func (s *Service) ConfirmPurchase(ctx context.Context, userID int64, paymentID string) (*ConfirmResult, error) {
	payment, err := s.loadOwned(ctx, paymentID, userID)
	if err != nil {
		return nil, err
	}
	if payment.Status != paymentdomain.StatusPending {
		return nil, paymentdomain.ErrStateConflict
	}

	created, err := s.provider.CreatePayment(ctx, providerdomain.CreateRequest{
		Amount:      s.cfg.SubscriptionAmount,
		Currency:    s.cfg.SubscriptionCurrency,
		ReturnURL:   s.cfg.ReturnURL,
		Description: "Channel subscription for user " + strconv.FormatInt(userID, 10),
		Metadata: map[string]string{
			paymentdomain.MetaPaymentID: payment.ID.String(),
			paymentdomain.MetaUserID:    strconv.FormatInt(userID, 10),
		},
	})
	if err != nil {
		s.reportProviderFailure(ctx, payment, err)
		return nil, err
	}

	ok, err := s.repo.Transition(ctx, s.db, payment.ID,
		[]paymentdomain.Status{paymentdomain.StatusPending},
		paymentdomain.StatusAwaitingCapture,
		paymentdomain.Patch{ProviderPaymentID: created.ProviderPaymentID},
		s.clock.Now(),
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Warn("payment moved during confirm",
			zap.String("payment_id", payment.ID.String()),
		)
		return nil, paymentdomain.ErrStateConflict
	}
	s.recordTransition(paymentdomain.StatusAwaitingCapture)

	return &ConfirmResult{ConfirmationURL: created.ConfirmationURL}, nil
}

// CheckPayment queries the provider and, on success, attempts the shared
// completion transition.
func (s *Service) CheckPayment(ctx context.Context, userID int64, paymentID string) (*GrantResult, error) {
	payment, err := s.loadOwned(ctx, paymentID, userID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case paymentdomain.StatusCompleted:
		return s.alreadyCompleted(ctx), nil
	case paymentdomain.StatusPending:
		return &GrantResult{Outcome: OutcomeNotPaid}, nil
	case paymentdomain.StatusCanceled, paymentdomain.StatusFailed:
		return nil, paymentdomain.ErrStateConflict
	}

	info, err := s.provider.GetPayment(ctx, payment.ProviderPaymentID)
	if err != nil {
		return nil, err
	}

	switch info.Status {
	case providerdomain.StatusSucceeded:
		return s.complete(ctx, payment, true)
	case providerdomain.StatusWaitingForCapture:
		if err := s.provider.CapturePayment(ctx, payment.ProviderPaymentID); err != nil {
			return nil, err
		}
		return s.complete(ctx, payment, true)
	case providerdomain.StatusCanceled:
		if _, err := s.cancelLocally(ctx, payment); err != nil {
			return nil, err
		}
		return &GrantResult{Outcome: OutcomeCanceled}, nil
	default:
		return &GrantResult{Outcome: OutcomeNotPaid}, nil
	}
}

// CancelPurchase cancels a non-terminal payment. A still-pending payment has
// nothing upstream, so no provider call is made for it.
func (s *Service) CancelPurchase(ctx context.Context, userID int64, paymentID string) error {
	payment, err := s.loadOwned(ctx, paymentID, userID)
	if err != nil {
		return err
	}

	switch payment.Status {
	case paymentdomain.StatusPending:
	case paymentdomain.StatusAwaitingCapture:
		if err := s.provider.CancelPayment(ctx, payment.ProviderPaymentID); err != nil {
			return err
		}
	default:
		return paymentdomain.ErrStateConflict
	}

	ok, err := s.cancelLocally(ctx, payment)
	if err != nil {
		return err
	}
	if !ok {
		return paymentdomain.ErrStateConflict
	}
	return nil
}

// HandleNotification applies a verified provider notification. The metadata
// identifiers must match the stored record before anything mutates.
func (s *Service) HandleNotification(ctx context.Context, n *paymentdomain.Notification) error {
	if n == nil {
		return paymentdomain.ErrInvalidEvent
	}
	id, err := snowflake.ParseString(n.PaymentID)
	if err != nil {
		return paymentdomain.ErrInvalidEvent
	}

	payment, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return err
	}
	if payment.UserID != n.UserID {
		return paymentdomain.ErrUserMismatch
	}
	if payment.ProviderPaymentID != "" && payment.ProviderPaymentID != n.ProviderPaymentID {
		return paymentdomain.ErrInvalidEvent
	}

	switch n.Event {
	case paymentdomain.EventWaitingForCapture:
		if payment.Status == paymentdomain.StatusCompleted {
			return paymentdomain.ErrAlreadyCompleted
		}
		if err := s.provider.CapturePayment(ctx, n.ProviderPaymentID); err != nil {
			return err
		}
		return s.completeFromNotification(ctx, payment)
	case paymentdomain.EventSucceeded:
		return s.completeFromNotification(ctx, payment)
	case paymentdomain.EventCanceled:
		ok, err := s.cancelLocally(ctx, payment)
		if err != nil {
			return err
		}
		if !ok {
			return s.classifyLostCancel(ctx, payment.ID)
		}
		return nil
	default:
		return paymentdomain.ErrEventIgnored
	}
}

func (s *Service) completeFromNotification(ctx context.Context, payment *paymentdomain.Payment) error {
	result, err := s.complete(ctx, payment, false)
	if err != nil {
		return err
	}
	if result.Outcome == OutcomeAlreadyCompleted {
		return paymentdomain.ErrAlreadyCompleted
	}

	if s.notifier != nil {
		if err := s.notifier.AccessGranted(ctx, payment.UserID, result.InviteLink); err != nil {
			// Access is already granted; delivery is best effort.
			s.log.Warn("invite delivery failed",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// complete attempts the one completion CAS both confirmation paths share.
// Only the winner grants access; the loser observes "already completed".
func (s *Service) complete(ctx context.Context, payment *paymentdomain.Payment, interactive bool) (*GrantResult, error) {
	ok, err := s.repo.Transition(ctx, s.db, payment.ID,
		[]paymentdomain.Status{paymentdomain.StatusAwaitingCapture},
		paymentdomain.StatusCompleted,
		paymentdomain.Patch{},
		s.clock.Now(),
	)
	if err != nil {
		return nil, err
	}

	if !ok {
		current, err := s.repo.Find(ctx, s.db, payment.ID)
		if err != nil {
			return nil, err
		}
		if current.Status != paymentdomain.StatusCompleted {
			return nil, paymentdomain.ErrStateConflict
		}
		if interactive {
			return s.alreadyCompleted(ctx), nil
		}
		return &GrantResult{Outcome: OutcomeAlreadyCompleted}, nil
	}

	s.recordTransition(paymentdomain.StatusCompleted)
	link, err := s.access.Grant(ctx, payment.UserID)
	if err != nil {
		// The transition is committed; the grant will be retried by support
		// tooling, not by reversing the payment.
		s.log.Error("access grant failed after completion",
			zap.String("payment_id", payment.ID.String()),
			zap.Int64("user_id", payment.UserID),
			zap.Error(err),
		)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AccessGrants.Inc()
	}
	s.log.Info("payment completed",
		zap.String("payment_id", payment.ID.String()),
		zap.Int64("user_id", payment.UserID),
	)
	return &GrantResult{Outcome: OutcomeCompleted, InviteLink: link}, nil
}

func (s *Service) alreadyCompleted(ctx context.Context) *GrantResult {
	result := &GrantResult{Outcome: OutcomeAlreadyCompleted}
	if link, err := s.access.InviteLink(ctx); err == nil {
		result.InviteLink = link
	}
	return result
}

func (s *Service) cancelLocally(ctx context.Context, payment *paymentdomain.Payment) (bool, error) {
	ok, err := s.repo.Transition(ctx, s.db, payment.ID,
		[]paymentdomain.Status{paymentdomain.StatusPending, paymentdomain.StatusAwaitingCapture},
		paymentdomain.StatusCanceled,
		paymentdomain.Patch{},
		s.clock.Now(),
	)
	if err != nil {
		return false, err
	}
	if ok {
		s.recordTransition(paymentdomain.StatusCanceled)
		s.log.Info("payment canceled", zap.String("payment_id", payment.ID.String()))
	}
	return ok, nil
}

func (s *Service) classifyLostCancel(ctx context.Context, id snowflake.ID) error {
	current, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return paymentdomain.ErrAlreadyCompleted
	}
	return paymentdomain.ErrStateConflict
}

// reportProviderFailure persists the failed status for permanent errors only.
// Transient failures (including timeouts) leave the record untouched because
// the upstream outcome is ambiguous.
func (s *Service) reportProviderFailure(ctx context.Context, payment *paymentdomain.Payment, cause error) {
	s.log.Error("provider call failed",
		zap.String("payment_id", payment.ID.String()),
		zap.Error(cause),
	)
	if providerdomain.IsTransient(cause) {
		return
	}
	ok, err := s.repo.Transition(ctx, s.db, payment.ID,
		[]paymentdomain.Status{paymentdomain.StatusPending},
		paymentdomain.StatusFailed,
		paymentdomain.Patch{},
		s.clock.Now(),
	)
	if err != nil {
		s.log.Warn("failed status not persisted", zap.Error(err))
		return
	}
	if ok {
		s.recordTransition(paymentdomain.StatusFailed)
	}
}

func (s *Service) loadOwned(ctx context.Context, paymentID string, userID int64) (*paymentdomain.Payment, error) {
	id, err := snowflake.ParseString(paymentID)
	if err != nil {
		return nil, paymentdomain.ErrNotFound
	}
	payment, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, paymentdomain.ErrUserMismatch
	}
	return payment, nil
}

func (s *Service) recordTransition(to paymentdomain.Status) {
	if s.metrics != nil {
		s.metrics.RecordTransition(string(to))
	}
}
