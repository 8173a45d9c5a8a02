package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/channelpass/channelpass/internal/config"
	"github.com/channelpass/channelpass/internal/metrics"
	"github.com/channelpass/channelpass/internal/payment/adapters"
	paymentdomain "github.com/channelpass/channelpass/internal/payment/domain"
	paymentservice "github.com/channelpass/channelpass/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc *paymentservice.Service
	Adapters   *adapters.Registry
	Cfg        config.Config
	Metrics    *metrics.Metrics `optional:"true"`
}

// Service authenticates inbound provider notifications and forwards them to
// the orchestrator. Signature verification happens before any payload field
// is used for a decision.
type Service struct {
	log        *zap.Logger
	paymentSvc *paymentservice.Service
	adapters   *adapters.Registry
	secret     string
	metrics    *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		paymentSvc: p.PaymentSvc,
		adapters:   p.Adapters,
		secret:     strings.TrimSpace(p.Cfg.ProviderWebhookSecret),
		metrics:    p.Metrics,
	}
}

func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, signature string) error {
	err := s.ingest(ctx, provider, payload, signature)
	s.record(err)
	return err
}

func (s *Service) ingest(ctx context.Context, provider string, payload []byte, signature string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	adapter, err := s.adapters.NewAdapter(provider, s.secret)
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, signature); err != nil {
		s.log.Warn("notification rejected", zap.String("provider", provider))
		return err
	}

	notification, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return nil
		}
		return err
	}

	return s.paymentSvc.HandleNotification(ctx, notification)
}

func (s *Service) record(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.RecordWebhook("ok")
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		s.metrics.RecordWebhook("signature_rejected")
	case errors.Is(err, paymentdomain.ErrAlreadyCompleted):
		s.metrics.RecordWebhook("already_applied")
	default:
		s.metrics.RecordWebhook("failed")
	}
}
