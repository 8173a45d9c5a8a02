package yookassa

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	paymentdomain "github.com/channelpass/channelpass/internal/payment/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "yookassa"
}

func (f *Factory) NewAdapter(webhookSecret string) (paymentdomain.NotificationAdapter, error) {
	webhookSecret = strings.TrimSpace(webhookSecret)
	if webhookSecret == "" {
		return nil, paymentdomain.ErrInvalidProvider
	}
	return &Adapter{webhookSecret: webhookSecret}, nil
}

type Adapter struct {
	webhookSecret string
}

type notificationEnvelope struct {
	Event  string             `json:"event"`
	Object notificationObject `json:"object"`
}

type notificationObject struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
}

// Verify checks the keyed HMAC-SHA256 over the canonical message
// "<event>.<object.id>". Comparison is constant-time; a mismatch reports
// nothing about which part differed.
func (a *Adapter) Verify(ctx context.Context, payload []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return paymentdomain.ErrInvalidSignature
	}

	var envelope notificationEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	if strings.TrimSpace(envelope.Event) == "" || strings.TrimSpace(envelope.Object.ID) == "" {
		return paymentdomain.ErrInvalidSignature
	}

	message := envelope.Event + "." + envelope.Object.ID
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.Notification, error) {
	var envelope notificationEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	event := strings.TrimSpace(envelope.Event)
	switch event {
	case paymentdomain.EventWaitingForCapture, paymentdomain.EventSucceeded, paymentdomain.EventCanceled:
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	providerPaymentID := strings.TrimSpace(envelope.Object.ID)
	if providerPaymentID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	paymentID := readMetadataValue(envelope.Object.Metadata, paymentdomain.MetaPaymentID)
	if paymentID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}
	userRaw := readMetadataValue(envelope.Object.Metadata, paymentdomain.MetaUserID)
	userID, err := strconv.ParseInt(userRaw, 10, 64)
	if err != nil || userID == 0 {
		return nil, paymentdomain.ErrInvalidEvent
	}

	return &paymentdomain.Notification{
		Event:             event,
		ProviderPaymentID: providerPaymentID,
		ProviderStatus:    strings.TrimSpace(envelope.Object.Status),
		PaymentID:         paymentID,
		UserID:            userID,
		RawPayload:        payload,
	}, nil
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	}
	return ""
}
