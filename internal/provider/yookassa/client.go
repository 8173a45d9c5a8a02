package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	providerdomain "github.com/channelpass/channelpass/internal/provider/domain"
	"github.com/google/uuid"
)

type Config struct {
	BaseURL   string
	ShopID    string
	SecretKey string
	Timeout   time.Duration
}

// Client talks to the YooKassa payments API.
type Client struct {
	baseURL   string
	shopID    string
	secretKey string
	client    *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		shopID:    strings.TrimSpace(cfg.ShopID),
		secretKey: strings.TrimSpace(cfg.SecretKey),
		client:    &http.Client{Timeout: timeout},
	}
}

type amountPayload struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmationPayload struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type paymentMethodPayload struct {
	Type string `json:"type"`
}

type createPaymentPayload struct {
	Amount            amountPayload        `json:"amount"`
	PaymentMethodData paymentMethodPayload `json:"payment_method_data"`
	Confirmation      confirmationPayload  `json:"confirmation"`
	Description       string               `json:"description,omitempty"`
	Metadata          map[string]string    `json:"metadata,omitempty"`
}

type paymentResponse struct {
	ID           string               `json:"id"`
	Status       string               `json:"status"`
	Confirmation *confirmationPayload `json:"confirmation,omitempty"`
}

type errorResponse struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (c *Client) CreatePayment(ctx context.Context, req providerdomain.CreateRequest) (*providerdomain.CreateResult, error) {
	body := createPaymentPayload{
		Amount:            amountPayload{Value: req.Amount, Currency: req.Currency},
		PaymentMethodData: paymentMethodPayload{Type: "bank_card"},
		Confirmation:      confirmationPayload{Type: "redirect", ReturnURL: req.ReturnURL},
		Description:       req.Description,
		Metadata:          req.Metadata,
	}

	var resp paymentResponse
	if err := c.doRequest(ctx, http.MethodPost, "/payments", body, true, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &providerdomain.Error{Op: "create", Code: "invalid_response"}
	}

	result := &providerdomain.CreateResult{
		ProviderPaymentID: resp.ID,
		Status:            resp.Status,
	}
	if resp.Confirmation != nil {
		result.ConfirmationURL = resp.Confirmation.ConfirmationURL
	}
	return result, nil
}

func (c *Client) GetPayment(ctx context.Context, providerPaymentID string) (*providerdomain.PaymentInfo, error) {
	var resp paymentResponse
	if err := c.doRequest(ctx, http.MethodGet, "/payments/"+providerPaymentID, nil, false, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &providerdomain.Error{Op: "get", Code: "invalid_response"}
	}
	return &providerdomain.PaymentInfo{
		ProviderPaymentID: resp.ID,
		Status:            resp.Status,
	}, nil
}

func (c *Client) CapturePayment(ctx context.Context, providerPaymentID string) error {
	var resp paymentResponse
	return c.doRequest(ctx, http.MethodPost, "/payments/"+providerPaymentID+"/capture", struct{}{}, true, &resp)
}

func (c *Client) CancelPayment(ctx context.Context, providerPaymentID string) error {
	var resp paymentResponse
	return c.doRequest(ctx, http.MethodPost, "/payments/"+providerPaymentID+"/cancel", struct{}{}, true, &resp)
}

func (c *Client) doRequest(ctx context.Context, method string, path string, body any, idempotent bool, out any) error {
	op := strings.Trim(path, "/")

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.shopID, c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotent {
		req.Header.Set("Idempotence-Key", uuid.NewString())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Network failures and client timeouts are retryable by the caller.
		return &providerdomain.Error{Op: op, Code: "request_failed", Transient: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		code := strings.TrimSpace(apiErr.Code)
		if code == "" {
			code = strings.TrimSpace(apiErr.Type)
		}
		return &providerdomain.Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Code:       code,
			Transient:  resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &providerdomain.Error{Op: op, Code: "invalid_response"}
	}
	return nil
}
