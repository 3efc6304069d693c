package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProcessorIntent is the processor's view of a manual-capture payment intent.
type ProcessorIntent struct {
	Ref          string
	ClientSecret string
}

// ProcessorClient talks to the external payment processor. It is injected as
// a constructed dependency so tests can substitute a fake without touching
// global state.
type ProcessorClient interface {
	CreateIntent(ctx context.Context, amountCents int64, currency, idempotencyKey string) (*ProcessorIntent, error)
	Capture(ctx context.Context, ref string) error
	Void(ctx context.Context, ref string) error
	Refund(ctx context.Context, ref string, amountCents int64) error
}

// HTTPProcessorClient is a minimal client for a payment-intents style HTTP
// API: create with manual capture, then capture/void/refund by reference.
type HTTPProcessorClient struct {
	hc      *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPProcessorClient(baseURL, apiKey string) *HTTPProcessorClient {
	return &HTTPProcessorClient{
		hc:      &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type intentRequest struct {
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	CaptureMethod string `json:"capture_method"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type processorError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *HTTPProcessorClient) CreateIntent(ctx context.Context, amountCents int64, currency, idempotencyKey string) (*ProcessorIntent, error) {
	body := intentRequest{
		AmountCents:   amountCents,
		Currency:      currency,
		CaptureMethod: "manual",
	}

	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	status, respBody, err := c.do(ctx, http.MethodPost, "/v1/payment_intents", headers, body)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, c.asError(status, respBody)
	}

	var resp intentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decode payment intent response: %w", err)
	}
	return &ProcessorIntent{Ref: resp.ID, ClientSecret: resp.ClientSecret}, nil
}

func (c *HTTPProcessorClient) Capture(ctx context.Context, ref string) error {
	status, respBody, err := c.do(ctx, http.MethodPost, "/v1/payment_intents/"+ref+"/capture", nil, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return c.asError(status, respBody)
	}
	return nil
}

func (c *HTTPProcessorClient) Void(ctx context.Context, ref string) error {
	status, respBody, err := c.do(ctx, http.MethodPost, "/v1/payment_intents/"+ref+"/cancel", nil, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return c.asError(status, respBody)
	}
	return nil
}

func (c *HTTPProcessorClient) Refund(ctx context.Context, ref string, amountCents int64) error {
	body := map[string]any{"payment_intent": ref, "amount_cents": amountCents}
	status, respBody, err := c.do(ctx, http.MethodPost, "/v1/refunds", nil, body)
	if err != nil {
		return err
	}
	if status >= 400 {
		return c.asError(status, respBody)
	}
	return nil
}

func (c *HTTPProcessorClient) do(ctx context.Context, method, path string, headers map[string]string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode processor request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build processor request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		// Network-level failures are retryable: the caller backs off and
		// tries again within its attempt budget.
		return 0, nil, fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read processor response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// asError maps a processor HTTP error to the local taxonomy: declines are
// terminal, 5xx and 429 are retryable.
func (c *HTTPProcessorClient) asError(status int, body []byte) error {
	var pe processorError
	_ = json.Unmarshal(body, &pe)

	if status >= 500 || status == http.StatusTooManyRequests {
		if pe.Message != "" {
			return fmt.Errorf("%w: %s (status=%d)", ErrProcessorUnavailable, pe.Message, status)
		}
		return fmt.Errorf("%w (status=%d)", ErrProcessorUnavailable, status)
	}

	if status == http.StatusPaymentRequired || pe.Code == "card_declined" {
		if pe.Message != "" {
			return fmt.Errorf("%w: %s", ErrDeclined, pe.Message)
		}
		return ErrDeclined
	}

	if pe.Message != "" {
		return fmt.Errorf("processor rejected request: %s (status=%d)", pe.Message, status)
	}
	return fmt.Errorf("processor rejected request (status=%d)", status)
}
