package wave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoPaymentURL is returned when a created session carries none of the
// known payment URL fields.
var ErrNoPaymentURL = errors.New("wave: checkout session response has no payment url")

// ProviderError carries a non-2xx response from the Wave API.
type ProviderError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wave checkout session creation failed: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Client talks to the Wave Merchant API.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateCheckoutSession issues a single POST /v1/checkout/sessions. It does not
// retry; a failed attempt is reported to the caller as is.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (*CheckoutSession, error) {
	if c.APIKey == "" {
		return nil, errors.New("WAVE_API_KEY is not configured")
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+checkoutSessionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wave checkout request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: diagnosticBody(body)}
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode wave checkout response: %w", err)
	}

	session := &CheckoutSession{
		ID:              stringField(fields, "id"),
		ClientReference: stringField(fields, "client_reference"),
		PaymentURL:      ExtractPaymentURL(fields),
		Raw:             json.RawMessage(body),
	}
	if session.PaymentURL == "" {
		return session, ErrNoPaymentURL
	}
	return session, nil
}

// ExtractPaymentURL probes PaymentURLFields in order.
func ExtractPaymentURL(fields map[string]any) string {
	for _, key := range PaymentURLFields {
		if v := stringField(fields, key); v != "" {
			return v
		}
	}
	return ""
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

// diagnosticBody keeps JSON error bodies as JSON and quotes anything else.
func diagnosticBody(body []byte) json.RawMessage {
	if len(bytes.TrimSpace(body)) > 0 && json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}
