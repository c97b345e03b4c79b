package wave

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	EventCheckoutSessionCompleted     = "checkout.session.completed"
	EventCheckoutSessionPaymentFailed = "checkout.session.payment_failed"

	PaymentStatusSucceeded  = "succeeded"
	PaymentStatusProcessing = "processing"
	PaymentStatusCancelled  = "cancelled"

	defaultAPIBaseURL    = "https://api.wave.com"
	checkoutSessionsPath = "/v1/checkout/sessions"
)

const maxResponseBytes = 1 << 20

// PaymentURLFields lists the response keys that have carried the hosted
// payment page URL across Wave API versions, in lookup order.
var PaymentURLFields = []string{
	"wave_launch_url",
	"launch_url",
	"checkout_url",
	"payment_url",
	"url",
}

// CheckoutRequest is the body of POST /v1/checkout/sessions.
type CheckoutRequest struct {
	Amount          decimal.Decimal `json:"-"`
	Currency        string          `json:"currency"`
	ClientReference string          `json:"client_reference"`
	SuccessURL      string          `json:"success_url"`
	ErrorURL        string          `json:"error_url"`
}

// MarshalJSON sends the amount as a fixed two-decimal string, the format the
// checkout API accepts regardless of how the order platform formatted it.
func (r CheckoutRequest) MarshalJSON() ([]byte, error) {
	type alias CheckoutRequest
	return json.Marshal(struct {
		Amount string `json:"amount"`
		alias
	}{
		Amount: r.Amount.StringFixed(2),
		alias:  alias(r),
	})
}

// CheckoutSession is the part of a created session the relay cares about.
type CheckoutSession struct {
	ID              string
	ClientReference string
	PaymentURL      string
	Raw             json.RawMessage
}

// WebhookEventData is the "data" object of a checkout webhook.
type WebhookEventData struct {
	ID              string
	Amount          decimal.Decimal
	Currency        string
	CheckoutStatus  string
	PaymentStatus   string
	ClientReference string
	TransactionID   string
}

// WebhookEvent is a verified payment webhook. Timestamp comes from the
// signature header, not the body.
type WebhookEvent struct {
	ID        string
	Type      string
	EventType string
	Data      WebhookEventData

	// Flat payload variants put the session fields at the top level.
	PaymentStatusFlat   string
	ClientReferenceFlat string
	OrderIDFlat         string
	AmountFlat          decimal.Decimal
	CurrencyFlat        string

	Timestamp int64
	Raw       json.RawMessage
}

// decodeEvent reads any JSON object as an event. Wave sends many event types
// whose fields differ in type from the checkout ones, so scalars are read
// loosely and an unparseable amount is left at zero.
func decodeEvent(rawBody []byte) (*WebhookEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(rawBody))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errors.New("event body is not a JSON object")
	}
	data, _ := root["data"].(map[string]any)

	return &WebhookEvent{
		ID:        scalar(root, "id"),
		Type:      scalar(root, "type"),
		EventType: scalar(root, "event_type"),
		Data: WebhookEventData{
			ID:              scalar(data, "id"),
			Amount:          amount(data, "amount"),
			Currency:        scalar(data, "currency"),
			CheckoutStatus:  scalar(data, "checkout_status"),
			PaymentStatus:   scalar(data, "payment_status"),
			ClientReference: scalar(data, "client_reference"),
			TransactionID:   scalar(data, "transaction_id"),
		},
		PaymentStatusFlat:   scalar(root, "payment_status"),
		ClientReferenceFlat: scalar(root, "client_reference"),
		OrderIDFlat:         scalar(root, "order_id"),
		AmountFlat:          amount(root, "amount"),
		CurrencyFlat:        scalar(root, "currency"),
		Raw:                 append(json.RawMessage(nil), rawBody...),
	}, nil
}

func scalar(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

func amount(m map[string]any, key string) decimal.Decimal {
	d, err := decimal.NewFromString(scalar(m, key))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (e *WebhookEvent) Kind() string {
	return strings.TrimSpace(firstNonEmpty(e.Type, e.EventType))
}

func (e *WebhookEvent) PaymentStatus() string {
	return strings.ToLower(strings.TrimSpace(firstNonEmpty(e.Data.PaymentStatus, e.PaymentStatusFlat)))
}

// OrderID returns the client reference echoed back from the checkout session.
func (e *WebhookEvent) OrderID() string {
	return strings.TrimSpace(firstNonEmpty(e.Data.ClientReference, e.ClientReferenceFlat, e.OrderIDFlat))
}

func (e *WebhookEvent) Amount() decimal.Decimal {
	if !e.Data.Amount.IsZero() {
		return e.Data.Amount
	}
	return e.AmountFlat
}

func (e *WebhookEvent) Currency() string {
	return strings.ToUpper(firstNonEmpty(e.Data.Currency, e.CurrencyFlat))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
