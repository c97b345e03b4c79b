package orders

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPayload = errors.New("order payload is not valid JSON")
	ErrMissingFields  = errors.New("orderId, amount, and phone are required")
	ErrInvalidPhone   = errors.New("phone must be 7 to 15 digits with an optional leading +")
	ErrInvalidAmount  = errors.New("amount must be a positive number")
)

// Stable error codes reported to the order platform.
const (
	KindInvalidPayload = "invalid_payload"
	KindMissingFields  = "missing_fields"
	KindInvalidPhone   = "invalid_phone"
	KindInvalidAmount  = "invalid_amount"
)

// ErrorKind maps a ParseInboundOrder error to its code, or "" for anything else.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPayload):
		return KindInvalidPayload
	case errors.Is(err, ErrMissingFields):
		return KindMissingFields
	case errors.Is(err, ErrInvalidPhone):
		return KindInvalidPhone
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	}
	return ""
}

var (
	phonePattern   = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	phoneSeparator = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	validate       = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// InboundOrder is an accepted order normalized from either payload shape.
type InboundOrder struct {
	OrderID string          `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Phone   string          `json:"phone"`
}

type rawOrder struct {
	OrderID string `validate:"required"`
	Amount  string `validate:"required"`
	Phone   string `validate:"required,phone"`
}

// ParseInboundOrder accepts the flat {orderId|order_id, amount|total_price,
// phone|client_phone} body or the ordering platform's {orders:[...]} envelope.
func ParseInboundOrder(body []byte) (*InboundOrder, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	src := root
	if list, ok := root["orders"].([]any); ok && len(list) > 0 {
		if first, ok := list[0].(map[string]any); ok {
			src = first
		}
	}

	raw := rawOrder{
		OrderID: scalar(src, "orderId", "order_id", "id"),
		Amount:  scalar(src, "amount", "total_price"),
		Phone:   scalar(src, "phone", "client_phone"),
	}
	if raw.Phone == "" {
		if customer, ok := src["customer"].(map[string]any); ok {
			raw.Phone = scalar(customer, "phone")
		}
	}
	raw.Phone = NormalizePhone(raw.Phone)

	return raw.validate()
}

func (r rawOrder) validate() (*InboundOrder, error) {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		var missing []string
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				missing = append(missing, fieldName(fe.Field()))
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w (missing: %s)", ErrMissingFields, strings.Join(missing, ", "))
		}
		return nil, ErrInvalidPhone
	}

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	// Checked after rounding so that nothing below one cent reaches Wave as 0.00.
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	return &InboundOrder{
		OrderID: r.OrderID,
		Amount:  amount,
		Phone:   r.Phone,
	}, nil
}

// NormalizePhone drops common formatting characters.
func NormalizePhone(phone string) string {
	return phoneSeparator.Replace(strings.TrimSpace(phone))
}

func scalar(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func fieldName(field string) string {
	switch field {
	case "OrderID":
		return "orderId"
	case "Amount":
		return "amount"
	default:
		return "phone"
	}
}
