package orders

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/mavuno/mavuno-api/internal/pkg/wave"
)

// CheckoutCreator creates hosted checkout sessions.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, in wave.CheckoutRequest) (*wave.CheckoutSession, error)
}

// Notifier sends a best-effort text message.
type Notifier interface {
	Send(ctx context.Context, to, body string) (bool, error)
}

type Options struct {
	Currency   string
	SuccessURL string
	ErrorURL   string
}

// Service turns an accepted order into a checkout session and texts the
// customer the payment link.
type Service struct {
	checkout CheckoutCreator
	notifier Notifier
	opts     Options
}

func NewService(checkout CheckoutCreator, notifier Notifier, opts Options) *Service {
	if opts.Currency == "" {
		opts.Currency = "GMD"
	}
	return &Service{checkout: checkout, notifier: notifier, opts: opts}
}

// Result describes a created payment link.
type Result struct {
	OrderID    string
	PaymentURL string
	SMSSent    bool
	SMSError   string
	Session    *wave.CheckoutSession
}

// Intake creates exactly one checkout session for order. Provider failures are
// returned unchanged (*wave.ProviderError, wave.ErrNoPaymentURL) and no SMS is
// sent for them; an SMS failure only clears Result.SMSSent.
func (s *Service) Intake(ctx context.Context, order *InboundOrder) (*Result, error) {
	log.Infof("[Intake] Order accepted: order_id=%s amount=%s", order.OrderID, order.Amount.StringFixed(2))

	session, err := s.checkout.CreateCheckoutSession(ctx, wave.CheckoutRequest{
		Amount:          order.Amount,
		Currency:        s.opts.Currency,
		ClientReference: order.OrderID,
		SuccessURL:      s.opts.SuccessURL,
		ErrorURL:        s.opts.ErrorURL,
	})
	if err != nil {
		log.Errorf("[Intake] Checkout session for order %s failed: %v", order.OrderID, err)
		return nil, err
	}

	res := &Result{
		OrderID:    order.OrderID,
		PaymentURL: session.PaymentURL,
		Session:    session,
	}

	sent, smsErr := s.notifier.Send(ctx, order.Phone, s.customerMessage(order, session.PaymentURL))
	res.SMSSent = sent
	if smsErr != nil {
		res.SMSError = smsErr.Error()
		log.Warnf("[Intake] Payment link SMS for order %s not sent: %v", order.OrderID, smsErr)
	}
	return res, nil
}

func (s *Service) customerMessage(order *InboundOrder, paymentURL string) string {
	return fmt.Sprintf("Thank you for your order #%s. Pay %s %s with Wave: %s",
		order.OrderID, order.Amount.StringFixed(2), s.opts.Currency, paymentURL)
}
