package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/mavuno/mavuno-api/app/models"
	"github.com/mavuno/mavuno-api/internal/pkg/idempotency"
	"github.com/mavuno/mavuno-api/internal/pkg/wave"
)

// Outcome reports what happened to a verified webhook event.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Notifier sends a best-effort text message.
type Notifier interface {
	Send(ctx context.Context, to, body string) (bool, error)
}

// Service reacts to verified Wave payment events.
type Service struct {
	guard      idempotency.Guard
	notifier   Notifier
	repo       Repository
	ownerPhone string
	events     map[string]struct{}
}

// NewService wires the collaborators; repo may be nil when no ledger is kept.
func NewService(guard idempotency.Guard, notifier Notifier, repo Repository, ownerPhone string) *Service {
	return &Service{
		guard:      guard,
		notifier:   notifier,
		repo:       repo,
		ownerPhone: strings.TrimSpace(ownerPhone),
		events: map[string]struct{}{
			wave.EventCheckoutSessionCompleted: {},
		},
	}
}

// HandleEvent notifies the merchant once per confirmed order and appends the
// ledger row. Only guard and ledger errors are returned.
func (s *Service) HandleEvent(ctx context.Context, event *wave.WebhookEvent) (Outcome, error) {
	kind := event.Kind()
	if _, ok := s.events[kind]; !ok {
		log.Infof("[WaveWebhook] Ignoring event %s (type=%s)", event.ID, kind)
		return OutcomeIgnored, nil
	}
	if status := event.PaymentStatus(); status != wave.PaymentStatusSucceeded {
		log.Infof("[WaveWebhook] Ignoring event %s with payment_status=%s", event.ID, status)
		return OutcomeIgnored, nil
	}

	orderID := event.OrderID()
	if orderID == "" {
		log.Warnf("[WaveWebhook] Event %s has no client_reference, ignoring", event.ID)
		return OutcomeIgnored, nil
	}

	admitted, err := s.guard.ShouldProcess(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("idempotency check for order %s: %w", orderID, err)
	}
	if !admitted {
		log.Infof("[WaveWebhook] Duplicate confirmation for order %s", orderID)
		// A redelivery after a failed ledger write still lands the row; the
		// insert is a no-op when it already exists.
		if err := s.record(ctx, event); err != nil {
			return "", err
		}
		return OutcomeDuplicate, nil
	}

	if _, err := s.notifier.Send(ctx, s.ownerPhone, MerchantMessage(event)); err != nil {
		log.Warnf("[WaveWebhook] Merchant SMS for order %s not sent: %v", orderID, err)
	}

	if err := s.record(ctx, event); err != nil {
		return "", err
	}

	log.Infof("[WaveWebhook] Payment confirmed for order %s", orderID)
	return OutcomeProcessed, nil
}

func (s *Service) record(ctx context.Context, event *wave.WebhookEvent) error {
	if s.repo == nil {
		return nil
	}
	created, err := s.repo.RecordPayment(ctx, paymentFromEvent(event))
	if err != nil {
		return fmt.Errorf("record payment for order %s: %w", event.OrderID(), err)
	}
	if created {
		log.Infof("[WaveWebhook] Payment for order %s added to ledger", event.OrderID())
	}
	return nil
}

// MerchantMessage summarizes a confirmed payment for the owner's phone.
func MerchantMessage(event *wave.WebhookEvent) string {
	currency := event.Currency()
	if currency == "" {
		currency = "GMD"
	}
	return fmt.Sprintf("Payment received for order %s: %s %s", event.OrderID(), event.Amount().StringFixed(2), currency)
}

func paymentFromEvent(event *wave.WebhookEvent) *models.Payment {
	currency := event.Currency()
	if currency == "" {
		currency = "GMD"
	}
	return &models.Payment{
		OrderID:           event.OrderID(),
		Provider:          models.PaymentProviderWave,
		Amount:            event.Amount().Round(2),
		Currency:          currency,
		Status:            models.PaymentStatusSucceeded,
		ProviderSessionID: event.Data.ID,
		ProviderEventID:   event.ID,
		TransactionID:     event.Data.TransactionID,
		RawPayloadJSON:    string(event.Raw),
	}
}
