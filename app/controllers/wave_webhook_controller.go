package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/mavuno/mavuno-api/internal/pkg/payments"
	"github.com/mavuno/mavuno-api/internal/pkg/wave"
)

const webhookTimeout = 15 * time.Second

// SignatureVerifier authenticates a raw webhook body.
type SignatureVerifier interface {
	Verify(header string, rawBody []byte, now time.Time) (*wave.WebhookEvent, error)
}

// PaymentEventHandler reacts to a verified payment event.
type PaymentEventHandler interface {
	HandleEvent(ctx context.Context, event *wave.WebhookEvent) (payments.Outcome, error)
}

type WaveWebhookController struct {
	verifier SignatureVerifier
	handler  PaymentEventHandler
	Now      func() time.Time
}

func NewWaveWebhookController(verifier SignatureVerifier, handler PaymentEventHandler) *WaveWebhookController {
	return &WaveWebhookController{verifier: verifier, handler: handler, Now: time.Now}
}

// HandleWaveWebhook serves POST /webhooks/wave. The body is verified byte for
// byte before anything parses it.
func (h *WaveWebhookController) HandleWaveWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get(wave.SignatureHeader)

	event, err := h.verifier.Verify(signature, rawBody, h.Now())
	if err != nil {
		if errors.Is(err, wave.ErrMalformedPayload) {
			log.Errorf("[WaveWebhook] Verified body could not be decoded: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "invalid_payload"})
		}
		log.Warnf("[WaveWebhook] Rejected delivery from %s: %v", c.IP(), err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	outcome, err := h.handler.HandleEvent(ctx, event)
	if err != nil {
		log.Errorf("[WaveWebhook] Processing event %s failed: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "outcome": outcome})
}
