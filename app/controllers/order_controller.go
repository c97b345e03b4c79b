package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/mavuno/mavuno-api/internal/pkg/orders"
	"github.com/mavuno/mavuno-api/internal/pkg/wave"
)

const intakeTimeout = 30 * time.Second

// OrderIntaker creates a payment link for an accepted order.
type OrderIntaker interface {
	Intake(ctx context.Context, order *orders.InboundOrder) (*orders.Result, error)
}

type OrderController struct {
	intake OrderIntaker
}

func NewOrderController(intake OrderIntaker) *OrderController {
	return &OrderController{intake: intake}
}

// HandleOrderAccepted serves POST /orders/accepted.
func (h *OrderController) HandleOrderAccepted(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	order, err := orders.ParseInboundOrder(body)
	if err != nil {
		kind := orders.ErrorKind(err)
		if kind == "" {
			kind = orders.KindInvalidPayload
		}
		log.Warnf("[Intake] Rejected order payload (%s): %v", kind, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": kind, "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), intakeTimeout)
	defer cancel()

	res, err := h.intake.Intake(ctx, order)
	if err != nil {
		var providerErr *wave.ProviderError
		switch {
		case errors.As(err, &providerErr):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "provider_error",
				"message": "Failed to create Wave payment",
				"status":  providerErr.StatusCode,
				"details": providerErr.Body,
			})
		case errors.Is(err, wave.ErrNoPaymentURL):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "no_payment_url",
				"message": "Wave response did not include a payment URL",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "intake_failed",
				"message": err.Error(),
			})
		}
	}

	out := fiber.Map{
		"status":      "payment_created",
		"order_id":    res.OrderID,
		"payment_url": res.PaymentURL,
		"sms_sent":    res.SMSSent,
	}
	if res.SMSError != "" {
		out["sms_error"] = res.SMSError
	}
	if res.Session != nil && len(res.Session.Raw) > 0 {
		out["wave"] = res.Session.Raw
	}
	return c.Status(fiber.StatusOK).JSON(out)
}
