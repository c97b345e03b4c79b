package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// MainController answers liveness probes.
type MainController struct {
	ServiceName string
	Now         func() time.Time
}

func NewMainController(serviceName string) *MainController {
	return &MainController{ServiceName: serviceName, Now: time.Now}
}

func (h *MainController) Index(c *fiber.Ctx) error {
	return c.SendString("Mavuno API is running")
}

func (h *MainController) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"service": h.ServiceName,
		"time":    h.Now().UTC().Format(time.RFC3339),
	})
}
