package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mavuno/mavuno-api/app/controllers"
)

// HttpRouter serves the unauthenticated liveness routes.
type HttpRouter struct {
	main *controllers.MainController
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/", h.main.Index)
	app.Get("/health", h.main.Health)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{main: controllers.NewMainController(deps.ServiceName)}
}
