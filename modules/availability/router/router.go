package router

import (
	"github.com/JonCoulter/whenly/core/middleware"
	"github.com/JonCoulter/whenly/modules/availability/controller"

	"github.com/labstack/echo/v4"
)

// AvailabilityRouter handles event and response routes
type AvailabilityRouter struct {
	AvailabilityController *controller.AvailabilityController
}

// NewAvailabilityRouter creates a new router
func NewAvailabilityRouter(availabilityController *controller.AvailabilityController) *AvailabilityRouter {
	return &AvailabilityRouter{
		AvailabilityController: availabilityController,
	}
}

// Setup registers event routes. Events are open to anonymous participants,
// so most routes take the optional auth middleware.
func (r *AvailabilityRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	api := e.Group("/api")

	events := api.Group("/events", mw.OptionalAuthMiddleware())
	events.POST("", r.AvailabilityController.CreateEvent)
	events.GET("/:id", r.AvailabilityController.GetEvent)
	events.POST("/:id/availability", r.AvailabilityController.SubmitAvailability)
	events.PUT("/:id/availability", r.AvailabilityController.UpdateAvailability)
	events.GET("/:id/responses", r.AvailabilityController.GetResponses)
	events.GET("/:id/summary", r.AvailabilityController.GetTallySummary)

	private := api.Group("/private", mw.AuthMiddleware())
	private.GET("/events", r.AvailabilityController.GetMyEvents)
}
