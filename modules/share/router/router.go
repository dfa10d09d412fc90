package router

import (
	"github.com/JonCoulter/whenly/modules/share/controller"

	"github.com/labstack/echo/v4"
)

// ShareRouter handles share routes
type ShareRouter struct {
	ShareController *controller.ShareController
}

// NewShareRouter creates a new router
func NewShareRouter(shareController *controller.ShareController) *ShareRouter {
	return &ShareRouter{
		ShareController: shareController,
	}
}

// Setup registers share routes. Both are public: share links are meant to
// be opened by people without accounts.
func (r *ShareRouter) Setup(e *echo.Echo) {
	events := e.Group("/api/events")

	events.GET("/:id/share", r.ShareController.GetShareMetadata)
	events.POST("/:id/export", r.ShareController.ExportConsensus)
}
