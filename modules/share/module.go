package share

import (
	"github.com/JonCoulter/whenly/core/storage"
	availabilityService "github.com/JonCoulter/whenly/modules/availability/service"
	"github.com/JonCoulter/whenly/modules/share/controller"
	"github.com/JonCoulter/whenly/modules/share/router"
	"github.com/JonCoulter/whenly/modules/share/service"

	"github.com/labstack/echo/v4"
)

// Init initializes the share module and registers routes
func Init(e *echo.Echo, availability availabilityService.AvailabilityServiceInterface, store storage.Storage) {
	svc := service.NewShareService(availability, store)
	ctrl := controller.NewShareController(svc)
	rtr := router.NewShareRouter(ctrl)

	rtr.Setup(e)
}
