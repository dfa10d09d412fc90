package availability

import (
	"github.com/JonCoulter/whenly/core/cache"
	"github.com/JonCoulter/whenly/core/database"
	"github.com/JonCoulter/whenly/core/middleware"
	"github.com/JonCoulter/whenly/modules/availability/controller"
	"github.com/JonCoulter/whenly/modules/availability/repository"
	"github.com/JonCoulter/whenly/modules/availability/router"
	"github.com/JonCoulter/whenly/modules/availability/service"

	"github.com/labstack/echo/v4"
)

// Init initializes the availability module and registers routes. The
// returned service is shared with the background worker for tally refreshes.
func Init(e *echo.Echo, db database.IDatabase, c cache.Cache, mw *middleware.Middleware, enqueuer service.TallyEnqueuer) service.AvailabilityServiceInterface {
	repo := repository.NewAvailabilityRepository(db)
	svc := service.NewAvailabilityService(repo, c, enqueuer)
	ctrl := controller.NewAvailabilityController(svc)
	rtr := router.NewAvailabilityRouter(ctrl)

	rtr.Setup(e, mw)
	return svc
}
