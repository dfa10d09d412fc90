package controller

import (
	"github.com/JonCoulter/whenly/core/controller"
	"github.com/JonCoulter/whenly/modules/share/service"

	"github.com/labstack/echo/v4"
)

// ShareController handles share metadata and export HTTP requests
type ShareController struct {
	controller.BaseController
	ShareService service.ShareServiceInterface
}

// NewShareController creates a new controller
func NewShareController(svc service.ShareServiceInterface) *ShareController {
	return &ShareController{
		BaseController: controller.NewBaseController(),
		ShareService:   svc,
	}
}

// GetShareMetadata handles GET /events/:id/share
func (c *ShareController) GetShareMetadata(ctx echo.Context) error {
	result, appErr := c.ShareService.GetShareMetadata(ctx.Request().Context(), ctx.Param("id"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// ExportConsensus handles POST /events/:id/export
func (c *ShareController) ExportConsensus(ctx echo.Context) error {
	result, appErr := c.ShareService.ExportConsensus(ctx.Request().Context(), ctx.Param("id"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Export ready")
}
