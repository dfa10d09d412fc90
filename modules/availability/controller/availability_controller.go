package controller

import (
	"github.com/JonCoulter/whenly/core/controller"
	"github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/core/middleware"
	"github.com/JonCoulter/whenly/modules/availability/dto"
	"github.com/JonCoulter/whenly/modules/availability/entity"
	"github.com/JonCoulter/whenly/modules/availability/service"

	"github.com/labstack/echo/v4"
)

// AvailabilityController handles event and response HTTP requests
type AvailabilityController struct {
	controller.BaseController
	AvailabilityService service.AvailabilityServiceInterface
}

// NewAvailabilityController creates a new controller
func NewAvailabilityController(svc service.AvailabilityServiceInterface) *AvailabilityController {
	return &AvailabilityController{
		BaseController:      controller.NewBaseController(),
		AvailabilityService: svc,
	}
}

// responderFromRequest resolves the caller identity: the token identity wins
// when present, the request body's display name otherwise.
func responderFromRequest(ctx echo.Context, userName string) entity.Responder {
	responder := entity.Responder{Name: userName}
	if id, ok := middleware.UserIDFromContext(ctx); ok {
		idStr := id.String()
		responder.UserID = &idStr
		if responder.Name == "" {
			if name, ok := middleware.UserNameFromContext(ctx); ok {
				responder.Name = name
			}
		}
	}
	return responder
}

// CreateEvent handles POST /events
func (c *AvailabilityController) CreateEvent(ctx echo.Context) error {
	var req dto.CreateEventRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	var creator *entity.Responder
	if id, ok := middleware.UserIDFromContext(ctx); ok {
		idStr := id.String()
		name, _ := middleware.UserNameFromContext(ctx)
		creator = &entity.Responder{UserID: &idStr, Name: name}
	}

	result, appErr := c.AvailabilityService.CreateEvent(ctx.Request().Context(), creator, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Event created successfully")
}

// GetEvent handles GET /events/:id
func (c *AvailabilityController) GetEvent(ctx echo.Context) error {
	result, appErr := c.AvailabilityService.GetEvent(ctx.Request().Context(), ctx.Param("id"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// GetMyEvents handles GET /events
func (c *AvailabilityController) GetMyEvents(ctx echo.Context) error {
	id, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	result, appErr := c.AvailabilityService.GetMyEvents(ctx.Request().Context(), id.String())
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// SubmitAvailability handles POST /events/:id/availability
func (c *AvailabilityController) SubmitAvailability(ctx echo.Context) error {
	return c.writeAvailability(ctx, false)
}

// UpdateAvailability handles PUT /events/:id/availability
func (c *AvailabilityController) UpdateAvailability(ctx echo.Context) error {
	return c.writeAvailability(ctx, true)
}

func (c *AvailabilityController) writeAvailability(ctx echo.Context, replace bool) error {
	var req dto.SubmitAvailabilityRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	eventID := ctx.Param("id")
	responder := responderFromRequest(ctx, req.UserName)

	var appErr *errors.AppError
	if replace {
		appErr = c.AvailabilityService.UpdateAvailability(ctx.Request().Context(), eventID, responder, req.SlotKeys)
	} else {
		appErr = c.AvailabilityService.SubmitAvailability(ctx.Request().Context(), eventID, responder, req.SlotKeys)
	}
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, nil, "Availability saved")
}

// GetResponses handles GET /events/:id/responses
func (c *AvailabilityController) GetResponses(ctx echo.Context) error {
	result, appErr := c.AvailabilityService.GetResponses(ctx.Request().Context(), ctx.Param("id"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// GetTallySummary handles GET /events/:id/summary
func (c *AvailabilityController) GetTallySummary(ctx echo.Context) error {
	result, appErr := c.AvailabilityService.GetTallySummary(ctx.Request().Context(), ctx.Param("id"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}
