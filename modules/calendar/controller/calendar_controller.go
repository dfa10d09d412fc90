package controller

import (
	"strconv"

	"github.com/JonCoulter/whenly/core/controller"
	"github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/core/middleware"
	"github.com/JonCoulter/whenly/modules/calendar/dto"
	"github.com/JonCoulter/whenly/modules/calendar/entity"
	"github.com/JonCoulter/whenly/modules/calendar/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CalendarController handles calendar HTTP requests
type CalendarController struct {
	controller.BaseController
	CalendarService service.CalendarServiceInterface
}

// NewCalendarController creates a new controller
func NewCalendarController(svc service.CalendarServiceInterface) *CalendarController {
	return &CalendarController{
		BaseController:  controller.NewBaseController(),
		CalendarService: svc,
	}
}

// GetMergedCalendar handles GET /calendar/merged
func (c *CalendarController) GetMergedCalendar(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	windowDays := 0
	if raw := ctx.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.BadRequest(errors.ErrInvalidInput, "days must be a non-negative integer")
		}
		windowDays = n
	}

	result, appErr := c.CalendarService.GetMergedCalendar(ctx.Request().Context(), userID, windowDays)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// GetConnections handles GET /calendar/connections
func (c *CalendarController) GetConnections(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	result, appErr := c.CalendarService.GetConnections(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// DisconnectCalendar handles DELETE /calendar/connections/google
func (c *CalendarController) DisconnectCalendar(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	if appErr := c.CalendarService.DisconnectCalendar(ctx.Request().Context(), userID, entity.ProviderGoogle); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, nil, "Calendar disconnected")
}

// AddICSSubscription handles POST /calendar/subscriptions
func (c *CalendarController) AddICSSubscription(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.AddICSSubscriptionRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.CalendarService.AddICSSubscription(ctx.Request().Context(), userID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Subscription added")
}

// ListICSSubscriptions handles GET /calendar/subscriptions
func (c *CalendarController) ListICSSubscriptions(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	result, appErr := c.CalendarService.ListICSSubscriptions(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// RemoveICSSubscription handles DELETE /calendar/subscriptions/:id
func (c *CalendarController) RemoveICSSubscription(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	subID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid subscription ID")
	}

	if appErr := c.CalendarService.RemoveICSSubscription(ctx.Request().Context(), userID, subID); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, nil, "Subscription removed")
}
