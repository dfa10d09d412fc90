package controller

import (
	"strings"

	"github.com/JonCoulter/whenly/core/controller"
	"github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/core/middleware"
	"github.com/JonCoulter/whenly/modules/auth/dto"
	"github.com/JonCoulter/whenly/modules/auth/service"

	"github.com/labstack/echo/v4"
)

// AuthController handles authentication HTTP requests
type AuthController struct {
	controller.BaseController
	AuthService service.AuthServiceInterface
}

// NewAuthController creates a new controller
func NewAuthController(svc service.AuthServiceInterface) *AuthController {
	return &AuthController{
		BaseController: controller.NewBaseController(),
		AuthService:    svc,
	}
}

// GoogleLogin handles GET /auth/google
func (c *AuthController) GoogleLogin(ctx echo.Context) error {
	authURL, appErr := c.AuthService.GetGoogleAuthURL(ctx.Request().Context())
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, dto.GoogleAuthURLResponse{AuthURL: authURL}, "Success")
}

// GoogleCallback handles GET /auth/google/callback
func (c *AuthController) GoogleCallback(ctx echo.Context) error {
	code := ctx.QueryParam("code")
	state := ctx.QueryParam("state")
	if code == "" || state == "" {
		return c.BadRequest(errors.ErrInvalidInput, "code and state are required")
	}

	result, appErr := c.AuthService.HandleGoogleCallback(ctx.Request().Context(), code, state)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Login successful")
}

// GetMe handles GET /auth/me
func (c *AuthController) GetMe(ctx echo.Context) error {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	result, appErr := c.AuthService.GetMe(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// RefreshToken handles POST /auth/refresh
func (c *AuthController) RefreshToken(ctx echo.Context) error {
	var req dto.RefreshTokenRequest
	if err := ctx.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.BadRequest(errors.ErrInvalidInput, "refresh_token is required")
	}

	result, appErr := c.AuthService.RefreshToken(ctx.Request().Context(), req.RefreshToken)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// Logout handles POST /auth/logout
func (c *AuthController) Logout(ctx echo.Context) error {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header || token == "" {
		return c.Unauthorized(errors.ErrMissingAuthorizationHeader, "missing bearer token")
	}

	if appErr := c.AuthService.Logout(ctx.Request().Context(), token); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, nil, "Logged out")
}
