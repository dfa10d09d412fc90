package middleware

import (
	"strings"

	"github.com/JonCoulter/whenly/core/cache"
	"github.com/JonCoulter/whenly/core/controller"
	"github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/core/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys populated by the auth middleware.
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
	ContextKeyUserName  = "user_name"
)

type Middleware struct {
	cache cache.Cache
	base  controller.BaseController
}

func NewMiddleware(cache cache.Cache) *Middleware {
	return &Middleware{
		cache: cache,
		base:  controller.NewBaseController(),
	}
}

// AuthMiddleware rejects requests without a valid bearer token.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, httpErr := m.extractBearer(c)
			if httpErr != nil {
				return httpErr
			}
			if err := m.authenticate(c, token); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalAuthMiddleware populates the caller identity when a valid token is
// present and otherwise lets the request through anonymously.
func (m *Middleware) OptionalAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}
			token := strings.TrimPrefix(header, "Bearer ")
			if token == header || token == "" {
				return next(c)
			}
			// Invalid tokens are treated as anonymous rather than rejected.
			_ = m.authenticate(c, token)
			return next(c)
		}
	}
}

func (m *Middleware) extractBearer(c echo.Context) (string, *echo.HTTPError) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", m.base.Unauthorized(errors.ErrMissingAuthorizationHeader, "missing Authorization header")
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return "", m.base.Unauthorized(errors.ErrInvalidTokenFormat, "Authorization header must be a Bearer token")
	}
	return token, nil
}

func (m *Middleware) authenticate(c echo.Context, token string) error {
	ctx := c.Request().Context()

	blacklisted, err := m.cache.IsTokenBlacklisted(ctx, token)
	if err == nil && blacklisted {
		return m.base.Unauthorized(errors.ErrUnauthorized, "token is no longer valid")
	}

	claims, err := utils.ValidateAndParseToken(token)
	if err != nil {
		return m.base.Unauthorized(errors.ErrUnauthorized, "invalid or expired token")
	}

	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyUserEmail, claims.Email)
	c.Set(ContextKeyUserName, claims.Name)
	return nil
}

// UserIDFromContext returns the authenticated user id, when present.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ContextKeyUserID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// UserEmailFromContext returns the authenticated user's email, when present.
func UserEmailFromContext(c echo.Context) (string, bool) {
	email, ok := c.Get(ContextKeyUserEmail).(string)
	return email, ok && email != ""
}

// UserNameFromContext returns the authenticated user's display name, when present.
func UserNameFromContext(c echo.Context) (string, bool) {
	name, ok := c.Get(ContextKeyUserName).(string)
	return name, ok && name != ""
}
