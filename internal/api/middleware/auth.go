package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/orderahead/sync-engine/internal/api/handler"
	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
	"github.com/orderahead/sync-engine/internal/core/service"
)

// Auth validates the bearer token through auth and injects the resulting
// identity into the echo context. The request id is carried into the
// request context so service logs can be correlated.
func Auth(auth ports.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return fmt.Errorf("%w: missing authorization header", domain.ErrAuthentication)
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") {
				return fmt.Errorf("%w: invalid authorization header", domain.ErrAuthentication)
			}

			ctx := service.WithRequestID(c.Request().Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			identity, err := auth.Authenticate(ctx, token)
			if err != nil {
				return err
			}

			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(handler.IdentityKey, identity)
			return next(c)
		}
	}
}
