package middleware

import (
	"fmt"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/orderahead/sync-engine/internal/api/handler"
	"github.com/orderahead/sync-engine/internal/core/domain"
)

// RBAC enforces role-based access control on the identity set by Auth.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, _ := c.Get(handler.IdentityKey).(domain.Identity)
			if !slices.Contains(allowedRoles, identity.Role) {
				return fmt.Errorf("%w: role %q may not perform this action", domain.ErrForbidden, identity.Role)
			}
			return next(c)
		}
	}
}

// StaffOnly admits staff and admin identities.
func StaffOnly() echo.MiddlewareFunc {
	return RBAC(domain.RoleStaff, domain.RoleAdmin)
}
