package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/orderahead/sync-engine/internal/core/domain"
)

// IdentityKey is the echo context key the Auth middleware stores the
// authenticated identity under.
const IdentityKey = "identity"

// ctxIdentity extracts the identity injected by the Auth middleware. A zero
// subject means the middleware did not run for this route.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, _ := c.Get(IdentityKey).(domain.Identity)
	if id.SubjectID <= 0 || !id.Role.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: missing authentication claims", domain.ErrAuthentication)
	}
	return id, nil
}
