package scope

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mediq/mediq/internal/platform/auth"
)

const (
	// ScopeContextKey holds the resolved Scope on the echo context.
	ScopeContextKey = "active_scope"
	// PermissionsContextKey holds the resolved PermissionSet.
	PermissionsContextKey = "active_permissions"
)

// Middleware resolves the active operating context and its permission
// bundle once per request and stores both on the echo context. It must run
// after the auth middleware.
func Middleware(r *Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := auth.UserUUIDFromContext(c.Request().Context())
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			sc, err := r.Active(c.Request().Context(), userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve operating context")
			}

			perms, decision, err := r.Permissions(c.Request().Context(), sc)
			if err != nil || decision == Indeterminate {
				// Fail closed, but distinguish a lookup failure from a
				// genuine denial for the caller.
				return echo.NewHTTPError(http.StatusServiceUnavailable, "permission check unavailable")
			}
			if decision == Deny {
				return echo.NewHTTPError(http.StatusForbidden, "no access in this context")
			}

			c.Set(ScopeContextKey, sc)
			c.Set(PermissionsContextKey, perms)
			return next(c)
		}
	}
}

// FromContext returns the resolved scope placed by Middleware.
func FromContext(c echo.Context) (Scope, bool) {
	sc, ok := c.Get(ScopeContextKey).(Scope)
	return sc, ok
}

// PermissionsFromContext returns the resolved bundle placed by Middleware.
func PermissionsFromContext(c echo.Context) (PermissionSet, bool) {
	perms, ok := c.Get(PermissionsContextKey).(PermissionSet)
	return perms, ok
}

// RequirePermission gates a route on one permission of the active context.
func RequirePermission(perm Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			perms, ok := PermissionsFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "permission check unavailable")
			}
			if !perms.Has(perm) {
				return echo.NewHTTPError(http.StatusForbidden, "missing permission: "+string(perm))
			}
			return next(c)
		}
	}
}
