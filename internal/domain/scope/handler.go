package scope

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediq/mediq/internal/platform/auth"
)

// Handler exposes the operating-context endpoints.
type Handler struct {
	resolver *Resolver
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// RegisterRoutes mounts the context endpoints on the given group. These
// routes resolve the scope themselves, so they only need auth middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/context", h.GetContext)
	g.POST("/context/switch", h.Switch)
}

type contextResponse struct {
	Scope                   Scope         `json:"scope"`
	Permissions             PermissionSet `json:"permissions"`
	CanSwitchToOrganization bool          `json:"can_switch_to_organization"`
	MembershipClass         string        `json:"membership_class"`
}

type switchRequest struct {
	Kind  Kind   `json:"kind"`
	OrgID string `json:"org_id,omitempty"`
}

// GetContext returns the active operating context and its permissions.
func (h *Handler) GetContext(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	sc, err := h.resolver.Active(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve operating context")
	}

	return h.respond(c, sc)
}

// Switch changes the active operating context. Switching to individual
// always succeeds; switching to an organization requires an active
// membership, and a rejected switch leaves the prior context untouched.
func (h *Handler) Switch(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req switchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var sc Scope
	switch req.Kind {
	case KindIndividual:
		sc, err = h.resolver.SwitchToIndividual(c.Request().Context(), userID)
	case KindOrganization:
		orgID, parseErr := uuid.Parse(req.OrgID)
		if parseErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid org_id")
		}
		sc, err = h.resolver.SwitchToOrganization(c.Request().Context(), userID, orgID)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be individual or organization")
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrNotAMember):
			return echo.NewHTTPError(http.StatusForbidden, ErrNotAMember.Error())
		case errors.Is(err, ErrMembershipSuspended):
			return echo.NewHTTPError(http.StatusForbidden, ErrMembershipSuspended.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to switch context")
		}
	}

	return h.respond(c, sc)
}

func (h *Handler) respond(c echo.Context, sc Scope) error {
	ctx := c.Request().Context()

	perms, decision, err := h.resolver.Permissions(ctx, sc)
	if err != nil || decision == Indeterminate {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "permission check unavailable")
	}

	canSwitch, err := h.resolver.CanSwitchToOrganization(ctx, sc.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "membership lookup unavailable")
	}
	class, err := h.resolver.MembershipClass(ctx, sc.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "membership lookup unavailable")
	}

	return c.JSON(http.StatusOK, contextResponse{
		Scope:                   sc,
		Permissions:             perms,
		CanSwitchToOrganization: canSwitch,
		MembershipClass:         class,
	})
}
