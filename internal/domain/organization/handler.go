package organization

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediq/mediq/internal/domain/scope"
	"github.com/mediq/mediq/internal/platform/auth"
	"github.com/mediq/mediq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/organizations", h.Create)
	g.GET("/organizations/:id", h.Get)
	g.PUT("/organizations/:id", h.Update)
	g.GET("/organizations/:id/members", h.ListMembers)
	g.POST("/organizations/:id/invitations", h.Invite)
	g.GET("/organizations/:id/invitations", h.ListInvitations)

	g.PUT("/members/:id/permissions", h.UpdateMemberPermissions)
	g.PUT("/members/:id/status", h.SetMemberStatus)
	g.DELETE("/members/:id", h.RemoveMember)

	g.POST("/invitations/accept", h.AcceptInvitation)
	g.POST("/invitations/decline", h.DeclineInvitation)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrOrgNotFound), errors.Is(err, ErrMemberNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotAuthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrAlreadyInvited), errors.Is(err, ErrLastAdmin):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInviteInvalid), errors.Is(err, ErrInviteEmailMatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "organization operation failed")
	}
}

type createRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Settings    *Settings `json:"settings"`
}

func (h *Handler) Create(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	o, err := h.svc.Create(c.Request().Context(), userID, req.Name, req.Description, req.Settings)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

type updateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Settings    Settings `json:"settings"`
}

func (h *Handler) Update(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	o, err := h.svc.UpdateSettings(c.Request().Context(), userID, orgID, req.Name, req.Description, req.Settings)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListMembers(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMembers(c.Request().Context(), userID, orgID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type inviteRequest struct {
	Email       string               `json:"email"`
	Role        string               `json:"role"`
	Permissions *scope.PermissionSet `json:"permissions,omitempty"`
}

func (h *Handler) Invite(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req inviteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Role == "" {
		req.Role = RoleMember
	}
	inv, err := h.svc.Invite(c.Request().Context(), userID, orgID, req.Email, req.Role, req.Permissions)
	if err != nil {
		if errors.Is(err, ErrNotAuthorized) || errors.Is(err, ErrAlreadyInvited) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) ListInvitations(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListInvitations(c.Request().Context(), userID, orgID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type permissionsRequest struct {
	Permissions scope.PermissionSet `json:"permissions"`
}

func (h *Handler) UpdateMemberPermissions(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req permissionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.UpdateMemberPermissions(c.Request().Context(), userID, memberID, req.Permissions)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetMemberStatus(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.SetMemberStatus(c.Request().Context(), userID, memberID, req.Status)
	if err != nil {
		if errors.Is(err, ErrNotAuthorized) || errors.Is(err, ErrMemberNotFound) || errors.Is(err, ErrLastAdmin) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) RemoveMember(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RemoveMember(c.Request().Context(), userID, memberID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) AcceptInvitation(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req tokenRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	email := auth.EmailFromContext(c.Request().Context())
	m, err := h.svc.Accept(c.Request().Context(), userID, email, req.Token)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) DeclineInvitation(c echo.Context) error {
	if _, err := auth.UserUUIDFromContext(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req tokenRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	email := auth.EmailFromContext(c.Request().Context())
	if err := h.svc.Decline(c.Request().Context(), email, req.Token); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "declined"})
}
