package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediq/mediq/internal/platform/auth"
	"github.com/mediq/mediq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the unauthenticated account endpoints.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/signup", h.SignUp)
	g.POST("/auth/signin", h.SignIn)
	g.POST("/auth/verify-email", h.VerifyEmail)
	g.POST("/auth/resend-verification", h.ResendVerification)
}

// RegisterRoutes mounts the authenticated account endpoints.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/me", h.Me)

	admin := g.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/users", h.ListUsers)
	admin.PUT("/users/:id/role", h.UpdateRole)
	admin.PUT("/users/:id/disabled", h.SetDisabled)
}

type signUpRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type signUpResponse struct {
	User *User `json:"user"`
	// Returned in the response until an email delivery channel exists.
	VerificationToken string `json:"verification_token"`
}

func (h *Handler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := h.svc.SignUp(c.Request().Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, signUpResponse{User: res.User, VerificationToken: res.VerificationToken})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := h.svc.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrEmailNotVerified), errors.Is(err, ErrAccountDisabled):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "sign in failed")
		}
	}
	return c.JSON(http.StatusOK, signInResponse{User: res.User, Token: res.Token, ExpiresAt: res.ExpiresAt})
}

type verifyRequest struct {
	Token string `json:"token"`
}

func (h *Handler) VerifyEmail(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	if err := h.svc.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "verification failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "verified"})
}

type resendRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ResendVerification(c echo.Context) error {
	var req resendRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	token, err := h.svc.ResendVerification(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Do not reveal whether the address is registered.
			return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent", "verification_token": token})
}

func (h *Handler) Me(c echo.Context) error {
	userID, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	u, err := h.svc.Get(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load account")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list users")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) UpdateRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.UpdateRole(c.Request().Context(), id, req.Role)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

type disabledRequest struct {
	Disabled bool `json:"disabled"`
}

func (h *Handler) SetDisabled(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req disabledRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.SetDisabled(c.Request().Context(), id, req.Disabled)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update account")
	}
	return c.JSON(http.StatusOK, u)
}
