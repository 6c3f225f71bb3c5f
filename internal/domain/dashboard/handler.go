package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mediq/mediq/internal/domain/scope"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the dashboard endpoint. The group must carry the
// context middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/dashboard", h.Summary, scope.RequirePermission(scope.PermViewReports))
}

func (h *Handler) Summary(c echo.Context) error {
	sc, ok := scope.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "operating context missing")
	}
	s, err := h.svc.Summary(c.Request().Context(), sc)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build dashboard")
	}
	return c.JSON(http.StatusOK, s)
}
