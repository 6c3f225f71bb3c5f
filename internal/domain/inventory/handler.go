package inventory

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediq/mediq/internal/domain/scope"
	"github.com/mediq/mediq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the inventory endpoints. The group must carry the
// context middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	manage := scope.RequirePermission(scope.PermManageInventory)
	dispense := scope.RequirePermission(scope.PermDispenseDrugs)
	writeOff := scope.RequirePermission(scope.PermWriteOffDrugs)
	view := scope.RequirePermission(scope.PermViewReports)

	g.POST("/drugs", h.Create, manage)
	g.GET("/drugs", h.List)
	g.GET("/drugs/low-stock", h.LowStock)
	g.GET("/drugs/:id", h.Get)
	g.PUT("/drugs/:id", h.Update, manage)
	g.DELETE("/drugs/:id", h.Delete, manage)

	g.POST("/drugs/:id/dispense", h.Dispense, dispense)
	g.POST("/drugs/:id/write-off", h.WriteOff, writeOff)
	g.GET("/drugs/:id/usage", h.DrugUsage, view)
	g.GET("/usage", h.Usage, view)
}

func activeScope(c echo.Context) (scope.Scope, error) {
	sc, ok := scope.FromContext(c)
	if !ok {
		return scope.Scope{}, echo.NewHTTPError(http.StatusInternalServerError, "operating context missing")
	}
	return sc, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "inventory operation failed")
	}
}

func (h *Handler) Create(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.Create(c.Request().Context(), sc, &in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d.View())
}

func (h *Handler) Get(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), sc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d.View())
}

func (h *Handler) List(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), sc, c.QueryParam("search"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list drugs")
	}
	views := make([]interface{}, 0, len(items))
	for _, d := range items {
		views = append(views, d.View())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

func (h *Handler) LowStock(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	items, err := h.svc.LowStock(c.Request().Context(), sc)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list low stock")
	}
	views := make([]interface{}, 0, len(items))
	for _, d := range items {
		views = append(views, d.View())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": views})
}

func (h *Handler) Update(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.Update(c.Request().Context(), sc, id, &in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d.View())
}

func (h *Handler) Delete(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), sc, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type usageRequest struct {
	Quantity    int        `json:"quantity"`
	Reason      string     `json:"reason"`
	PatientID   *uuid.UUID `json:"patient_id"`
	DiagnosisID *uuid.UUID `json:"diagnosis_id"`
}

func (h *Handler) Dispense(c echo.Context) error {
	return h.consume(c, false)
}

func (h *Handler) WriteOff(c echo.Context) error {
	return h.consume(c, true)
}

func (h *Handler) consume(c echo.Context, writeOff bool) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req usageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in := &UsageInput{
		DrugID:      id,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		PatientID:   req.PatientID,
		DiagnosisID: req.DiagnosisID,
	}
	var rec *UsageRecord
	if writeOff {
		rec, err = h.svc.WriteOff(c.Request().Context(), sc, in)
	} else {
		rec, err = h.svc.RecordUsage(c.Request().Context(), sc, in)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInsufficientStock) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) DrugUsage(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsage(c.Request().Context(), sc, &id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list usage")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Usage(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsage(c.Request().Context(), sc, nil, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list usage")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
