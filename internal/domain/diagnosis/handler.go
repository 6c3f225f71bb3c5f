package diagnosis

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediq/mediq/internal/domain/patient"
	"github.com/mediq/mediq/internal/domain/scope"
	"github.com/mediq/mediq/internal/platform/export"
	"github.com/mediq/mediq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the diagnosis endpoints. The group must carry the
// context middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	diagnose := scope.RequirePermission(scope.PermDiagnosePatients)
	view := scope.RequirePermission(scope.PermViewReports)

	g.POST("/diagnoses", h.Submit, diagnose)
	g.GET("/diagnoses", h.List, view)
	g.GET("/diagnoses/:id", h.Get, view)
	g.PUT("/diagnoses/:id", h.Edit, diagnose)
	g.POST("/diagnoses/:id/suggestions", h.AttachSuggestion, diagnose)
	g.GET("/diagnoses/:id/export", h.Export, view)
}

func activeScope(c echo.Context) (scope.Scope, error) {
	sc, ok := scope.FromContext(c)
	if !ok {
		return scope.Scope{}, echo.NewHTTPError(http.StatusInternalServerError, "operating context missing")
	}
	return sc, nil
}

func (h *Handler) Submit(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	var in SubmitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.Submit(c.Request().Context(), sc, &in)
	if err != nil {
		switch {
		case errors.Is(err, patient.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrWorkflowFailed), errors.Is(err, ErrWorkflowUnreadable):
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, d)
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
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load diagnosis")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) List(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)

	var patientID *uuid.UUID
	if raw := c.QueryParam("patient_id"); raw != "" {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		patientID = &pid
	}

	items, total, err := h.svc.List(c.Request().Context(), sc, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list diagnoses")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Edit(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in EditInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.Edit(c.Request().Context(), sc, id, &in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) AttachSuggestion(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in SuggestionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.AttachSuggestion(c.Request().Context(), sc, id, &in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Export(c echo.Context) error {
	sc, err := activeScope(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	format := export.Format(c.QueryParam("format"))
	if !format.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "format must be excel, pdf or word")
	}

	data, err := h.svc.Export(c.Request().Context(), sc, id, format)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, patient.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render export")
	}

	filename := fmt.Sprintf("diagnosis-%s%s", id, format.Extension())
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, format.ContentType(), data)
}
