package scope

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediq/mediq/internal/platform/auth"
	"github.com/mediq/mediq/internal/platform/session"
)

func withUser(userID uuid.UUID) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserIDKey, userID.String())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func TestMiddleware_SetsScopeAndPermissions(t *testing.T) {
	userID := uuid.New()
	r := NewResolver(&mockMembers{memberships: map[string]*Membership{}}, session.NewMemoryStore())

	e := echo.New()
	e.GET("/probe", func(c echo.Context) error {
		sc, ok := FromContext(c)
		if !ok || sc.Kind != KindIndividual {
			t.Errorf("expected individual scope on context, got %+v (ok=%v)", sc, ok)
		}
		perms, ok := PermissionsFromContext(c)
		if !ok || !perms.Has(PermDiagnosePatients) {
			t.Errorf("expected full permissions on context")
		}
		return c.NoContent(http.StatusOK)
	}, withUser(userID), Middleware(r))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMiddleware_NoUser(t *testing.T) {
	r := NewResolver(&mockMembers{memberships: map[string]*Membership{}}, session.NewMemoryStore())

	e := echo.New()
	e.GET("/probe", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Middleware(r))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequirePermission_Denied(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	members := &mockMembers{memberships: map[string]*Membership{
		key(userID, orgID): {
			OrgID: orgID, UserID: userID, Status: MembershipActive,
			Permissions: PermissionSet{ViewReports: true},
		},
	}}
	store := session.NewMemoryStore()
	r := NewResolver(members, store)
	if _, err := r.SwitchToOrganization(context.Background(), userID, orgID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := echo.New()
	e.POST("/dispense", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		withUser(userID), Middleware(r), RequirePermission(PermDispenseDrugs))
	e.GET("/history", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		withUser(userID), Middleware(r), RequirePermission(PermViewReports))

	req := httptest.NewRequest(http.MethodPost, "/dispense", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for missing permission, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/history", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for granted permission, got %d", rec.Code)
	}
}

func TestRequirePermission_AcrossOrganizationSwitch(t *testing.T) {
	userID := uuid.New()
	orgA := uuid.New()
	orgB := uuid.New()
	members := &mockMembers{memberships: map[string]*Membership{
		key(userID, orgA): {
			OrgID: orgA, UserID: userID, Role: "admin", Status: MembershipActive,
			Permissions: FullAccess(),
		},
		key(userID, orgB): {
			OrgID: orgB, UserID: userID, Role: "member", Status: MembershipActive,
			Permissions: PermissionSet{DiagnosePatients: true, DispenseDrugs: true, ViewReports: true},
		},
	}}
	r := NewResolver(members, session.NewMemoryStore())

	e := echo.New()
	e.POST("/drugs", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		withUser(userID), Middleware(r), RequirePermission(PermManageInventory))

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/drugs", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	// In the organization where the bundle withholds manage_inventory the
	// action is denied.
	if _, err := r.SwitchToOrganization(context.Background(), userID, orgB); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code := post(); code != http.StatusForbidden {
		t.Errorf("expected 403 in the restricted organization, got %d", code)
	}

	// The same user switches to the organization where they are admin and
	// the same action succeeds.
	if _, err := r.SwitchToOrganization(context.Background(), userID, orgA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code := post(); code != http.StatusCreated {
		t.Errorf("expected 201 in the admin organization, got %d", code)
	}
}

func TestHandler_SwitchRejectedKeepsPriorContext(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	r := NewResolver(&mockMembers{memberships: map[string]*Membership{}}, session.NewMemoryStore())
	h := NewHandler(r)

	e := echo.New()
	g := e.Group("", withUser(userID))
	h.RegisterRoutes(g)

	body := `{"kind":"organization","org_id":"` + orgID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/context/switch", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}

	// The active context is still individual.
	req = httptest.NewRequest(http.MethodGet, "/context", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"kind":"individual"`) {
		t.Errorf("expected individual context, got %s", rec.Body.String())
	}
}

func TestHandler_SwitchInvalidKind(t *testing.T) {
	userID := uuid.New()
	r := NewResolver(&mockMembers{memberships: map[string]*Membership{}}, session.NewMemoryStore())
	h := NewHandler(r)

	e := echo.New()
	g := e.Group("", withUser(userID))
	h.RegisterRoutes(g)

	req := httptest.NewRequest(http.MethodPost, "/context/switch", strings.NewReader(`{"kind":"team"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
