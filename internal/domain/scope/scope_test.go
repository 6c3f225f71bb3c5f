package scope

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/platform/session"
)

type mockMembers struct {
	memberships map[string]*Membership // keyed by userID|orgID
	err         error
}

func key(userID, orgID uuid.UUID) string {
	return userID.String() + "|" + orgID.String()
}

func (m *mockMembers) Membership(_ context.Context, userID, orgID uuid.UUID) (*Membership, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.memberships[key(userID, orgID)], nil
}

func (m *mockMembers) ActiveMemberships(_ context.Context, userID uuid.UUID) ([]Membership, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []Membership
	for _, mem := range m.memberships {
		if mem.UserID == userID && mem.Status == MembershipActive {
			out = append(out, *mem)
		}
	}
	return out, nil
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()

	if got := Decode(userID, Individual(userID).Encode()); got.Kind != KindIndividual {
		t.Errorf("expected individual, got %s", got.Kind)
	}

	got := Decode(userID, Organization(userID, orgID).Encode())
	if got.Kind != KindOrganization || got.OrgID != orgID {
		t.Errorf("unexpected decoded scope: %+v", got)
	}
}

func TestDecode_MalformedFallsBackToIndividual(t *testing.T) {
	userID := uuid.New()
	for _, val := range []string{"", "garbage", "org:", "org:not-a-uuid"} {
		if got := Decode(userID, val); got.Kind != KindIndividual {
			t.Errorf("Decode(%q): expected individual, got %s", val, got.Kind)
		}
	}
}

func TestScope_Owner(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()

	owner := Individual(userID).Owner()
	if owner.Type != OwnerUser || owner.ID != userID {
		t.Errorf("unexpected individual owner: %+v", owner)
	}

	owner = Organization(userID, orgID).Owner()
	if owner.Type != OwnerOrganization || owner.ID != orgID {
		t.Errorf("unexpected org owner: %+v", owner)
	}
}

func TestSwitchToOrganization_NotAMember(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	r := NewResolver(&mockMembers{memberships: map[string]*Membership{}}, session.NewMemoryStore())

	// Establish a known prior context.
	if _, err := r.SwitchToIndividual(context.Background(), userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := r.SwitchToOrganization(context.Background(), userID, orgID); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}

	// The failed switch must leave the prior context intact.
	sc, err := r.Active(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Kind != KindIndividual {
		t.Errorf("expected individual after rejected switch, got %s", sc.Kind)
	}
}

func TestSwitchToOrganization_Suspended(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	members := &mockMembers{memberships: map[string]*Membership{
		key(userID, orgID): {OrgID: orgID, UserID: userID, Role: "member", Status: MembershipSuspended},
	}}
	r := NewResolver(members, session.NewMemoryStore())

	if _, err := r.SwitchToOrganization(context.Background(), userID, orgID); !errors.Is(err, ErrMembershipSuspended) {
		t.Fatalf("expected ErrMembershipSuspended, got %v", err)
	}
}

func TestSwitchToOrganization_Active(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	members := &mockMembers{memberships: map[string]*Membership{
		key(userID, orgID): {OrgID: orgID, UserID: userID, Role: "member", Status: MembershipActive},
	}}
	store := session.NewMemoryStore()
	r := NewResolver(members, store)

	sc, err := r.SwitchToOrganization(context.Background(), userID, orgID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Kind != KindOrganization || sc.OrgID != orgID {
		t.Errorf("unexpected scope: %+v", sc)
	}

	// Persisted: a fresh resolve returns the organization context.
	active, err := r.Active(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !active.Equal(sc) {
		t.Errorf("expected persisted org context, got %+v", active)
	}
}

func TestSwitchToIndividual_AlwaysSucceeds(t *testing.T) {
	userID := uuid.New()
	// No memberships at all; the switch must still work.
	r := NewResolver(&mockMembers{memberships: map[string]*Membership{}}, session.NewMemoryStore())

	sc, err := r.SwitchToIndividual(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Kind != KindIndividual {
		t.Errorf("expected individual, got %s", sc.Kind)
	}
}

func TestActive_StaleOrgPreferenceFallsBack(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	members := &mockMembers{memberships: map[string]*Membership{
		key(userID, orgID): {OrgID: orgID, UserID: userID, Status: MembershipActive},
	}}
	store := session.NewMemoryStore()
	r := NewResolver(members, store)

	if _, err := r.SwitchToOrganization(context.Background(), userID, orgID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Membership removed after the preference was stored.
	delete(members.memberships, key(userID, orgID))

	sc, err := r.Active(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Kind != KindIndividual {
		t.Errorf("expected fallback to individual, got %s", sc.Kind)
	}
}

func TestPermissions_IndividualFullAccess(t *testing.T) {
	userID := uuid.New()
	r := NewResolver(&mockMembers{memberships: map[string]*Membership{}}, session.NewMemoryStore())

	perms, decision, err := r.Permissions(context.Background(), Individual(userID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != Allow {
		t.Fatalf("expected Allow, got %s", decision)
	}
	for _, p := range []Permission{PermWriteOffDrugs, PermManageMembers, PermManageInventory, PermDiagnosePatients, PermDispenseDrugs, PermViewReports} {
		if !perms.Has(p) {
			t.Errorf("individual context missing %s", p)
		}
	}
}

func TestPermissions_OrgVerbatim(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	members := &mockMembers{memberships: map[string]*Membership{
		key(userID, orgID): {
			OrgID: orgID, UserID: userID, Status: MembershipActive,
			Permissions: PermissionSet{DiagnosePatients: true, ViewReports: true},
		},
	}}
	r := NewResolver(members, session.NewMemoryStore())

	perms, decision, err := r.Permissions(context.Background(), Organization(userID, orgID))
	if err != nil || decision != Allow {
		t.Fatalf("expected Allow, got %s (%v)", decision, err)
	}
	if !perms.Has(PermDiagnosePatients) || !perms.Has(PermViewReports) {
		t.Error("expected granted flags to carry through")
	}
	if perms.Has(PermManageMembers) || perms.Has(PermDispenseDrugs) {
		t.Error("expected ungranted flags to stay off")
	}
}

func TestPermissions_LookupFailureIsIndeterminate(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	r := NewResolver(&mockMembers{err: errors.New("connection refused")}, session.NewMemoryStore())

	_, decision, err := r.Permissions(context.Background(), Organization(userID, orgID))
	if err == nil {
		t.Error("expected error")
	}
	if decision != Indeterminate {
		t.Errorf("expected Indeterminate, got %s", decision)
	}
}

func TestPermissionSet_UnknownPermission(t *testing.T) {
	if FullAccess().Has(Permission("delete_everything")) {
		t.Error("unknown permission must never be granted")
	}
}

func TestCanSwitchToOrganization(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	members := &mockMembers{memberships: map[string]*Membership{}}
	r := NewResolver(members, session.NewMemoryStore())

	ok, err := r.CanSwitchToOrganization(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected false without any active membership")
	}

	members.memberships[key(userID, orgID)] = &Membership{OrgID: orgID, UserID: userID, Status: MembershipActive}
	ok, err = r.CanSwitchToOrganization(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected true with an active membership")
	}
}

func TestMembershipClass(t *testing.T) {
	userID := uuid.New()
	orgA := uuid.New()
	orgB := uuid.New()
	members := &mockMembers{memberships: map[string]*Membership{}}
	r := NewResolver(members, session.NewMemoryStore())

	check := func(want string) {
		t.Helper()
		got, err := r.MembershipClass(context.Background(), userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}

	check(ClassIndividual)

	members.memberships[key(userID, orgA)] = &Membership{OrgID: orgA, UserID: userID, Status: MembershipActive}
	check(ClassOrganizationMember)

	// A suspended membership does not count.
	members.memberships[key(userID, orgB)] = &Membership{OrgID: orgB, UserID: userID, Status: MembershipSuspended}
	check(ClassOrganizationMember)

	members.memberships[key(userID, orgB)].Status = MembershipActive
	check(ClassMultiOrganization)
}

func TestSwitch_AlreadyActiveIsNoOp(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	members := &mockMembers{memberships: map[string]*Membership{
		key(userID, orgID): {OrgID: orgID, UserID: userID, Role: "member", Status: MembershipActive},
	}}
	r := NewResolver(members, session.NewMemoryStore())

	first, err := r.SwitchToOrganization(context.Background(), userID, orgID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.SwitchToOrganization(context.Background(), userID, orgID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("repeated switch changed the scope: %+v vs %+v", first, second)
	}
	if m := members.memberships[key(userID, orgID)]; m.Status != MembershipActive {
		t.Error("repeated switch must not alter membership state")
	}
}
