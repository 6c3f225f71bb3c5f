package scope

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mediq/mediq/internal/platform/session"
)

var (
	// ErrNotAMember is returned when switching into an organization the
	// user has no active membership in.
	ErrNotAMember = errors.New("user is not a member of this organization")
	// ErrMembershipSuspended is returned when the membership exists but is
	// suspended or still pending approval.
	ErrMembershipSuspended = errors.New("membership is suspended or pending")
)

// Membership status values as the resolver understands them.
const (
	MembershipActive    = "active"
	MembershipPending   = "pending"
	MembershipSuspended = "suspended"
)

// Membership is the slice of an organization member row the resolver and
// guard need.
type Membership struct {
	OrgID       uuid.UUID
	UserID      uuid.UUID
	Role        string
	Status      string
	Permissions PermissionSet
}

// MembershipSource looks up a user's membership in an organization. The
// organization package provides the real implementation; the indirection
// keeps this package free of a dependency on it. A nil membership with a
// nil error means no membership exists.
type MembershipSource interface {
	Membership(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error)
	// ActiveMemberships returns all of the user's active memberships. A
	// user may belong to several organizations at once.
	ActiveMemberships(ctx context.Context, userID uuid.UUID) ([]Membership, error)
}

// Classification of a user by their active memberships.
const (
	ClassIndividual         = "individual"
	ClassOrganizationMember = "organization_member"
	ClassMultiOrganization  = "multi_organization"
)

// Resolver decides the active operating context for each request and
// handles explicit switches. The chosen context is persisted per user so
// it survives across sessions.
type Resolver struct {
	members MembershipSource
	store   session.Store
}

func NewResolver(members MembershipSource, store session.Store) *Resolver {
	return &Resolver{members: members, store: store}
}

// Active resolves the current operating context for a user. A stored
// organization preference is honored only while the membership behind it
// is still active; otherwise the user silently falls back to individual.
func (r *Resolver) Active(ctx context.Context, userID uuid.UUID) (Scope, error) {
	stored, err := r.store.Get(ctx, userID.String())
	if err != nil {
		// A session store outage must not take requests down; the
		// individual context is always valid.
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("session store unavailable, using individual context")
		return Individual(userID), nil
	}

	sc := Decode(userID, stored)
	if sc.Kind != KindOrganization {
		return sc, nil
	}

	m, err := r.members.Membership(ctx, userID, sc.OrgID)
	if err != nil {
		return Scope{}, fmt.Errorf("resolve membership: %w", err)
	}
	if m == nil || m.Status != MembershipActive {
		return Individual(userID), nil
	}
	return sc, nil
}

// SwitchToIndividual switches a user to the individual context. This
// always succeeds regardless of membership state.
func (r *Resolver) SwitchToIndividual(ctx context.Context, userID uuid.UUID) (Scope, error) {
	sc := Individual(userID)
	if err := r.store.Set(ctx, userID.String(), sc.Encode()); err != nil {
		return Scope{}, fmt.Errorf("persist context: %w", err)
	}
	return sc, nil
}

// SwitchToOrganization switches a user into an organization context. The
// switch is rejected, leaving the prior context intact, unless the user
// holds an active membership in that organization.
func (r *Resolver) SwitchToOrganization(ctx context.Context, userID, orgID uuid.UUID) (Scope, error) {
	m, err := r.members.Membership(ctx, userID, orgID)
	if err != nil {
		return Scope{}, fmt.Errorf("check membership: %w", err)
	}
	if m == nil {
		return Scope{}, ErrNotAMember
	}
	if m.Status != MembershipActive {
		return Scope{}, ErrMembershipSuspended
	}

	sc := Organization(userID, orgID)
	if err := r.store.Set(ctx, userID.String(), sc.Encode()); err != nil {
		return Scope{}, fmt.Errorf("persist context: %w", err)
	}
	return sc, nil
}

// CanSwitchToOrganization reports whether the user holds at least one
// active membership. Switching to individual needs no such check; it is
// always allowed.
func (r *Resolver) CanSwitchToOrganization(ctx context.Context, userID uuid.UUID) (bool, error) {
	ms, err := r.members.ActiveMemberships(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list memberships: %w", err)
	}
	return len(ms) > 0, nil
}

// MembershipClass classifies the user by their active memberships:
// individual, organization_member, or multi_organization.
func (r *Resolver) MembershipClass(ctx context.Context, userID uuid.UUID) (string, error) {
	ms, err := r.members.ActiveMemberships(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list memberships: %w", err)
	}
	switch {
	case len(ms) == 0:
		return ClassIndividual, nil
	case len(ms) == 1:
		return ClassOrganizationMember, nil
	default:
		return ClassMultiOrganization, nil
	}
}

// Permissions returns the bundle the given scope grants, or Indeterminate
// when the backing membership cannot be loaded.
func (r *Resolver) Permissions(ctx context.Context, sc Scope) (PermissionSet, Decision, error) {
	if sc.Kind == KindIndividual {
		return FullAccess(), Allow, nil
	}

	m, err := r.members.Membership(ctx, sc.UserID, sc.OrgID)
	if err != nil {
		return PermissionSet{}, Indeterminate, fmt.Errorf("load membership: %w", err)
	}
	if m == nil || m.Status != MembershipActive {
		return PermissionSet{}, Deny, nil
	}
	return m.Permissions, Allow, nil
}

// ClearStored removes the persisted context preference for a user, used
// when a membership is removed so the next request falls back cleanly.
func (r *Resolver) ClearStored(ctx context.Context, userID uuid.UUID) error {
	return r.store.Delete(ctx, userID.String())
}
