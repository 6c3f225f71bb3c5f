// Package organization manages organizations, their members and
// invitations. Membership carries the permission bundle a member gets
// when operating in the organization context.
package organization

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/scope"
)

// Member roles within an organization.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Member statuses.
const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusSuspended = "suspended"
)

// Invitation statuses.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
	InviteStatusExpired  = "expired"
)

// Settings controls how data is shared inside an organization.
type Settings struct {
	SharedInventory          bool `json:"shared_inventory"`
	SharedPatients           bool `json:"shared_patients"`
	RequireApprovalForMember bool `json:"require_approval_for_members"`
}

// DefaultSettings shares everything and admits invitees immediately.
func DefaultSettings() Settings {
	return Settings{SharedInventory: true, SharedPatients: true}
}

// Organization is a shared workspace for a group of practitioners.
type Organization struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   uuid.UUID `json:"created_by"`
	Settings    Settings  `json:"settings"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member ties a user to an organization with a role, a status and the
// permission bundle the organization context grants them.
type Member struct {
	ID          uuid.UUID           `json:"id"`
	OrgID       uuid.UUID           `json:"org_id"`
	UserID      uuid.UUID           `json:"user_id"`
	Role        string              `json:"role"`
	Status      string              `json:"status"`
	Permissions scope.PermissionSet `json:"permissions"`
	InvitedBy   *uuid.UUID          `json:"invited_by,omitempty"`
	JoinedAt    *time.Time          `json:"joined_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// DefaultMemberPermissions is the bundle granted to plain members on
// joining: they can work, but not administer the organization or its
// stock levels.
func DefaultMemberPermissions() scope.PermissionSet {
	return scope.PermissionSet{
		WriteOffDrugs:    false,
		ManageMembers:    false,
		ViewAllData:      false,
		DiagnosePatients: true,
		DispenseDrugs:    true,
		ManageInventory:  false,
		ViewReports:      true,
	}
}

// Invitation is a pending offer to join an organization, addressed by
// email and carried by a single-use token. The proposed role and
// permission bundle are applied verbatim when the invitation is accepted.
type Invitation struct {
	ID          uuid.UUID           `json:"id"`
	OrgID       uuid.UUID           `json:"org_id"`
	Email       string              `json:"email"`
	Role        string              `json:"role"`
	Permissions scope.PermissionSet `json:"permissions"`
	Token       string              `json:"token"`
	Status      string              `json:"status"`
	InvitedBy   uuid.UUID           `json:"invited_by"`
	ExpiresAt   time.Time           `json:"expires_at"`
	DecidedAt   *time.Time          `json:"decided_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Expired reports whether the invitation is past its expiry. Expiry is
// checked whenever the invitation is read; no background sweeper exists.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
