package organization

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence interface for organizations, members and
// invitations. Lookups return (nil, nil) when no row exists.
type Repository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, orgID, userID uuid.UUID) (*Member, error)
	GetMemberByID(ctx context.Context, id uuid.UUID) (*Member, error)
	ListActiveMembersByUser(ctx context.Context, userID uuid.UUID) ([]*Member, error)
	UpdateMember(ctx context.Context, m *Member) error
	DeleteMember(ctx context.Context, id uuid.UUID) error
	ListMembers(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Member, int, error)
	CountActiveAdmins(ctx context.Context, orgID uuid.UUID) (int, error)

	CreateInvitation(ctx context.Context, inv *Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (*Invitation, error)
	GetPendingInvitation(ctx context.Context, orgID uuid.UUID, email string) (*Invitation, error)
	UpdateInvitation(ctx context.Context, inv *Invitation) error
	ListInvitations(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Invitation, int, error)
}
