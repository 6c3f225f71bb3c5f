package organization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/mediq/mediq/internal/domain/scope"
)

var (
	ErrOrgNotFound      = errors.New("organization not found")
	ErrMemberNotFound   = errors.New("member not found")
	ErrNotAuthorized    = errors.New("not authorized for this organization action")
	ErrAlreadyMember    = errors.New("user is already a member of this organization")
	ErrAlreadyInvited   = errors.New("a pending invitation already exists for this email")
	ErrInviteInvalid    = errors.New("invitation is invalid, decided or expired")
	ErrInviteEmailMatch = errors.New("invitation was issued for a different email")
	ErrLastAdmin        = errors.New("organization must keep at least one active admin")
)

// ContextResetter clears a user's stored operating context, so a removed
// or suspended member falls back to individual on their next request.
type ContextResetter interface {
	ClearStored(ctx context.Context, userID uuid.UUID) error
}

// TxRunner executes fn inside a database transaction. Repositories that
// honor the transaction context see all statements on one connection.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo      Repository
	tx        TxRunner
	inviteTTL time.Duration
	resetter  ContextResetter
}

func NewService(repo Repository, tx TxRunner, inviteTTL time.Duration) *Service {
	return &Service{repo: repo, tx: tx, inviteTTL: inviteTTL}
}

// SetContextResetter attaches an optional resetter used when memberships
// end.
func (s *Service) SetContextResetter(r ContextResetter) {
	s.resetter = r
}

// Create creates an organization; the creator becomes an active admin
// with the full permission bundle. A user may belong to several
// organizations at once.
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, name, description string, settings *Settings) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	o := &Organization{
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedBy:   creatorID,
		Settings:    DefaultSettings(),
	}
	if settings != nil {
		o.Settings = *settings
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}

	now := time.Now()
	m := &Member{
		OrgID:       o.ID,
		UserID:      creatorID,
		Role:        RoleAdmin,
		Status:      StatusActive,
		Permissions: scope.FullAccess(),
		JoinedAt:    &now,
	}
	if err := s.repo.CreateMember(ctx, m); err != nil {
		return nil, fmt.Errorf("create founding member: %w", err)
	}

	log.Info().Str("org_id", o.ID.String()).Str("created_by", creatorID.String()).Msg("organization created")
	return o, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrgNotFound
	}
	return o, nil
}

// UpdateSettings replaces the organization settings. Only active admins
// may do this.
func (s *Service) UpdateSettings(ctx context.Context, actorID, orgID uuid.UUID, name, description string, settings Settings) (*Organization, error) {
	if err := s.requireAdmin(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	o, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		o.Name = name
	}
	o.Description = strings.TrimSpace(description)
	o.Settings = settings
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update organization: %w", err)
	}
	return o, nil
}

func (s *Service) requireAdmin(ctx context.Context, actorID, orgID uuid.UUID) error {
	m, err := s.repo.GetMember(ctx, orgID, actorID)
	if err != nil {
		return fmt.Errorf("load actor membership: %w", err)
	}
	if m == nil || m.Status != StatusActive || !m.Permissions.ManageMembers {
		return ErrNotAuthorized
	}
	return nil
}

// -- Invitations --

// Invite creates a pending invitation for an email address, carrying the
// proposed role and permission bundle. When no bundle is given the role's
// default applies. The token is single use and expires after the
// configured TTL.
func (s *Service) Invite(ctx context.Context, actorID, orgID uuid.UUID, email, role string, perms *scope.PermissionSet) (*Invitation, error) {
	if err := s.requireAdmin(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("valid email is required")
	}
	if role != RoleAdmin && role != RoleMember {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	pending, err := s.repo.GetPendingInvitation(ctx, orgID, email)
	if err != nil {
		return nil, fmt.Errorf("check pending invitations: %w", err)
	}
	if pending != nil && !pending.Expired(time.Now()) {
		return nil, ErrAlreadyInvited
	}

	bundle := DefaultMemberPermissions()
	if role == RoleAdmin {
		bundle = scope.FullAccess()
	}
	if perms != nil {
		bundle = *perms
	}

	inv := &Invitation{
		OrgID:       orgID,
		Email:       email,
		Role:        role,
		Permissions: bundle,
		Token:       ulid.Make().String(),
		Status:      InviteStatusPending,
		InvitedBy:   actorID,
		ExpiresAt:   time.Now().Add(s.inviteTTL),
	}
	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	return inv, nil
}

// loadPending fetches an invitation by token and enforces expiry at read
// time, persisting the expired status lazily.
func (s *Service) loadPending(ctx context.Context, token string) (*Invitation, error) {
	inv, err := s.repo.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("look up invitation: %w", err)
	}
	if inv == nil || inv.Status != InviteStatusPending {
		return nil, ErrInviteInvalid
	}
	if inv.Expired(time.Now()) {
		inv.Status = InviteStatusExpired
		if err := s.repo.UpdateInvitation(ctx, inv); err != nil {
			log.Warn().Err(err).Str("invitation_id", inv.ID.String()).Msg("failed to persist invitation expiry")
		}
		return nil, ErrInviteInvalid
	}
	return inv, nil
}

// Accept turns an invitation into a membership for the given user. The
// invitee's email must match the one the invitation was issued for. When
// the organization requires approval, the new member starts pending.
func (s *Service) Accept(ctx context.Context, userID uuid.UUID, userEmail, token string) (*Member, error) {
	inv, err := s.loadPending(ctx, token)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(inv.Email, userEmail) {
		return nil, ErrInviteEmailMatch
	}

	existing, err := s.repo.GetMember(ctx, inv.OrgID, userID)
	if err != nil {
		return nil, fmt.Errorf("check existing membership: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	o, err := s.Get(ctx, inv.OrgID)
	if err != nil {
		return nil, err
	}

	status := StatusActive
	if o.Settings.RequireApprovalForMember {
		status = StatusPending
	}

	now := time.Now()
	m := &Member{
		OrgID:       inv.OrgID,
		UserID:      userID,
		Role:        inv.Role,
		Status:      status,
		Permissions: inv.Permissions,
		InvitedBy:   &inv.InvitedBy,
	}
	if status == StatusActive {
		m.JoinedAt = &now
	}
	// The member insert and the token consumption land together or not
	// at all; a half-accepted invitation must not survive.
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateMember(ctx, m); err != nil {
			return fmt.Errorf("create member: %w", err)
		}
		inv.Status = InviteStatusAccepted
		inv.DecidedAt = &now
		return s.repo.UpdateInvitation(ctx, inv)
	})
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	return m, nil
}

// Decline marks an invitation declined.
func (s *Service) Decline(ctx context.Context, userEmail, token string) error {
	inv, err := s.loadPending(ctx, token)
	if err != nil {
		return err
	}
	if !strings.EqualFold(inv.Email, userEmail) {
		return ErrInviteEmailMatch
	}
	now := time.Now()
	inv.Status = InviteStatusDeclined
	inv.DecidedAt = &now
	return s.repo.UpdateInvitation(ctx, inv)
}

func (s *Service) ListInvitations(ctx context.Context, actorID, orgID uuid.UUID, limit, offset int) ([]*Invitation, int, error) {
	if err := s.requireAdmin(ctx, actorID, orgID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListInvitations(ctx, orgID, limit, offset)
}

// -- Members --

func (s *Service) ListMembers(ctx context.Context, actorID, orgID uuid.UUID, limit, offset int) ([]*Member, int, error) {
	actor, err := s.repo.GetMember(ctx, orgID, actorID)
	if err != nil {
		return nil, 0, fmt.Errorf("load actor membership: %w", err)
	}
	if actor == nil || actor.Status != StatusActive {
		return nil, 0, ErrNotAuthorized
	}
	return s.repo.ListMembers(ctx, orgID, limit, offset)
}

// UpdateMemberPermissions replaces the permission bundle stored on a
// member row. The bundle is applied verbatim the next time the member's
// context is resolved.
func (s *Service) UpdateMemberPermissions(ctx context.Context, actorID, memberID uuid.UUID, perms scope.PermissionSet) (*Member, error) {
	m, err := s.repo.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	if m == nil {
		return nil, ErrMemberNotFound
	}
	if err := s.requireAdmin(ctx, actorID, m.OrgID); err != nil {
		return nil, err
	}

	// Stripping manage_members from the last admin would strand the org.
	if m.Role == RoleAdmin && m.Permissions.ManageMembers && !perms.ManageMembers {
		if err := s.ensureNotLastAdmin(ctx, m); err != nil {
			return nil, err
		}
	}

	m.Permissions = perms
	if err := s.repo.UpdateMember(ctx, m); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return m, nil
}

// SetMemberStatus activates, approves or suspends a member.
func (s *Service) SetMemberStatus(ctx context.Context, actorID, memberID uuid.UUID, status string) (*Member, error) {
	if status != StatusActive && status != StatusSuspended {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	m, err := s.repo.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	if m == nil {
		return nil, ErrMemberNotFound
	}
	if err := s.requireAdmin(ctx, actorID, m.OrgID); err != nil {
		return nil, err
	}
	if status == StatusSuspended && m.Role == RoleAdmin && m.Status == StatusActive {
		if err := s.ensureNotLastAdmin(ctx, m); err != nil {
			return nil, err
		}
	}

	if status == StatusActive && m.JoinedAt == nil {
		now := time.Now()
		m.JoinedAt = &now
	}
	m.Status = status
	if err := s.repo.UpdateMember(ctx, m); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	if status == StatusSuspended {
		s.resetContext(ctx, m.UserID)
	}
	return m, nil
}

// RemoveMember deletes a membership. A member may remove themselves
// (leave); otherwise the actor needs manage_members. The last active
// admin can never be removed.
func (s *Service) RemoveMember(ctx context.Context, actorID, memberID uuid.UUID) error {
	m, err := s.repo.GetMemberByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("load member: %w", err)
	}
	if m == nil {
		return ErrMemberNotFound
	}
	if m.UserID != actorID {
		if err := s.requireAdmin(ctx, actorID, m.OrgID); err != nil {
			return err
		}
	}
	if m.Role == RoleAdmin && m.Status == StatusActive {
		if err := s.ensureNotLastAdmin(ctx, m); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteMember(ctx, m.ID); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	s.resetContext(ctx, m.UserID)
	return nil
}

func (s *Service) ensureNotLastAdmin(ctx context.Context, m *Member) error {
	n, err := s.repo.CountActiveAdmins(ctx, m.OrgID)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *Service) resetContext(ctx context.Context, userID uuid.UUID) {
	if s.resetter == nil {
		return
	}
	if err := s.resetter.ClearStored(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to clear stored operating context")
	}
}

// -- scope.MembershipSource --

// MembershipAdapter exposes the member table to the context resolver.
type MembershipAdapter struct {
	repo Repository
}

func NewMembershipAdapter(repo Repository) *MembershipAdapter {
	return &MembershipAdapter{repo: repo}
}

func (a *MembershipAdapter) Membership(ctx context.Context, userID, orgID uuid.UUID) (*scope.Membership, error) {
	m, err := a.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	return toScopeMembership(m), nil
}

func (a *MembershipAdapter) ActiveMemberships(ctx context.Context, userID uuid.UUID) ([]scope.Membership, error) {
	members, err := a.repo.ListActiveMembersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]scope.Membership, 0, len(members))
	for _, m := range members {
		out = append(out, *toScopeMembership(m))
	}
	return out, nil
}

func toScopeMembership(m *Member) *scope.Membership {
	return &scope.Membership{
		OrgID:       m.OrgID,
		UserID:      m.UserID,
		Role:        m.Role,
		Status:      m.Status,
		Permissions: m.Permissions,
	}
}
