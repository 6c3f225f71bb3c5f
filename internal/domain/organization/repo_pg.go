package organization

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediq/mediq/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const orgCols = `id, name, description, created_by,
	shared_inventory, shared_patients, require_approval_for_members,
	created_at, updated_at`

func (r *repoPG) scanOrg(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.CreatedBy,
		&o.Settings.SharedInventory, &o.Settings.SharedPatients,
		&o.Settings.RequireApprovalForMember, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repoPG) Create(ctx context.Context, o *Organization) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organizations (id, name, description, created_by,
			shared_inventory, shared_patients, require_approval_for_members)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.Name, o.Description, o.CreatedBy,
		o.Settings.SharedInventory, o.Settings.SharedPatients,
		o.Settings.RequireApprovalForMember)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return r.scanOrg(r.conn(ctx).QueryRow(ctx, `SELECT `+orgCols+` FROM organizations WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, o *Organization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organizations SET name=$2, description=$3,
			shared_inventory=$4, shared_patients=$5, require_approval_for_members=$6,
			updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Name, o.Description,
		o.Settings.SharedInventory, o.Settings.SharedPatients,
		o.Settings.RequireApprovalForMember)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return err
}

const memberCols = `id, org_id, user_id, role, status,
	can_write_off_drugs, can_manage_members, can_view_all_data,
	can_diagnose_patients, can_dispense_drugs, can_manage_inventory,
	can_view_reports,
	invited_by, joined_at, created_at, updated_at`

func (r *repoPG) scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.OrgID, &m.UserID, &m.Role, &m.Status,
		&m.Permissions.WriteOffDrugs, &m.Permissions.ManageMembers,
		&m.Permissions.ViewAllData, &m.Permissions.DiagnosePatients,
		&m.Permissions.DispenseDrugs, &m.Permissions.ManageInventory,
		&m.Permissions.ViewReports,
		&m.InvitedBy, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) CreateMember(ctx context.Context, m *Member) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organization_members (id, org_id, user_id, role, status,
			can_write_off_drugs, can_manage_members, can_view_all_data,
			can_diagnose_patients, can_dispense_drugs, can_manage_inventory,
			can_view_reports,
			invited_by, joined_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		m.ID, m.OrgID, m.UserID, m.Role, m.Status,
		m.Permissions.WriteOffDrugs, m.Permissions.ManageMembers,
		m.Permissions.ViewAllData, m.Permissions.DiagnosePatients,
		m.Permissions.DispenseDrugs, m.Permissions.ManageInventory,
		m.Permissions.ViewReports,
		m.InvitedBy, m.JoinedAt)
	return err
}

func (r *repoPG) GetMember(ctx context.Context, orgID, userID uuid.UUID) (*Member, error) {
	return r.scanMember(r.conn(ctx).QueryRow(ctx,
		`SELECT `+memberCols+` FROM organization_members WHERE org_id = $1 AND user_id = $2`,
		orgID, userID))
}

func (r *repoPG) GetMemberByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	return r.scanMember(r.conn(ctx).QueryRow(ctx,
		`SELECT `+memberCols+` FROM organization_members WHERE id = $1`, id))
}

func (r *repoPG) ListActiveMembersByUser(ctx context.Context, userID uuid.UUID) ([]*Member, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+memberCols+` FROM organization_members WHERE user_id = $1 AND status = $2 ORDER BY created_at ASC`,
		userID, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Member
	for rows.Next() {
		m, err := r.scanMember(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) UpdateMember(ctx context.Context, m *Member) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organization_members SET role=$2, status=$3,
			can_write_off_drugs=$4, can_manage_members=$5, can_view_all_data=$6,
			can_diagnose_patients=$7, can_dispense_drugs=$8, can_manage_inventory=$9,
			can_view_reports=$10, joined_at=$11, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Role, m.Status,
		m.Permissions.WriteOffDrugs, m.Permissions.ManageMembers,
		m.Permissions.ViewAllData, m.Permissions.DiagnosePatients,
		m.Permissions.DispenseDrugs, m.Permissions.ManageInventory,
		m.Permissions.ViewReports, m.JoinedAt)
	return err
}

func (r *repoPG) DeleteMember(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM organization_members WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListMembers(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Member, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM organization_members WHERE org_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+memberCols+` FROM organization_members WHERE org_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Member
	for rows.Next() {
		m, err := r.scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountActiveAdmins(ctx context.Context, orgID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM organization_members
		WHERE org_id = $1 AND role = $2 AND status = $3`,
		orgID, RoleAdmin, StatusActive).Scan(&n)
	return n, err
}

const inviteCols = `id, org_id, email, role, permissions, token, status, invited_by,
	expires_at, decided_at, created_at`

func (r *repoPG) scanInvitation(row pgx.Row) (*Invitation, error) {
	var inv Invitation
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.Email, &inv.Role, &inv.Permissions,
		&inv.Token, &inv.Status, &inv.InvitedBy, &inv.ExpiresAt, &inv.DecidedAt, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repoPG) CreateInvitation(ctx context.Context, inv *Invitation) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organization_invitations (id, org_id, email, role, permissions, token, status, invited_by, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		inv.ID, inv.OrgID, inv.Email, inv.Role, inv.Permissions, inv.Token, inv.Status, inv.InvitedBy, inv.ExpiresAt)
	return err
}

func (r *repoPG) GetInvitationByToken(ctx context.Context, token string) (*Invitation, error) {
	return r.scanInvitation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+inviteCols+` FROM organization_invitations WHERE token = $1`, token))
}

func (r *repoPG) GetPendingInvitation(ctx context.Context, orgID uuid.UUID, email string) (*Invitation, error) {
	return r.scanInvitation(r.conn(ctx).QueryRow(ctx, `
		SELECT `+inviteCols+` FROM organization_invitations
		WHERE org_id = $1 AND lower(email) = lower($2) AND status = $3`,
		orgID, email, InviteStatusPending))
}

func (r *repoPG) UpdateInvitation(ctx context.Context, inv *Invitation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organization_invitations SET status=$2, decided_at=$3 WHERE id = $1`,
		inv.ID, inv.Status, inv.DecidedAt)
	return err
}

func (r *repoPG) ListInvitations(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Invitation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM organization_invitations WHERE org_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+inviteCols+` FROM organization_invitations WHERE org_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Invitation
	for rows.Next() {
		inv, err := r.scanInvitation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}
