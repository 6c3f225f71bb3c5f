package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediq/mediq/internal/domain/scope"
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

const drugCols = `id, owner_type, owner_id, name, generic_name, form, strength,
	stock_quantity, units_per_pack, price_per_pack, prescription_required,
	supplier, notes, created_by, created_at, updated_at`

func (r *repoPG) scanDrug(row pgx.Row) (*Drug, error) {
	var d Drug
	err := row.Scan(&d.ID, &d.Owner.Type, &d.Owner.ID, &d.Name, &d.GenericName,
		&d.Form, &d.Strength, &d.StockQuantity, &d.UnitsPerPack,
		&d.PricePerPack, &d.PrescriptionRequired, &d.Supplier, &d.Notes,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Drug) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO drugs (id, owner_type, owner_id, name, generic_name, form, strength,
			stock_quantity, units_per_pack, price_per_pack, prescription_required,
			supplier, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		d.ID, d.Owner.Type, d.Owner.ID, d.Name, d.GenericName, d.Form, d.Strength,
		d.StockQuantity, d.UnitsPerPack, d.PricePerPack, d.PrescriptionRequired,
		d.Supplier, d.Notes, d.CreatedBy)
	return err
}

func (r *repoPG) Get(ctx context.Context, owner scope.Owner, id uuid.UUID) (*Drug, error) {
	return r.scanDrug(r.conn(ctx).QueryRow(ctx, `
		SELECT `+drugCols+` FROM drugs
		WHERE id = $1 AND owner_type = $2 AND owner_id = $3`,
		id, owner.Type, owner.ID))
}

func (r *repoPG) GetForUpdate(ctx context.Context, owner scope.Owner, id uuid.UUID) (*Drug, error) {
	return r.scanDrug(r.conn(ctx).QueryRow(ctx, `
		SELECT `+drugCols+` FROM drugs
		WHERE id = $1 AND owner_type = $2 AND owner_id = $3
		FOR UPDATE`,
		id, owner.Type, owner.ID))
}

func (r *repoPG) Update(ctx context.Context, d *Drug) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE drugs SET name=$4, generic_name=$5, form=$6, strength=$7,
			stock_quantity=$8, units_per_pack=$9, price_per_pack=$10,
			prescription_required=$11, supplier=$12, notes=$13, updated_at=NOW()
		WHERE id = $1 AND owner_type = $2 AND owner_id = $3`,
		d.ID, d.Owner.Type, d.Owner.ID, d.Name, d.GenericName, d.Form, d.Strength,
		d.StockQuantity, d.UnitsPerPack, d.PricePerPack, d.PrescriptionRequired,
		d.Supplier, d.Notes)
	return err
}

func (r *repoPG) UpdateStock(ctx context.Context, owner scope.Owner, id uuid.UUID, quantity int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE drugs SET stock_quantity = $4, updated_at = NOW()
		WHERE id = $1 AND owner_type = $2 AND owner_id = $3`,
		id, owner.Type, owner.ID, quantity)
	return err
}

func (r *repoPG) Delete(ctx context.Context, owner scope.Owner, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM drugs WHERE id = $1 AND owner_type = $2 AND owner_id = $3`,
		id, owner.Type, owner.ID)
	return err
}

func (r *repoPG) List(ctx context.Context, owner scope.Owner, search string, limit, offset int) ([]*Drug, int, error) {
	where := ` WHERE owner_type = $1 AND owner_id = $2`
	args := []interface{}{owner.Type, owner.ID}
	if search != "" {
		where += ` AND (name ILIKE $3 OR generic_name ILIKE $3)`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM drugs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + drugCols + ` FROM drugs` + where +
		fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Drug
	for rows.Next() {
		d, err := r.scanDrug(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListLowStock(ctx context.Context, owner scope.Owner, threshold int) ([]*Drug, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+drugCols+` FROM drugs
		WHERE owner_type = $1 AND owner_id = $2 AND stock_quantity <= $3
		ORDER BY stock_quantity ASC`,
		owner.Type, owner.ID, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Drug
	for rows.Next() {
		d, err := r.scanDrug(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *repoPG) CreateUsage(ctx context.Context, u *UsageRecord) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO drug_usage_history (id, owner_type, owner_id, drug_id, drug_name,
			kind, quantity, reason, patient_id, diagnosis_id, actor_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.Owner.Type, u.Owner.ID, u.DrugID, u.DrugName,
		u.Kind, u.Quantity, u.Reason, u.PatientID, u.DiagnosisID, u.ActorID)
	return err
}

func (r *repoPG) ListUsage(ctx context.Context, owner scope.Owner, drugID *uuid.UUID, limit, offset int) ([]*UsageRecord, int, error) {
	where := ` WHERE owner_type = $1 AND owner_id = $2`
	args := []interface{}{owner.Type, owner.ID}
	if drugID != nil {
		where += ` AND drug_id = $3`
		args = append(args, *drugID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM drug_usage_history`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, owner_type, owner_id, drug_id, drug_name, kind, quantity,
			reason, patient_id, diagnosis_id, actor_id, created_at
		FROM drug_usage_history` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*UsageRecord
	for rows.Next() {
		var u UsageRecord
		if err := rows.Scan(&u.ID, &u.Owner.Type, &u.Owner.ID, &u.DrugID, &u.DrugName,
			&u.Kind, &u.Quantity, &u.Reason, &u.PatientID, &u.DiagnosisID,
			&u.ActorID, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &u)
	}
	return items, total, rows.Err()
}
