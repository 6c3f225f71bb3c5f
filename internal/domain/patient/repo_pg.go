package patient

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

const patientCols = `id, owner_type, owner_id, name, surname, age, gender,
	external_id, phone, email, medical_history, allergies, medications,
	last_diagnosis_id, created_by, created_at, updated_at`

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Owner.Type, &p.Owner.ID, &p.Name, &p.Surname,
		&p.Age, &p.Gender, &p.ExternalID, &p.Phone, &p.Email,
		&p.MedicalHistory, &p.Allergies, &p.Medications,
		&p.LastDiagnosisID, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, owner_type, owner_id, name, surname, age, gender,
			external_id, phone, email, medical_history, allergies, medications, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.Owner.Type, p.Owner.ID, p.Name, p.Surname, p.Age, p.Gender,
		p.ExternalID, p.Phone, p.Email, p.MedicalHistory, p.Allergies,
		p.Medications, p.CreatedBy)
	return err
}

func (r *repoPG) Get(ctx context.Context, owner scope.Owner, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE id = $1 AND owner_type = $2 AND owner_id = $3`,
		id, owner.Type, owner.ID))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$4, surname=$5, age=$6, gender=$7,
			external_id=$8, phone=$9, email=$10, medical_history=$11,
			allergies=$12, medications=$13, updated_at=NOW()
		WHERE id = $1 AND owner_type = $2 AND owner_id = $3`,
		p.ID, p.Owner.Type, p.Owner.ID, p.Name, p.Surname, p.Age, p.Gender,
		p.ExternalID, p.Phone, p.Email, p.MedicalHistory, p.Allergies, p.Medications)
	return err
}

func (r *repoPG) Delete(ctx context.Context, owner scope.Owner, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM patients WHERE id = $1 AND owner_type = $2 AND owner_id = $3`,
		id, owner.Type, owner.ID)
	return err
}

func (r *repoPG) SetLastDiagnosis(ctx context.Context, owner scope.Owner, id, diagnosisID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET last_diagnosis_id = $4, updated_at = NOW()
		WHERE id = $1 AND owner_type = $2 AND owner_id = $3`,
		id, owner.Type, owner.ID, diagnosisID)
	return err
}

func (r *repoPG) List(ctx context.Context, owner scope.Owner, search string, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE owner_type = $1 AND owner_id = $2`
	args := []interface{}{owner.Type, owner.ID}
	if search != "" {
		where += ` AND (name ILIKE $3 OR surname ILIKE $3 OR external_id ILIKE $3)`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + patientCols + ` FROM patients` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
