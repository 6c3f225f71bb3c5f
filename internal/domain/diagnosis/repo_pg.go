package diagnosis

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

const diagCols = `id, owner_type, owner_id, patient_id, complaint, symptoms,
	temperature, blood_pressure, heart_rate, respiratory_rate, oxygen_saturation,
	primary_diagnosis, differential_diagnoses, recommended_actions, treatment,
	drug_suggestions, severity_level, confidence_score, additional_notes,
	follow_up_recommendation, created_by, last_edited_by, edit_location, created_at, updated_at`

func (r *repoPG) scanDiagnosis(row pgx.Row) (*Diagnosis, error) {
	var d Diagnosis
	err := row.Scan(&d.ID, &d.Owner.Type, &d.Owner.ID, &d.PatientID,
		&d.Complaint, &d.Symptoms, &d.Temperature, &d.BloodPressure,
		&d.HeartRate, &d.RespiratoryRate, &d.OxygenSaturation,
		&d.PrimaryDiagnosis, &d.DifferentialDiagnoses, &d.RecommendedActions,
		&d.Treatment, &d.DrugSuggestions, &d.SeverityLevel, &d.ConfidenceScore,
		&d.AdditionalNotes, &d.FollowUpRecommendation,
		&d.CreatedBy, &d.LastEditedBy, &d.EditLocation, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Diagnosis) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO diagnoses (id, owner_type, owner_id, patient_id, complaint, symptoms,
			temperature, blood_pressure, heart_rate, respiratory_rate, oxygen_saturation,
			primary_diagnosis, differential_diagnoses, recommended_actions, treatment,
			drug_suggestions, severity_level, confidence_score, additional_notes,
			follow_up_recommendation, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		d.ID, d.Owner.Type, d.Owner.ID, d.PatientID, d.Complaint, d.Symptoms,
		d.Temperature, d.BloodPressure, d.HeartRate, d.RespiratoryRate, d.OxygenSaturation,
		d.PrimaryDiagnosis, d.DifferentialDiagnoses, d.RecommendedActions, d.Treatment,
		d.DrugSuggestions, d.SeverityLevel, d.ConfidenceScore, d.AdditionalNotes,
		d.FollowUpRecommendation, d.CreatedBy)
	return err
}

func (r *repoPG) Get(ctx context.Context, owner scope.Owner, id uuid.UUID) (*Diagnosis, error) {
	return r.scanDiagnosis(r.conn(ctx).QueryRow(ctx, `
		SELECT `+diagCols+` FROM diagnoses
		WHERE id = $1 AND owner_type = $2 AND owner_id = $3`,
		id, owner.Type, owner.ID))
}

func (r *repoPG) Update(ctx context.Context, d *Diagnosis) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE diagnoses SET primary_diagnosis=$4, differential_diagnoses=$5,
			recommended_actions=$6, treatment=$7, drug_suggestions=$8,
			severity_level=$9, additional_notes=$10, follow_up_recommendation=$11,
			last_edited_by=$12, edit_location=$13, updated_at=NOW()
		WHERE id = $1 AND owner_type = $2 AND owner_id = $3`,
		d.ID, d.Owner.Type, d.Owner.ID,
		d.PrimaryDiagnosis, d.DifferentialDiagnoses, d.RecommendedActions,
		d.Treatment, d.DrugSuggestions, d.SeverityLevel, d.AdditionalNotes,
		d.FollowUpRecommendation, d.LastEditedBy, d.EditLocation)
	return err
}

func (r *repoPG) List(ctx context.Context, owner scope.Owner, patientID *uuid.UUID, limit, offset int) ([]*Diagnosis, int, error) {
	where := ` WHERE owner_type = $1 AND owner_id = $2`
	args := []interface{}{owner.Type, owner.ID}
	if patientID != nil {
		where += ` AND patient_id = $3`
		args = append(args, *patientID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM diagnoses`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + diagCols + ` FROM diagnoses` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Diagnosis
	for rows.Next() {
		d, err := r.scanDiagnosis(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
