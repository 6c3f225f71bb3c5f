package dashboard

import (
	"context"

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

func (r *repoPG) Summary(ctx context.Context, owner scope.Owner, lowStockThreshold, topN int) (*Summary, error) {
	var s Summary

	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients WHERE owner_type = $1 AND owner_id = $2),
			(SELECT COUNT(*) FROM diagnoses WHERE owner_type = $1 AND owner_id = $2),
			(SELECT COUNT(*) FROM diagnoses WHERE owner_type = $1 AND owner_id = $2
				AND created_at >= date_trunc('month', NOW())),
			(SELECT COUNT(*) FROM drugs WHERE owner_type = $1 AND owner_id = $2),
			(SELECT COUNT(*) FROM drugs WHERE owner_type = $1 AND owner_id = $2
				AND stock_quantity <= $3)`,
		owner.Type, owner.ID, lowStockThreshold).
		Scan(&s.PatientCount, &s.DiagnosisCount, &s.DiagnosesThisMonth,
			&s.DrugCount, &s.LowStockCount)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT primary_diagnosis, COUNT(*) AS n
		FROM diagnoses
		WHERE owner_type = $1 AND owner_id = $2 AND primary_diagnosis <> ''
		GROUP BY primary_diagnosis
		ORDER BY n DESC, primary_diagnosis ASC
		LIMIT $3`,
		owner.Type, owner.ID, topN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		s.TopDiagnoses = append(s.TopDiagnoses, nc)
	}
	rows.Close()

	rows, err = r.conn(ctx).Query(ctx, `
		SELECT COALESCE(NULLIF(gender, ''), 'unknown'), COUNT(*)
		FROM patients
		WHERE owner_type = $1 AND owner_id = $2
		GROUP BY 1
		ORDER BY 2 DESC`,
		owner.Type, owner.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		s.GenderDistribution = append(s.GenderDistribution, nc)
	}

	return &s, nil
}
