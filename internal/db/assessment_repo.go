package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"climaroute/internal/types"
)

// AssessmentRepository provides data access for the risk_assessments history
// table. One row per completed single-location assessment.
type AssessmentRepository struct {
	db DBTX
}

// NewAssessmentRepository creates a repository backed by the given database
// connection (pool or transaction).
func NewAssessmentRepository(db DBTX) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// assessmentSchema is the single history table. Applied idempotently at
// startup; there is no separate migration tooling for one table.
const assessmentSchema = `
CREATE TABLE IF NOT EXISTS risk_assessments (
	id               UUID PRIMARY KEY,
	lat              DOUBLE PRECISION NOT NULL,
	lon              DOUBLE PRECISION NOT NULL,
	rain_probability DOUBLE PRECISION NOT NULL,
	safety_score     DOUBLE PRECISION NOT NULL,
	condition        TEXT NOT NULL,
	inference_path   TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the history table if it does not exist.
func (r *AssessmentRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, assessmentSchema); err != nil {
		return types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to ensure assessment history schema",
			err,
		)
	}
	return nil
}

// Record inserts one assessment row. A missing ID or CreatedAt is filled in
// here so callers only describe the assessment itself.
func (r *AssessmentRepository) Record(ctx context.Context, rec *types.AssessmentRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO risk_assessments
			(id, lat, lon, rain_probability, safety_score, condition, inference_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, q,
		rec.ID, rec.Lat, rec.Lon,
		rec.RainProbability, rec.SafetyScore,
		rec.Condition, rec.InferencePath, rec.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to insert assessment record",
			err,
		)
	}
	return nil
}

// ListRecent returns the most recent assessments, newest first, up to limit.
func (r *AssessmentRepository) ListRecent(ctx context.Context, limit int) ([]types.AssessmentRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
		SELECT id, lat, lon, rain_probability, safety_score, condition, inference_path, created_at
		FROM risk_assessments
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to query assessment history",
			err,
		)
	}
	defer rows.Close()

	var out []types.AssessmentRecord
	for rows.Next() {
		var rec types.AssessmentRecord
		if err := rows.Scan(
			&rec.ID, &rec.Lat, &rec.Lon,
			&rec.RainProbability, &rec.SafetyScore,
			&rec.Condition, &rec.InferencePath, &rec.CreatedAt,
		); err != nil {
			return nil, types.NewAppError(
				types.ErrCodeInternalDB,
				"failed to scan assessment record",
				err,
			)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to iterate assessment history",
			err,
		)
	}
	return out, nil
}
