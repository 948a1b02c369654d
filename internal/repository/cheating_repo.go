package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"proctor-backend/internal/models"
)

type CheatingRepo struct {
	pool *pgxpool.Pool
}

func NewCheatingRepo(pool *pgxpool.Pool) *CheatingRepo {
	return &CheatingRepo{pool: pool}
}

func (r *CheatingRepo) Insert(ctx context.Context, rec *models.CheatingRecord) error {
	query := `
		INSERT INTO cheating_records
			(id, session_id, exam_id, user_id, detected_at, reason, confidence, raw_data, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx, query,
		rec.ID, rec.SessionID, rec.ExamID, rec.UserID, rec.DetectedAt,
		rec.Reason, rec.Confidence, rec.RawData, rec.ImageURL,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

func (r *CheatingRepo) ListByExamAndUser(ctx context.Context, examID, userID int64) ([]models.CheatingRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, exam_id, user_id, detected_at, reason, confidence, raw_data, image_url, created_at, updated_at
		FROM cheating_records
		WHERE exam_id = $1 AND user_id = $2
		ORDER BY detected_at`, examID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.CheatingRecord, 0)
	for rows.Next() {
		var rec models.CheatingRecord
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.ExamID, &rec.UserID, &rec.DetectedAt,
			&rec.Reason, &rec.Confidence, &rec.RawData, &rec.ImageURL,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *CheatingRepo) CountByExamAndUser(ctx context.Context, examID, userID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cheating_records WHERE exam_id = $1 AND user_id = $2`,
		examID, userID,
	).Scan(&count)
	return count, err
}
