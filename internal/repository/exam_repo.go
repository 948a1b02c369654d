package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"proctor-backend/internal/models"
)

// Sentinel errors for the transactional registration path. The service
// layer maps these onto the HTTP error taxonomy.
var (
	ErrExamNotFound      = errors.New("exam not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrAlreadyRegistered = errors.New("participant already registered")
	ErrNotParticipant    = errors.New("not a participant")
)

type ExamRepo struct {
	pool *pgxpool.Pool
}

func NewExamRepo(pool *pgxpool.Pool) *ExamRepo {
	return &ExamRepo{pool: pool}
}

func (r *ExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	query := `
		INSERT INTO exams (title, deadline_at, creator_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		exam.Title, exam.DeadlineAt, exam.CreatorID,
	).Scan(&exam.ID, &exam.CreatedAt)
}

func (r *ExamRepo) GetByID(ctx context.Context, id int64) (*models.Exam, error) {
	exam := &models.Exam{}
	query := `SELECT id, title, deadline_at, creator_id, created_at FROM exams WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&exam.ID, &exam.Title, &exam.DeadlineAt, &exam.CreatorID, &exam.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return exam, nil
}

func (r *ExamRepo) List(ctx context.Context) ([]models.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, deadline_at, creator_id, created_at FROM exams ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := make([]models.Exam, 0)
	for rows.Next() {
		var e models.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.DeadlineAt, &e.CreatorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

func (r *ExamRepo) ListByParticipant(ctx context.Context, userID int64) ([]models.Exam, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.title, e.deadline_at, e.creator_id, e.created_at
		FROM exams e
		JOIN exam_participants p ON p.exam_id = e.id
		WHERE p.user_id = $1
		ORDER BY e.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := make([]models.Exam, 0)
	for rows.Next() {
		var e models.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.DeadlineAt, &e.CreatorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// ParticipatingExamIDs returns the set of exam ids the user is registered for,
// used to decorate list responses with the caller's participation flag.
func (r *ExamRepo) ParticipatingExamIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id FROM exam_participants WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// RegisterParticipant creates the (exam, user) registration inside a single
// transaction: exam lookup, user lookup and insert all see the same snapshot,
// and the unique constraint resolves the race between two concurrent
// registrations for the same pair.
func (r *ExamRepo) RegisterParticipant(ctx context.Context, examID, userID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin registration: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM exams WHERE id = $1)`, examID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrExamNotFound
	}

	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO exam_participants (exam_id, user_id) VALUES ($1, $2)`,
		examID, userID); err != nil {
		if IsUniqueViolation(err) {
			return ErrAlreadyRegistered
		}
		return err
	}

	return tx.Commit(ctx)
}

// UnregisterParticipant is an idempotent delete; a missing row is not an error.
func (r *ExamRepo) UnregisterParticipant(ctx context.Context, examID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM exam_participants WHERE exam_id = $1 AND user_id = $2`,
		examID, userID)
	return err
}

func (r *ExamRepo) GetParticipant(ctx context.Context, examID, userID int64) (*models.Participant, error) {
	p := &models.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT exam_id, user_id, is_completed, created_at
		 FROM exam_participants WHERE exam_id = $1 AND user_id = $2`,
		examID, userID,
	).Scan(&p.ExamID, &p.UserID, &p.IsCompleted, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotParticipant
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ExamRepo) ListParticipants(ctx context.Context, examID int64) ([]models.ParticipantView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.user_id, u.nickname, p.is_completed
		FROM exam_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.exam_id = $1
		ORDER BY p.user_id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]models.ParticipantView, 0)
	for rows.Next() {
		var v models.ParticipantView
		if err := rows.Scan(&v.UserID, &v.Nickname, &v.IsCompleted); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// CompleteParticipant flips is_completed; already-completed rows are a no-op.
func (r *ExamRepo) CompleteParticipant(ctx context.Context, examID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_participants SET is_completed = TRUE WHERE exam_id = $1 AND user_id = $2`,
		examID, userID)
	return err
}

// ListOverdueExamIDs returns exams past their deadline that still have
// non-completed participants. The sweep walks these one by one so a failure
// on one exam cannot stall the rest.
func (r *ExamRepo) ListOverdueExamIDs(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT e.id
		FROM exams e
		JOIN exam_participants p ON p.exam_id = e.id
		WHERE e.deadline_at <= $1 AND p.is_completed = FALSE
		ORDER BY e.id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CompleteOverdueParticipants marks every non-completed participant of the
// exam as completed and reports how many rows changed.
func (r *ExamRepo) CompleteOverdueParticipants(ctx context.Context, examID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_participants SET is_completed = TRUE WHERE exam_id = $1 AND is_completed = FALSE`,
		examID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
