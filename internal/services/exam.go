package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"proctor-backend/internal/models"
	"proctor-backend/internal/repository"
)

// ExamService owns the exam lifecycle: creation, participant registration,
// proctoring session start/end and the periodic overdue sweep.
type ExamService struct {
	examRepo     *repository.ExamRepo
	cheatingRepo *repository.CheatingRepo
	inferenceURL string
}

func NewExamService(examRepo *repository.ExamRepo, cheatingRepo *repository.CheatingRepo, inferenceURL string) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		cheatingRepo: cheatingRepo,
		inferenceURL: inferenceURL,
	}
}

// Letters, digits, Korean script and whitespace only.
var titleCharsRegex = regexp.MustCompile(`^[a-zA-Z0-9ㄱ-ㅎ가-힣\s]+$`)

func validateTitle(title string) string {
	length := len([]rune(title))
	switch {
	case length < 2 || length > 50:
		return "Title must be between 2 and 50 characters"
	case strings.TrimSpace(title) == "":
		return "Title cannot be only whitespace"
	case strings.ContainsAny(title, "\n\r"):
		return "Title cannot contain line breaks"
	case !titleCharsRegex.MatchString(title):
		return "Title may only contain letters, digits, Korean characters and spaces"
	case strings.Contains(title, "  "):
		return "Title cannot contain consecutive spaces"
	case strings.HasPrefix(title, " ") || strings.HasSuffix(title, " "):
		return "Title cannot start or end with a space"
	}
	return ""
}

func (s *ExamService) CreateExam(ctx context.Context, req models.CreateExamRequest, creatorID int64) (*models.Exam, error) {
	fieldErrors := make(map[string]string)

	if msg := validateTitle(req.Title); msg != "" {
		fieldErrors["title"] = msg
	}
	if !req.DeadlineAt.After(time.Now()) {
		fieldErrors["deadline_at"] = "Deadline must be in the future"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	exam := &models.Exam{
		Title:      req.Title,
		DeadlineAt: req.DeadlineAt,
		CreatorID:  creatorID,
	}

	if err := s.examRepo.Create(ctx, exam); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, &ConflictError{Message: "An exam with this title already exists"}
		}
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	return exam, nil
}

func (s *ExamService) ListExams(ctx context.Context, userID int64) ([]models.ExamView, error) {
	exams, err := s.examRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	participating, err := s.examRepo.ParticipatingExamIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participation: %w", err)
	}

	views := make([]models.ExamView, 0, len(exams))
	for _, e := range exams {
		views = append(views, models.ExamView{Exam: e, IsParticipating: participating[e.ID]})
	}
	return views, nil
}

func (s *ExamService) ListMyExams(ctx context.Context, userID int64) ([]models.ExamView, error) {
	exams, err := s.examRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered exams: %w", err)
	}

	views := make([]models.ExamView, 0, len(exams))
	for _, e := range exams {
		views = append(views, models.ExamView{Exam: e, IsParticipating: true})
	}
	return views, nil
}

// GetExam returns the exam with the caller's participation flag and their
// own violation history.
func (s *ExamService) GetExam(ctx context.Context, examID, userID int64) (*models.ExamDetail, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Message: fmt.Sprintf("Exam %d not found", examID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	_, err = s.examRepo.GetParticipant(ctx, examID, userID)
	isParticipating := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotParticipant) {
		return nil, fmt.Errorf("failed to load participation: %w", err)
	}

	logs, err := s.cheatingRepo.ListByExamAndUser(ctx, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cheating history: %w", err)
	}

	return &models.ExamDetail{
		ExamView:     models.ExamView{Exam: *exam, IsParticipating: isParticipating},
		CheatingLogs: logs,
	}, nil
}

func (s *ExamService) RegisterParticipant(ctx context.Context, examID, userID int64) error {
	err := s.examRepo.RegisterParticipant(ctx, examID, userID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrExamNotFound):
		return &NotFoundError{Message: fmt.Sprintf("Exam %d not found", examID)}
	case errors.Is(err, repository.ErrUserNotFound):
		return &NotFoundError{Message: fmt.Sprintf("User %d not found", userID)}
	case errors.Is(err, repository.ErrAlreadyRegistered):
		return &ConflictError{Message: fmt.Sprintf("User %d is already registered", userID)}
	default:
		return fmt.Errorf("failed to register participant: %w", err)
	}
}

// UnregisterParticipant is idempotent: removing a registration that does not
// exist succeeds. Only an unknown exam is an error.
func (s *ExamService) UnregisterParticipant(ctx context.Context, examID, userID int64) error {
	if _, err := s.examRepo.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Message: fmt.Sprintf("Exam %d not found", examID)}
		}
		return fmt.Errorf("failed to load exam: %w", err)
	}

	if err := s.examRepo.UnregisterParticipant(ctx, examID, userID); err != nil {
		return fmt.Errorf("failed to unregister participant: %w", err)
	}
	return nil
}

func (s *ExamService) ListParticipants(ctx context.Context, examID int64) ([]models.ParticipantView, error) {
	if _, err := s.examRepo.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: fmt.Sprintf("Exam %d not found", examID)}
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	views, err := s.examRepo.ListParticipants(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return views, nil
}

// newSessionID builds an identifier that is unique for all practical
// purposes: the exam/user pair plus a nanosecond clock reading.
func newSessionID(examID, userID int64, now time.Time) string {
	return fmt.Sprintf("session_%d_%d_%d", examID, userID, now.UnixNano())
}

// StartSession validates that the caller is a registered, non-completed
// participant and hands back a session id plus the inference engine address
// the client should expect verdicts from.
func (s *ExamService) StartSession(ctx context.Context, examID, userID int64) (*models.StartSessionResponse, error) {
	if _, err := s.examRepo.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: fmt.Sprintf("Exam %d not found", examID)}
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	participant, err := s.examRepo.GetParticipant(ctx, examID, userID)
	if errors.Is(err, repository.ErrNotParticipant) {
		return nil, &ConflictError{Message: "User is not registered for this exam"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}
	if participant.IsCompleted {
		return nil, &ConflictError{Message: "Exam already completed for this user"}
	}

	return &models.StartSessionResponse{
		SessionID:    newSessionID(examID, userID, time.Now()),
		InferenceURL: s.inferenceURL,
	}, nil
}

// EndSession marks the caller's participation completed. Ending an
// already-completed session is a no-op.
func (s *ExamService) EndSession(ctx context.Context, examID, userID int64) error {
	if _, err := s.examRepo.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Message: fmt.Sprintf("Exam %d not found", examID)}
		}
		return fmt.Errorf("failed to load exam: %w", err)
	}

	if _, err := s.examRepo.GetParticipant(ctx, examID, userID); err != nil {
		if errors.Is(err, repository.ErrNotParticipant) {
			return &ConflictError{Message: "User is not registered for this exam"}
		}
		return fmt.Errorf("failed to load participant: %w", err)
	}

	if err := s.examRepo.CompleteParticipant(ctx, examID, userID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// Sweep completes participants of exams whose deadline has passed. It never
// fails the caller: per-exam errors are logged and the pass continues.
func (s *ExamService) Sweep(ctx context.Context, now time.Time) {
	ids, err := s.examRepo.ListOverdueExamIDs(ctx, now)
	if err != nil {
		log.Printf("sweep: failed to list overdue exams: %v", err)
		return
	}

	for _, examID := range ids {
		n, err := s.examRepo.CompleteOverdueParticipants(ctx, examID)
		if err != nil {
			log.Printf("sweep: exam %d: failed to complete participants: %v", examID, err)
			continue
		}
		if n > 0 {
			log.Printf("sweep: exam %d: auto-completed %d overdue participants", examID, n)
		}
	}
}
