package models

import (
	"time"
)

type Exam struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	DeadlineAt time.Time `json:"deadline_at"`
	CreatorID  int64     `json:"creator_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Participant is the registration of one user for one exam. The pair is
// unique; is_completed flips once when the user ends their session.
type Participant struct {
	ExamID      int64     `json:"exam_id"`
	UserID      int64     `json:"user_id"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExamView is an exam as seen by one caller.
type ExamView struct {
	Exam
	IsParticipating bool `json:"is_participating"`
}

// ExamDetail adds the caller's own violation history.
type ExamDetail struct {
	ExamView
	CheatingLogs []CheatingRecord `json:"cheating_logs"`
}

type ParticipantView struct {
	UserID      int64  `json:"user_id"`
	Nickname    string `json:"nickname"`
	IsCompleted bool   `json:"is_completed"`
}

type CreateExamRequest struct {
	Title      string    `json:"title"`
	DeadlineAt time.Time `json:"deadline_at"`
}

type StartSessionResponse struct {
	SessionID    string `json:"session_id"`
	InferenceURL string `json:"inference_url"`
}
