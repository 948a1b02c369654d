package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LiveSession binds one websocket connection to an exam/user context.
// It lives only as long as the connection; nothing here is persisted.
type LiveSession struct {
	SessionID string `json:"session_id"`
	ExamID    int64  `json:"exam_id"`
	UserID    int64  `json:"user_id"`
}

// Socket events. The client sends "frame"; the server answers with
// "analysis", "error" or (later, from the pipeline) "evidence_saved".
const (
	EventFrame         = "frame"
	EventAnalysis      = "analysis"
	EventError         = "error"
	EventEvidenceSaved = "evidence_saved"
)

type FrameMessage struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
	ExamID    int64  `json:"exam_id"`
	Timestamp int64  `json:"timestamp"`
	Data      string `json:"data"` // base64-encoded frame bytes
}

type AnalysisMessage struct {
	Event   string          `json:"event"`
	Verdict json.RawMessage `json:"verdict"`
}

type ErrorMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Verdict is the inference engine's decoded response.
type Verdict struct {
	Status        string   `json:"status"`
	Message       string   `json:"message"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Timestamp     *int64   `json:"timestamp,omitempty"` // unix millis
	EvidenceImage string   `json:"evidence_image,omitempty"`
}

const VerdictCheating = "cheating"

// EvidenceJob is what the frame relay enqueues for a positive verdict.
// RawVerdict keeps the engine response untouched for the record's raw_data.
type EvidenceJob struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  string          `json:"session_id"`
	ExamID     int64           `json:"exam_id"`
	UserID     int64           `json:"user_id"`
	RawVerdict json.RawMessage `json:"raw_verdict"`
	ReceivedAt time.Time       `json:"received_at"`
}
