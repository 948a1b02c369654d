package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CheatingRecord is one detected violation. Append-only: the pipeline
// inserts and readers list, nothing updates or deletes.
type CheatingRecord struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  string          `json:"session_id"`
	ExamID     int64           `json:"exam_id"`
	UserID     int64           `json:"user_id"`
	DetectedAt time.Time       `json:"detected_at"`
	Reason     string          `json:"reason"`
	Confidence *float64        `json:"confidence,omitempty"`
	RawData    json.RawMessage `json:"raw_data"`
	ImageURL   *string         `json:"image_url,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
