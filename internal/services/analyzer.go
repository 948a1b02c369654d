package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"proctor-backend/internal/models"
)

// AnalyzerService is the client for the external inference engine. It sends
// one frame plus its session context and decodes the verdict. Every call is
// bounded by the configured timeout so a stalled engine cannot pin a
// connection's goroutine.
type AnalyzerService struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

func NewAnalyzerService(baseURL string, timeout time.Duration) *AnalyzerService {
	return &AnalyzerService{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		timeout: timeout,
	}
}

type inferenceRequest struct {
	ImageBase64 string `json:"image_base64"`
	SessionID   string `json:"session_id"`
	ExamID      int64  `json:"exam_id"`
	UserID      int64  `json:"user_id"`
	Timestamp   int64  `json:"timestamp"`
}

// AnalyzeFrame returns the decoded verdict along with the raw response body,
// which travels untouched into the cheating record's raw_data.
func (s *AnalyzerService) AnalyzeFrame(ctx context.Context, frame []byte, sess models.LiveSession) (*models.Verdict, json.RawMessage, error) {
	payload := inferenceRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(frame),
		SessionID:   sess.SessionID,
		ExamID:      sess.ExamID,
		UserID:      sess.UserID,
		Timestamp:   time.Now().UnixMilli(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/infer", bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("inference engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read inference response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("inference engine returned status %d", resp.StatusCode)
	}

	verdict := &models.Verdict{}
	if err := json.Unmarshal(raw, verdict); err != nil {
		return nil, nil, fmt.Errorf("malformed inference response: %w", err)
	}

	return verdict, json.RawMessage(raw), nil
}
