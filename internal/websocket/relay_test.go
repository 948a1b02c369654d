package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"proctor-backend/internal/models"
)

type stubAnalyzer struct {
	frames  [][]byte
	verdict *models.Verdict
	raw     json.RawMessage
	err     error
}

func (s *stubAnalyzer) AnalyzeFrame(ctx context.Context, frame []byte, sess models.LiveSession) (*models.Verdict, json.RawMessage, error) {
	s.frames = append(s.frames, frame)
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.verdict, s.raw, nil
}

type stubEnqueuer struct {
	jobs []models.EvidenceJob
	err  error
}

func (s *stubEnqueuer) Enqueue(ctx context.Context, job models.EvidenceJob) error {
	s.jobs = append(s.jobs, job)
	return s.err
}

func liveSession() models.LiveSession {
	return models.LiveSession{
		SessionID: "session_3_9_1700000000000000000",
		ExamID:    3,
		UserID:    9,
	}
}

func TestHandleFrame_CheatingVerdictEnqueuesEvidence(t *testing.T) {
	raw := json.RawMessage(`{"status":"cheating","message":"Gaze off screen","confidence":0.88}`)
	analyzer := &stubAnalyzer{
		verdict: &models.Verdict{Status: models.VerdictCheating, Message: "Gaze off screen"},
		raw:     raw,
	}
	enq := &stubEnqueuer{}
	relay := NewFrameRelay(analyzer, enq)

	got, err := relay.HandleFrame(context.Background(), liveSession(), []byte("frame"))
	if err != nil {
		t.Fatalf("HandleFrame failed: %v", err)
	}
	if string(got) != string(raw) {
		t.Error("Returned verdict must be the raw engine response")
	}

	if len(enq.jobs) != 1 {
		t.Fatalf("Expected exactly 1 evidence job, got %d", len(enq.jobs))
	}
	job := enq.jobs[0]
	if job.ID == uuid.Nil {
		t.Error("Expected a generated job id")
	}
	if job.SessionID != "session_3_9_1700000000000000000" || job.ExamID != 3 || job.UserID != 9 {
		t.Errorf("Job carries wrong session context: %+v", job)
	}
	if string(job.RawVerdict) != string(raw) {
		t.Error("Job must carry the raw verdict untouched")
	}
	if job.ReceivedAt.IsZero() {
		t.Error("Expected ReceivedAt to be set")
	}
}

func TestHandleFrame_NormalVerdictNotEnqueued(t *testing.T) {
	analyzer := &stubAnalyzer{
		verdict: &models.Verdict{Status: "normal", Message: "ok"},
		raw:     json.RawMessage(`{"status":"normal","message":"ok"}`),
	}
	enq := &stubEnqueuer{}
	relay := NewFrameRelay(analyzer, enq)

	if _, err := relay.HandleFrame(context.Background(), liveSession(), []byte("frame")); err != nil {
		t.Fatalf("HandleFrame failed: %v", err)
	}
	if len(enq.jobs) != 0 {
		t.Errorf("Expected no evidence jobs for a normal verdict, got %d", len(enq.jobs))
	}
}

func TestHandleFrame_AnalyzerError(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("engine unreachable")}
	enq := &stubEnqueuer{}
	relay := NewFrameRelay(analyzer, enq)

	if _, err := relay.HandleFrame(context.Background(), liveSession(), []byte("frame")); err == nil {
		t.Fatal("Expected analyzer error to surface")
	}
	if len(enq.jobs) != 0 {
		t.Error("A failed analysis must not enqueue evidence")
	}
}

func TestHandleFrame_EnqueueFailureDoesNotBlockVerdict(t *testing.T) {
	raw := json.RawMessage(`{"status":"cheating","message":"Phone detected"}`)
	analyzer := &stubAnalyzer{
		verdict: &models.Verdict{Status: models.VerdictCheating, Message: "Phone detected"},
		raw:     raw,
	}
	enq := &stubEnqueuer{err: errors.New("redis down")}
	relay := NewFrameRelay(analyzer, enq)

	got, err := relay.HandleFrame(context.Background(), liveSession(), []byte("frame"))
	if err != nil {
		t.Fatalf("Expected verdict delivery to survive a queue failure, got %v", err)
	}
	if string(got) != string(raw) {
		t.Error("Returned verdict must be the raw engine response")
	}
}

func TestHandleFrame_FramesReachEngineInOrder(t *testing.T) {
	analyzer := &stubAnalyzer{
		verdict: &models.Verdict{Status: "normal", Message: "ok"},
		raw:     json.RawMessage(`{"status":"normal","message":"ok"}`),
	}
	relay := NewFrameRelay(analyzer, &stubEnqueuer{})

	sess := liveSession()
	for _, frame := range []string{"first", "second", "third"} {
		if _, err := relay.HandleFrame(context.Background(), sess, []byte(frame)); err != nil {
			t.Fatalf("HandleFrame failed: %v", err)
		}
	}

	if len(analyzer.frames) != 3 {
		t.Fatalf("Expected 3 frames, got %d", len(analyzer.frames))
	}
	for i, want := range []string{"first", "second", "third"} {
		if string(analyzer.frames[i]) != want {
			t.Errorf("Frame %d: expected %q, got %q", i, want, analyzer.frames[i])
		}
	}
}
