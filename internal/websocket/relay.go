package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"proctor-backend/internal/models"
)

// AnalyzerClient forwards one frame plus its session context to the
// inference engine.
type AnalyzerClient interface {
	AnalyzeFrame(ctx context.Context, frame []byte, sess models.LiveSession) (*models.Verdict, json.RawMessage, error)
}

// EvidenceEnqueuer hands a positive verdict to the evidence pipeline.
type EvidenceEnqueuer interface {
	Enqueue(ctx context.Context, job models.EvidenceJob) error
}

// FrameRelay carries frames from a live connection to the inference engine
// and routes positive verdicts into the evidence pipeline. Persistence never
// happens here; a cheating verdict only costs one queue push before the
// verdict goes back to the client.
type FrameRelay struct {
	analyzer AnalyzerClient
	evidence EvidenceEnqueuer
}

func NewFrameRelay(analyzer AnalyzerClient, evidence EvidenceEnqueuer) *FrameRelay {
	return &FrameRelay{analyzer: analyzer, evidence: evidence}
}

// HandleFrame returns the raw verdict for the analysis event. Errors mean
// the engine was unreachable, timed out or answered garbage; the caller
// reports them on the connection and moves on to the next frame.
func (r *FrameRelay) HandleFrame(ctx context.Context, sess models.LiveSession, frame []byte) (json.RawMessage, error) {
	receivedAt := time.Now().UTC()

	verdict, raw, err := r.analyzer.AnalyzeFrame(ctx, frame, sess)
	if err != nil {
		return nil, err
	}

	if verdict.Status == models.VerdictCheating {
		job := models.EvidenceJob{
			ID:         uuid.New(),
			SessionID:  sess.SessionID,
			ExamID:     sess.ExamID,
			UserID:     sess.UserID,
			RawVerdict: raw,
			ReceivedAt: receivedAt,
		}
		// Detached context: a disconnect right now must not lose evidence
		// of a violation that already happened.
		if err := r.evidence.Enqueue(context.Background(), job); err != nil {
			log.Printf("relay: failed to enqueue evidence job (session=%s exam=%d user=%d): %v",
				sess.SessionID, sess.ExamID, sess.UserID, err)
		}
	}

	return raw, nil
}
