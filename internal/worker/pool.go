package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"proctor-backend/internal/models"
	"proctor-backend/internal/repository"
)

// CheatingStore persists violation records.
type CheatingStore interface {
	Insert(ctx context.Context, rec *models.CheatingRecord) error
}

// BlobStore uploads evidence bytes and returns a retrievable URL.
type BlobStore interface {
	UploadImage(ctx context.Context, data []byte, key string) (string, error)
}

// Pool drains the evidence queue: upload the evidence image if the verdict
// carries one, write the cheating record, ack the user over pub/sub. The
// verdict was already delivered on the socket before the job existed, so
// nothing here may retract it — failures are logged and acked generically.
type Pool struct {
	redis       *redis.Client
	store       CheatingStore
	blob        BlobStore
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, store CheatingStore, blob BlobStore, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		store:       store,
		blob:        blob,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d evidence workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Evidence worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, evidenceQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.EvidenceJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse evidence job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("evidence_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		rec, processErr := p.processJob(ctx, &job)
		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job, rec)
		}

		p.redis.Del(ctx, lockKey)
	}
}

// processJob builds and persists one cheating record. An evidence-upload
// failure does not abort the write: the violation row matters more than its
// image, so the record is saved with a null URL and the failure logged.
func (p *Pool) processJob(ctx context.Context, job *models.EvidenceJob) (*models.CheatingRecord, error) {
	var verdict models.Verdict
	if err := json.Unmarshal(job.RawVerdict, &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse verdict: %w", err)
	}

	detectedAt := job.ReceivedAt
	if verdict.Timestamp != nil {
		detectedAt = time.UnixMilli(*verdict.Timestamp).UTC()
	}

	var imageURL *string
	if verdict.EvidenceImage != "" {
		data, err := base64.StdEncoding.DecodeString(verdict.EvidenceImage)
		if err != nil {
			log.Printf("evidence job %s: invalid evidence image encoding: %v", job.ID, err)
		} else {
			key := fmt.Sprintf("cheating/%d/%d/%s.jpg", job.ExamID, job.UserID, uuid.New())
			url, err := p.blob.UploadImage(ctx, data, key)
			if err != nil {
				log.Printf("evidence job %s: upload failed (session=%s exam=%d user=%d), saving record without image: %v",
					job.ID, job.SessionID, job.ExamID, job.UserID, err)
			} else {
				imageURL = &url
			}
		}
	}

	rec := &models.CheatingRecord{
		ID:         job.ID,
		SessionID:  job.SessionID,
		ExamID:     job.ExamID,
		UserID:     job.UserID,
		DetectedAt: detectedAt,
		Reason:     verdict.Message,
		Confidence: verdict.Confidence,
		RawData:    job.RawVerdict,
		ImageURL:   imageURL,
	}

	if err := p.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.EvidenceJob, rec *models.CheatingRecord) {
	log.Printf("cheating record saved: exam=%d user=%d session=%s detected_at=%s",
		rec.ExamID, rec.UserID, rec.SessionID, rec.DetectedAt.Format(time.RFC3339))

	p.publish(ctx, job.UserID, map[string]interface{}{
		"event":       models.EventEvidenceSaved,
		"record_id":   rec.ID,
		"exam_id":     rec.ExamID,
		"session_id":  rec.SessionID,
		"detected_at": rec.DetectedAt,
	})
}

func (p *Pool) handleFailure(ctx context.Context, job *models.EvidenceJob, err error) {
	if repository.IsUniqueViolation(err) {
		log.Printf("evidence job %s: duplicate or invalid cheating record (session=%s exam=%d user=%d): %v",
			job.ID, job.SessionID, job.ExamID, job.UserID, err)
	} else {
		log.Printf("evidence job %s: failed to save cheating record (session=%s exam=%d user=%d): %v",
			job.ID, job.SessionID, job.ExamID, job.UserID, err)
	}

	// Generic notice only; the verdict itself already reached the client.
	p.publish(ctx, job.UserID, map[string]interface{}{
		"event":   models.EventError,
		"message": "Failed to persist violation evidence",
	})
}

func (p *Pool) publish(ctx context.Context, userID int64, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := p.redis.Publish(ctx, fmt.Sprintf("user_updates:%d", userID), string(data)).Err(); err != nil {
		log.Printf("failed to publish pipeline ack for user %d: %v", userID, err)
	}
}
