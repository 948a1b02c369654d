package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"proctor-backend/internal/models"
)

const evidenceQueue = "queue:evidence-pipeline"

// Queue is the producer side of the evidence pipeline. The frame relay
// pushes here; the pool's workers pop.
type Queue struct {
	redis *redis.Client
}

func NewQueue(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

func (q *Queue) Enqueue(ctx context.Context, job models.EvidenceJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode evidence job: %w", err)
	}
	return q.redis.LPush(ctx, evidenceQueue, string(data)).Err()
}
