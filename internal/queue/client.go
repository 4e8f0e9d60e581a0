package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"docutor/internal/config"
)

// ingestTimeout bounds one ingestion attempt end to end, including the
// embedding calls for every chunk batch.
const ingestTimeout = 10 * time.Minute

// Client enqueues background work for the worker binary.
type Client struct {
	inner *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{inner: asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

func (c *Client) Close() error {
	return c.inner.Close()
}

// EnqueueDocumentIngest queues one spooled upload for ingestion. Failed
// attempts are retried by asynq; permanently failing inputs are marked
// SkipRetry by the worker.
func (c *Client) EnqueueDocumentIngest(payload DocumentIngestPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ingest payload: %w", err)
	}

	task := asynq.NewTask(TypeDocumentIngest, data)
	if _, err := c.inner.Enqueue(task, asynq.MaxRetry(5), asynq.Timeout(ingestTimeout)); err != nil {
		return fmt.Errorf("enqueue %s for owner %d: %w", TypeDocumentIngest, payload.OwnerID, err)
	}
	return nil
}
