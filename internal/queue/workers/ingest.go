package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"docutor/internal/document"
	"docutor/internal/ingestlock"
	"docutor/internal/queue"
)

// IngestWorker drains document:ingest tasks: take the owner's lock, run the
// pipeline, then clean the spool file.
type IngestWorker struct {
	svc  *document.Service
	lock *ingestlock.Lock
}

func NewIngestWorker(svc *document.Service, lock *ingestlock.Lock) *IngestWorker {
	return &IngestWorker{svc: svc, lock: lock}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	acquired, err := w.lock.Acquire(ctx, payload.OwnerID)
	if err != nil {
		return fmt.Errorf("ingest lock: %w", err)
	}
	if !acquired {
		// another ingestion for this owner is running; let asynq retry
		return fmt.Errorf("owner %d ingestion already in flight", payload.OwnerID)
	}
	defer func() {
		if err := w.lock.Release(context.WithoutCancel(ctx), payload.OwnerID); err != nil {
			slog.Error("failed to release ingest lock", "owner_id", payload.OwnerID, "error", err)
		}
	}()

	chunkIDs, err := w.svc.Ingest(ctx, payload.OwnerID, payload.FilePath, payload.Filename)
	if err != nil {
		if errors.Is(err, document.ErrUnsupportedFormat) {
			// retrying the same file can never succeed
			w.removeSpool(payload.FilePath)
			return fmt.Errorf("ingest %s: %v: %w", payload.Filename, err, asynq.SkipRetry)
		}
		// ErrPartialIngestion included: the retry path reconciles via the
		// indexed-content check inside Ingest.
		return fmt.Errorf("ingest %s: %w", payload.Filename, err)
	}

	w.removeSpool(payload.FilePath)
	slog.Info("ingestion complete",
		"owner_id", payload.OwnerID, "filename", payload.Filename, "chunks", len(chunkIDs))
	return nil
}

func (w *IngestWorker) removeSpool(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove spooled upload", "path", path, "error", err)
	}
}
