package vectorstore

import (
	"context"
	"fmt"
	"sync"
)

// Chunk is one bounded slice of a document's extracted text, the unit of
// embedding and retrieval. Chunks are immutable once persisted.
type Chunk struct {
	ID             string // deterministic: "<filename>_<sequence_index>"
	SourceFilename string
	SequenceIndex  int
	Text           string
	ContentHash    string
	TokenCount     int
}

type SearchResult struct {
	ChunkID        string  `json:"chunk_id"`
	SourceFilename string  `json:"source_filename"`
	SequenceIndex  int     `json:"sequence_index"`
	Text           string  `json:"text"`
	ContentHash    string  `json:"content_hash"`
	Score          float64 `json:"score"`
}

// Collection is the handle for one owner's similarity index. Handles are
// shared per owner within a process so the write lock serializes concurrent
// ingestions; reads across different owners never contend.
type Collection struct {
	OwnerID int64
	Name    string

	mu      sync.Mutex
	pending []stagedChunk
}

type stagedChunk struct {
	chunk     Chunk
	embedding []float32
}

// CollectionName derives the durable collection name for an owner. It must
// stay deterministic: the same owner maps to the same collection across
// process restarts.
func CollectionName(ownerID int64) string {
	return fmt.Sprintf("user_%d", ownerID)
}

// ChunkID derives the idempotency key for a chunk. Re-adding the same
// (filename, index) overwrites instead of duplicating.
func ChunkID(filename string, sequenceIndex int) string {
	return fmt.Sprintf("%s_%d", filename, sequenceIndex)
}

// Index is the per-owner vector index manager. AddChunks stages chunks on the
// handle; nothing is durable until Persist commits the staged batch, which is
// what lets ingestion order "persist index, then record document" correctly.
type Index interface {
	GetOrCreateCollection(ctx context.Context, ownerID int64) (*Collection, error)
	AddChunks(ctx context.Context, coll *Collection, chunks []Chunk) error
	Persist(ctx context.Context, coll *Collection) error
	Query(ctx context.Context, coll *Collection, queryText string, k int) ([]SearchResult, error)
	HasContent(ctx context.Context, coll *Collection, contentHash string) (bool, error)
}
