package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docutor/internal/models"
	"docutor/internal/vectorstore"
	"docutor/pkg/chunker"
	"docutor/pkg/textextract"
	"docutor/pkg/tokenizer"
)

// ErrUnsupportedFormat mirrors the extraction sentinel so callers only need
// this package's taxonomy.
var ErrUnsupportedFormat = textextract.ErrUnsupportedFormat

// ErrPartialIngestion marks the state where chunks were persisted to the
// vector index but the document record write failed. A retry of the same
// upload detects the indexed content and records the document without
// re-ingesting chunks.
var ErrPartialIngestion = errors.New("document indexed but not recorded")

// Store is the durable registry of ingested documents.
type Store interface {
	Exists(ctx context.Context, ownerID int64, contentHash string) (bool, error)
	Insert(ctx context.Context, doc models.UserDocument) error
	ListByOwner(ctx context.Context, ownerID int64) ([]models.UserDocument, error)
}

// Service is the ingestion pipeline: file, extracted text, dedup by content
// hash, chunks, vector index, document record — in that order.
type Service struct {
	docs      Store
	index     vectorstore.Index
	chunkOpts chunker.ChunkOptions
}

func NewService(docs Store, index vectorstore.Index, opts chunker.ChunkOptions) *Service {
	if opts.ChunkSize == 0 {
		opts = chunker.DefaultOptions()
	}
	return &Service{docs: docs, index: index, chunkOpts: opts}
}

// ContentHash digests the normalized extracted text. It is both the dedup
// key and chunk provenance metadata.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// Ingest runs the full pipeline for one file and returns the identifiers of
// newly indexed chunks. Identical content already ingested for this owner
// short-circuits to an empty result; that is idempotence, not an error.
//
// Ordering is deliberate: the index is persisted before the document record
// is written, so a crash can leave indexed-but-unrecorded content (surfaced
// as ErrPartialIngestion and reconciled on retry) but never a record that
// claims chunks which were lost.
func (s *Service) Ingest(ctx context.Context, ownerID int64, filePath, filename string) ([]string, error) {
	extracted, err := textextract.ExtractFile(filePath)
	if err != nil {
		return nil, err
	}

	hash := ContentHash(extracted.Content)

	exists, err := s.docs.Exists(ctx, ownerID, hash)
	if err != nil {
		return nil, fmt.Errorf("check existing document: %w", err)
	}
	if exists {
		slog.Info("duplicate content, skipping ingestion",
			"owner_id", ownerID, "filename", filename, "content_hash", hash)
		return []string{}, nil
	}

	coll, err := s.index.GetOrCreateCollection(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	// A previous attempt may have persisted chunks and then failed to write
	// the record. Recover by recording now instead of indexing twice.
	indexed, err := s.index.HasContent(ctx, coll, hash)
	if err != nil {
		return nil, fmt.Errorf("check indexed content: %w", err)
	}
	if indexed {
		slog.Warn("reconciling indexed but unrecorded document",
			"owner_id", ownerID, "filename", filename)
		if err := s.recordDocument(ctx, ownerID, filename, hash); err != nil {
			return nil, err
		}
		return []string{}, nil
	}

	textChunks := chunker.New().Chunk(extracted.Content, s.chunkOpts)

	chunks := make([]vectorstore.Chunk, len(textChunks))
	ids := make([]string, len(textChunks))
	for i, tc := range textChunks {
		id := vectorstore.ChunkID(filename, tc.Index)
		chunks[i] = vectorstore.Chunk{
			ID:             id,
			SourceFilename: filename,
			SequenceIndex:  tc.Index,
			Text:           tc.Content,
			ContentHash:    hash,
			TokenCount:     tokenizer.CountTokens(tc.Content),
		}
		ids[i] = id
	}

	if err := s.index.AddChunks(ctx, coll, chunks); err != nil {
		return nil, fmt.Errorf("add chunks: %w", err)
	}
	if err := s.index.Persist(ctx, coll); err != nil {
		return nil, fmt.Errorf("persist collection: %w", err)
	}

	if err := s.recordDocument(ctx, ownerID, filename, hash); err != nil {
		return nil, err
	}

	slog.Info("document ingested",
		"owner_id", ownerID, "filename", filename, "chunks", len(ids))
	return ids, nil
}

func (s *Service) List(ctx context.Context, ownerID int64) ([]models.UserDocument, error) {
	return s.docs.ListByOwner(ctx, ownerID)
}

func (s *Service) recordDocument(ctx context.Context, ownerID int64, filename, hash string) error {
	doc := models.UserDocument{
		OwnerID:     ownerID,
		Filename:    filename,
		ContentHash: hash,
		CreatedAt:   time.Now(),
	}
	if err := s.docs.Insert(ctx, doc); err != nil {
		return fmt.Errorf("%w: %v", ErrPartialIngestion, err)
	}
	return nil
}
