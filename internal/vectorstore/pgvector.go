package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"docutor/internal/embedding"
)

// PgVectorIndex keeps one logical collection per owner inside a shared
// pgvector table, addressed by collection name.
type PgVectorIndex struct {
	db    *pgxpool.Pool
	embed *embedding.Service

	mu          sync.Mutex
	collections map[int64]*Collection
}

func NewPgVectorIndex(db *pgxpool.Pool, embed *embedding.Service) *PgVectorIndex {
	return &PgVectorIndex{
		db:          db,
		embed:       embed,
		collections: make(map[int64]*Collection),
	}
}

// GetOrCreateCollection returns the owner's collection handle, registering
// the collection durably on first use. Handles are cached per owner so every
// caller shares the same write lock.
func (s *PgVectorIndex) GetOrCreateCollection(ctx context.Context, ownerID int64) (*Collection, error) {
	s.mu.Lock()
	coll, ok := s.collections[ownerID]
	if !ok {
		coll = &Collection{OwnerID: ownerID, Name: CollectionName(ownerID)}
		s.collections[ownerID] = coll
	}
	s.mu.Unlock()

	_, err := s.db.Exec(ctx,
		`INSERT INTO vector_collections (name, owner_id) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING`,
		coll.Name, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("register collection %s: %w", coll.Name, err)
	}

	return coll, nil
}

// AddChunks embeds the chunk texts and stages them on the handle. The staged
// batch becomes durable only when Persist commits, so a failure here leaves
// no partial state behind.
func (s *PgVectorIndex) AddChunks(ctx context.Context, coll *Collection, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embed.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	coll.mu.Lock()
	defer coll.mu.Unlock()
	for i, c := range chunks {
		coll.pending = append(coll.pending, stagedChunk{chunk: c, embedding: vectors[i]})
	}
	return nil
}

// Persist flushes the staged chunks in a single transaction. The per-handle
// lock serializes concurrent writers for the same owner.
func (s *PgVectorIndex) Persist(ctx context.Context, coll *Collection) error {
	coll.mu.Lock()
	defer coll.mu.Unlock()

	if len(coll.pending) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, st := range coll.pending {
		c := st.chunk
		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks
			   (collection, chunk_id, source_filename, sequence_index, content, content_hash, embedding, token_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (collection, chunk_id)
			 DO UPDATE SET content = $5, content_hash = $6, embedding = $7, token_count = $8`,
			coll.Name, c.ID, c.SourceFilename, c.SequenceIndex, c.Text, c.ContentHash,
			pgvector.NewVector(st.embedding), c.TokenCount,
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}

	coll.pending = coll.pending[:0]
	return nil
}

// Query embeds the question text and returns up to k chunks ranked by
// descending cosine similarity, scoped to the given collection only.
func (s *PgVectorIndex) Query(ctx context.Context, coll *Collection, queryText string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 4
	}

	queryVec, err := s.embed.EmbedSingle(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vec := pgvector.NewVector(queryVec)
	rows, err := s.db.Query(ctx,
		`SELECT chunk_id, source_filename, sequence_index, content, content_hash,
		        1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 WHERE collection = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, coll.Name, k,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ChunkID, &r.SourceFilename, &r.SequenceIndex, &r.Text, &r.ContentHash, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// HasContent reports whether the collection already holds chunks for the
// given content hash. Ingestion uses this to reconcile the state where the
// index persisted but the document record write failed.
func (s *PgVectorIndex) HasContent(ctx context.Context, coll *Collection, contentHash string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM document_chunks WHERE collection = $1 AND content_hash = $2)`,
		coll.Name, contentHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check content hash: %w", err)
	}
	return exists, nil
}
