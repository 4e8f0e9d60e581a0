package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docutor/internal/models"
	"docutor/internal/vectorstore"
	"docutor/pkg/chunker"
)

type fakeStore struct {
	docs      []models.UserDocument
	insertErr error
}

func (s *fakeStore) Exists(_ context.Context, ownerID int64, contentHash string) (bool, error) {
	for _, d := range s.docs {
		if d.OwnerID == ownerID && d.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Insert(_ context.Context, doc models.UserDocument) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.docs = append(s.docs, doc)
	return nil
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID int64) ([]models.UserDocument, error) {
	var out []models.UserDocument
	for _, d := range s.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeIndex struct {
	staged    []vectorstore.Chunk
	persisted []vectorstore.Chunk
	hashes    map[string]bool
	persists  int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{hashes: make(map[string]bool)}
}

func (f *fakeIndex) GetOrCreateCollection(_ context.Context, ownerID int64) (*vectorstore.Collection, error) {
	return &vectorstore.Collection{OwnerID: ownerID, Name: vectorstore.CollectionName(ownerID)}, nil
}

func (f *fakeIndex) AddChunks(_ context.Context, _ *vectorstore.Collection, chunks []vectorstore.Chunk) error {
	f.staged = append(f.staged, chunks...)
	return nil
}

func (f *fakeIndex) Persist(_ context.Context, _ *vectorstore.Collection) error {
	f.persists++
	f.persisted = append(f.persisted, f.staged...)
	for _, c := range f.staged {
		f.hashes[c.ContentHash] = true
	}
	f.staged = nil
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ *vectorstore.Collection, _ string, _ int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}

func (f *fakeIndex) HasContent(_ context.Context, _ *vectorstore.Collection, contentHash string) (bool, error) {
	return f.hashes[contentHash], nil
}

func writeUpload(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestNewDocument(t *testing.T) {
	store := &fakeStore{}
	index := newFakeIndex()
	svc := NewService(store, index, chunker.DefaultOptions())

	path := writeUpload(t, "notes.txt", "some lecture notes about vectors")
	ids, err := svc.Ingest(context.Background(), 7, path, "notes.txt")
	require.NoError(t, err)

	require.Len(t, ids, 1)
	assert.Equal(t, "notes.txt_0", ids[0])

	require.Len(t, index.persisted, 1)
	assert.Equal(t, "notes.txt", index.persisted[0].SourceFilename)
	assert.Equal(t, 0, index.persisted[0].SequenceIndex)
	assert.Equal(t, ContentHash("some lecture notes about vectors"), index.persisted[0].ContentHash)
	assert.Greater(t, index.persisted[0].TokenCount, 0)

	require.Len(t, store.docs, 1)
	assert.Equal(t, int64(7), store.docs[0].OwnerID)
	assert.Equal(t, "notes.txt", store.docs[0].Filename)
}

func TestIngestDuplicateContentIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	index := newFakeIndex()
	svc := NewService(store, index, chunker.DefaultOptions())

	first := writeUpload(t, "v1.txt", "same content")
	_, err := svc.Ingest(context.Background(), 7, first, "v1.txt")
	require.NoError(t, err)

	// Same content under a different filename is still a duplicate.
	second := writeUpload(t, "v2.txt", "same content")
	ids, err := svc.Ingest(context.Background(), 7, second, "v2.txt")
	require.NoError(t, err)

	assert.Empty(t, ids)
	assert.Equal(t, 1, index.persists)
	assert.Len(t, store.docs, 1)
}

func TestIngestSameContentDifferentOwners(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, newFakeIndex(), chunker.DefaultOptions())

	pathA := writeUpload(t, "a.txt", "shared handout")
	_, err := svc.Ingest(context.Background(), 1, pathA, "a.txt")
	require.NoError(t, err)

	pathB := writeUpload(t, "b.txt", "shared handout")
	ids, err := svc.Ingest(context.Background(), 2, pathB, "b.txt")
	require.NoError(t, err)

	// Dedup is scoped per owner, so the second owner gets a real ingestion.
	assert.NotEmpty(t, ids)
	assert.Len(t, store.docs, 2)
}

func TestIngestRecordFailureIsPartial(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("db down")}
	index := newFakeIndex()
	svc := NewService(store, index, chunker.DefaultOptions())

	path := writeUpload(t, "notes.txt", "content that will index fine")
	_, err := svc.Ingest(context.Background(), 7, path, "notes.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialIngestion)

	// Chunks made it to the index even though the record write failed.
	assert.Equal(t, 1, index.persists)
}

func TestIngestReconcilesIndexedButUnrecorded(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("db down")}
	index := newFakeIndex()
	svc := NewService(store, index, chunker.DefaultOptions())

	path := writeUpload(t, "notes.txt", "content that will index fine")
	_, err := svc.Ingest(context.Background(), 7, path, "notes.txt")
	require.ErrorIs(t, err, ErrPartialIngestion)

	// Retry after the store recovers: the indexed content is detected and
	// only the missing record is written.
	store.insertErr = nil
	ids, err := svc.Ingest(context.Background(), 7, path, "notes.txt")
	require.NoError(t, err)

	assert.Empty(t, ids)
	assert.Equal(t, 1, index.persists)
	require.Len(t, store.docs, 1)
	assert.Equal(t, "notes.txt", store.docs[0].Filename)
}

func TestIngestUnsupportedFormat(t *testing.T) {
	svc := NewService(&fakeStore{}, newFakeIndex(), chunker.DefaultOptions())

	path := writeUpload(t, "deck.key", "binary-ish")
	_, err := svc.Ingest(context.Background(), 7, path, "deck.key")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIngestChunkIDsAreOrdered(t *testing.T) {
	store := &fakeStore{}
	index := newFakeIndex()
	svc := NewService(store, index, chunker.ChunkOptions{ChunkSize: 10, ChunkOverlap: 2})

	path := writeUpload(t, "big.txt", "0123456789abcdefghij0123456789")
	ids, err := svc.Ingest(context.Background(), 7, path, "big.txt")
	require.NoError(t, err)

	require.Greater(t, len(ids), 1)
	for i, id := range ids {
		assert.Equal(t, fmt.Sprintf("big.txt_%d", i), id)
	}
}

func TestContentHashNormalizes(t *testing.T) {
	assert.Equal(t, ContentHash("body"), ContentHash("  body \n"))
	assert.NotEqual(t, ContentHash("body"), ContentHash("other"))
	assert.Len(t, ContentHash("anything"), 64)
}
