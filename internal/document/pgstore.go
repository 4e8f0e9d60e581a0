package document

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"docutor/internal/models"
)

// PgStore keeps UserDocument records in Postgres.
type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Exists(ctx context.Context, ownerID int64, contentHash string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_documents WHERE owner_id = $1 AND content_hash = $2)`,
		ownerID, contentHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	return exists, nil
}

func (s *PgStore) Insert(ctx context.Context, doc models.UserDocument) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO user_documents (owner_id, filename, content_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		doc.OwnerID, doc.Filename, doc.ContentHash, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PgStore) ListByOwner(ctx context.Context, ownerID int64) ([]models.UserDocument, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, owner_id, filename, content_hash, created_at
		 FROM user_documents WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.UserDocument
	for rows.Next() {
		var d models.UserDocument
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Filename, &d.ContentHash, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
