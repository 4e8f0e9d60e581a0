package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docutor/internal/models"
)

// PgTurnStore persists sessions and chat turns in Postgres.
type PgTurnStore struct {
	db *pgxpool.Pool
}

func NewPgTurnStore(db *pgxpool.Pool) *PgTurnStore {
	return &PgTurnStore{db: db}
}

func (s *PgTurnStore) InsertSession(ctx context.Context, sessionID string, ownerID int64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_sessions (session_id, owner_id) VALUES ($1, $2)`,
		sessionID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PgTurnStore) InsertTurn(ctx context.Context, turn models.ChatTurn) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_turns (session_id, owner_id, question, answer, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		turn.SessionID, turn.OwnerID, turn.Question, turn.Answer, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *PgTurnStore) SessionOwner(ctx context.Context, sessionID string) (int64, error) {
	var ownerID int64
	err := s.db.QueryRow(ctx,
		`SELECT owner_id FROM chat_sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup session: %w", err)
	}
	return ownerID, nil
}

// RecentTurns fetches the last k turns and returns them oldest first. The id
// column breaks ties between turns sharing a timestamp.
func (s *PgTurnStore) RecentTurns(ctx context.Context, sessionID string, k int) ([]models.ChatTurn, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, owner_id, question, answer, timestamp
		 FROM chat_turns
		 WHERE session_id = $1
		 ORDER BY timestamp DESC, id DESC
		 LIMIT $2`,
		sessionID, k,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []models.ChatTurn
	for rows.Next() {
		var t models.ChatTurn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.OwnerID, &t.Question, &t.Answer, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse into chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
