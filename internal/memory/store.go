package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"docutor/internal/models"
)

// SessionTTL is the inactivity window after which a session's cache entry is
// eligible for eviction. Durable history is never touched by eviction.
const SessionTTL = 2 * time.Hour

// cacheDepth caps how many turns a session entry keeps in process memory.
const cacheDepth = 50

// ErrSessionNotFound reports a session id with no durable record.
var ErrSessionNotFound = errors.New("session not found")

// QA is one question/answer pair in chronological history.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TurnStore is the durable side of conversation memory; Postgres in
// production, a fake in tests.
type TurnStore interface {
	InsertSession(ctx context.Context, sessionID string, ownerID int64) error
	InsertTurn(ctx context.Context, turn models.ChatTurn) error
	// RecentTurns returns up to k turns in chronological order.
	RecentTurns(ctx context.Context, sessionID string, k int) ([]models.ChatTurn, error)
	// SessionOwner returns ErrSessionNotFound for unknown sessions.
	SessionOwner(ctx context.Context, sessionID string) (int64, error)
}

// Store tracks per-session dialogue history. Durable storage is the source of
// truth; the in-process cache only avoids repeated reads within one process
// lifetime.
type Store struct {
	turns TurnStore
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu         sync.Mutex // serializes writers for one session
	turns      []QA
	loaded     bool
	lastActive time.Time
}

func NewStore(turns TurnStore) *Store {
	return &Store{
		turns:    turns,
		ttl:      SessionTTL,
		sessions: make(map[string]*sessionEntry),
	}
}

// StartSession mints a new opaque session token for the owner.
func (s *Store) StartSession(ctx context.Context, ownerID int64) (string, error) {
	sessionID := uuid.NewString()
	if err := s.turns.InsertSession(ctx, sessionID, ownerID); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	// A brand-new session has no durable history yet, so its cache starts warm.
	s.sessions[sessionID] = &sessionEntry{loaded: true, lastActive: time.Now()}
	s.mu.Unlock()

	return sessionID, nil
}

// RecordTurn appends a turn durably and mirrors it into the cache. Writers
// for the same session are serialized so durable order matches arrival order;
// different sessions never contend.
func (s *Store) RecordTurn(ctx context.Context, sessionID string, ownerID int64, question, answer string) error {
	entry := s.entry(sessionID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	turn := models.ChatTurn{
		SessionID: sessionID,
		OwnerID:   ownerID,
		Question:  question,
		Answer:    answer,
		Timestamp: time.Now(),
	}
	if err := s.turns.InsertTurn(ctx, turn); err != nil {
		return fmt.Errorf("record turn: %w", err)
	}

	if entry.loaded {
		entry.turns = append(entry.turns, QA{Question: question, Answer: answer})
		if len(entry.turns) > cacheDepth {
			entry.turns = entry.turns[len(entry.turns)-cacheDepth:]
		}
	}
	s.touch(sessionID, entry)
	return nil
}

// RecentHistory returns up to k turns in chronological order. A cold cache
// (fresh process) is filled from durable storage first.
func (s *Store) RecentHistory(ctx context.Context, sessionID string, k int) ([]QA, error) {
	entry := s.entry(sessionID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.loaded {
		records, err := s.turns.RecentTurns(ctx, sessionID, cacheDepth)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		entry.turns = entry.turns[:0]
		for _, r := range records {
			entry.turns = append(entry.turns, QA{Question: r.Question, Answer: r.Answer})
		}
		entry.loaded = true
	}
	s.touch(sessionID, entry)

	if k <= 0 || k > len(entry.turns) {
		k = len(entry.turns)
	}
	out := make([]QA, k)
	copy(out, entry.turns[len(entry.turns)-k:])
	return out, nil
}

// OwnerOf resolves which owner a session belongs to.
func (s *Store) OwnerOf(ctx context.Context, sessionID string) (int64, error) {
	return s.turns.SessionOwner(ctx, sessionID)
}

// EvictStale drops cache entries idle past the inactivity window. This is
// cache hygiene only: durable turns are never deleted here.
func (s *Store) EvictStale(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, entry := range s.sessions {
		if now.Sub(entry.lastActive) > s.ttl {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// StartJanitor evicts stale cache entries on a ticker until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.EvictStale(time.Now()); n > 0 {
					slog.Debug("evicted stale sessions", "count", n)
				}
			}
		}
	}()
}

func (s *Store) entry(sessionID string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{lastActive: time.Now()}
		s.sessions[sessionID] = entry
	}
	return entry
}

func (s *Store) touch(sessionID string, entry *sessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The entry may have been evicted between lookup and now; reinstate it so
	// activity always resets the clock.
	s.sessions[sessionID] = entry
	entry.lastActive = time.Now()
}
