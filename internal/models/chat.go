package models

import (
	"time"
)

// Session is a logical conversation thread. The ID is an opaque token minted
// by the memory store; the row exists so turns can be tied to an owner.
type Session struct {
	ID        string    `json:"session_id" db:"session_id"`
	OwnerID   int64     `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ChatTurn is one question/answer exchange. Append-only; ordering is by
// timestamp ascending.
type ChatTurn struct {
	ID        int64     `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	OwnerID   int64     `json:"owner_id" db:"owner_id"`
	Question  string    `json:"question" db:"question"`
	Answer    string    `json:"answer" db:"answer"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
