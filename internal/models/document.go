package models

import (
	"time"
)

// UserDocument records one successfully ingested document for one owner.
// (owner_id, content_hash) is unique: re-uploading identical content is a no-op.
type UserDocument struct {
	ID          int64     `json:"id" db:"id"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	Filename    string    `json:"filename" db:"filename"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
