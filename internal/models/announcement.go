package models

import "time"

// Announcement represents a global, admin-authored announcement. Ordered
// newest-first by created_at.
type Announcement struct {
	ID        string    `db:"id" json:"id"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
