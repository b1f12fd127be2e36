package models

import "time"

// MediaItem represents a visitor upload, scoped to one owner. Ordered
// newest-first within that scope.
type MediaItem struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Title     string    `db:"title" json:"title"`
	MediaKind MediaKind `db:"media_kind" json:"media_kind"`
	MediaRef  string    `db:"media_ref" json:"media_ref"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
