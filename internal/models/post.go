package models

import "time"

// MediaKind classifies uploaded media.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

// ValidMediaKind reports whether k is one of the supported kinds.
func ValidMediaKind(k MediaKind) bool {
	switch k {
	case MediaKindImage, MediaKindVideo, MediaKindAudio:
		return true
	}
	return false
}

// Post represents global admin-authored content. Ordered newest-first.
type Post struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	MediaKind MediaKind `db:"media_kind" json:"media_kind"`
	FileName  string    `db:"file_name" json:"file_name"`
	MediaRef  string    `db:"media_ref" json:"media_ref"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
