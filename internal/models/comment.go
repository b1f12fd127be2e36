package models

import "time"

// Comment references a Post. Comments are orphaned when the post is removed
// and cleaned up by the cascade worker.
type Comment struct {
	ID             string    `db:"id" json:"id"`
	PostID         string    `db:"post_id" json:"post_id"`
	AuthorID       string    `db:"author_id" json:"author_id"`
	AuthorUsername string    `db:"author_username" json:"author_username"`
	Text           string    `db:"text" json:"text"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
