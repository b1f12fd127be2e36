package models

// Like marks a post as liked by one identity. At most one like exists per
// (post_id, user_id) pair; the id is derived deterministically from the pair
// so duplicate inserts collapse naturally.
type Like struct {
	ID     string `db:"id" json:"id"`
	PostID string `db:"post_id" json:"post_id"`
	UserID string `db:"user_id" json:"user_id"`
}
