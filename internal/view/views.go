package view

import (
	"sort"

	"github.com/vaddzy/community-api/internal/models"
)

// AppState is the explicit UI state enum driving section visibility.
type AppState string

const (
	StateHome             AppState = "home"
	StateMoreInfo         AppState = "more-info"
	StateVisitorDashboard AppState = "visitor-dashboard"
	StateVisitorProfile   AppState = "visitor-profile"
	StateAdmin            AppState = "admin"
)

// PostView is the read-only projection of a post enriched with engagement
// data for the current identity. Everything here is recomputed from mirrored
// collections; nothing is persisted.
type PostView struct {
	Post      models.Post      `json:"post"`
	LikeCount int              `json:"like_count"`
	IsLiked   bool             `json:"is_liked"`
	Comments  []models.Comment `json:"comments"`
}

// LikeCount counts the likes referencing one post.
func LikeCount(likes []models.Like, postID string) int {
	count := 0
	for _, l := range likes {
		if l.PostID == postID {
			count++
		}
	}
	return count
}

// IsLiked reports whether the identity has liked the post. An empty identity
// id (anonymous) never matches.
func IsLiked(likes []models.Like, postID, identityID string) bool {
	if identityID == "" {
		return false
	}
	for _, l := range likes {
		if l.PostID == postID && l.UserID == identityID {
			return true
		}
	}
	return false
}

// CommentsForPost filters the comments mirror down to one post, oldest first.
func CommentsForPost(comments []models.Comment, postID string) []models.Comment {
	filtered := make([]models.Comment, 0)
	for _, c := range comments {
		if c.PostID == postID {
			filtered = append(filtered, c)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})
	return filtered
}

// BuildFeed assembles the post feed projection, newest post first.
func BuildFeed(posts []models.Post, likes []models.Like, comments []models.Comment, identityID string) []PostView {
	ordered := make([]models.Post, len(posts))
	copy(ordered, posts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	feed := make([]PostView, 0, len(ordered))
	for _, p := range ordered {
		feed = append(feed, PostView{
			Post:      p,
			LikeCount: LikeCount(likes, p.ID),
			IsLiked:   IsLiked(likes, p.ID, identityID),
			Comments:  CommentsForPost(comments, p.ID),
		})
	}
	return feed
}

// OwnsMedia reports whether the identity owns the media item.
func OwnsMedia(item models.MediaItem, identityID string) bool {
	return identityID != "" && item.OwnerID == identityID
}

// OwnsComment reports whether the identity authored the comment.
func OwnsComment(comment models.Comment, identityID string) bool {
	return identityID != "" && comment.AuthorID == identityID
}

// VisibleSections returns the app states reachable for a role. Visitors see
// their dashboard and profile, the admin sees the admin console, and everyone
// sees home and more-info.
func VisibleSections(role models.IdentityRole) []AppState {
	sections := []AppState{StateHome, StateMoreInfo}
	switch role {
	case models.RoleVisitor:
		sections = append(sections, StateVisitorDashboard, StateVisitorProfile)
	case models.RoleAdmin:
		sections = append(sections, StateAdmin)
	}
	return sections
}

// CanEnter reports whether a role may enter an app state.
func CanEnter(role models.IdentityRole, state AppState) bool {
	for _, s := range VisibleSections(role) {
		if s == state {
			return true
		}
	}
	return false
}
