package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaddzy/community-api/internal/models"
)

func ts(offset int) time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Minute)
}

func fixtures() ([]models.Post, []models.Like, []models.Comment) {
	posts := []models.Post{
		{ID: "p1", Title: "first", CreatedAt: ts(0)},
		{ID: "p2", Title: "second", CreatedAt: ts(10)},
	}
	likes := []models.Like{
		{ID: "l1", PostID: "p1", UserID: "u1"},
		{ID: "l2", PostID: "p1", UserID: "u2"},
		{ID: "l3", PostID: "p2", UserID: "u1"},
	}
	comments := []models.Comment{
		{ID: "c2", PostID: "p1", AuthorID: "u2", Text: "later", CreatedAt: ts(5)},
		{ID: "c1", PostID: "p1", AuthorID: "u1", Text: "earlier", CreatedAt: ts(1)},
		{ID: "c3", PostID: "p2", AuthorID: "u1", Text: "other", CreatedAt: ts(6)},
	}
	return posts, likes, comments
}

func TestLikeCount(t *testing.T) {
	_, likes, _ := fixtures()
	assert.Equal(t, 2, LikeCount(likes, "p1"))
	assert.Equal(t, 1, LikeCount(likes, "p2"))
	assert.Equal(t, 0, LikeCount(likes, "p3"))
}

func TestIsLiked(t *testing.T) {
	_, likes, _ := fixtures()
	assert.True(t, IsLiked(likes, "p1", "u1"))
	assert.False(t, IsLiked(likes, "p2", "u2"))
	// Anonymous identity never matches.
	assert.False(t, IsLiked(likes, "p1", ""))
}

func TestCommentsForPostOldestFirst(t *testing.T) {
	_, _, comments := fixtures()
	got := CommentsForPost(comments, "p1")
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "c2", got[1].ID)
}

func TestBuildFeedNewestFirst(t *testing.T) {
	posts, likes, comments := fixtures()
	feed := BuildFeed(posts, likes, comments, "u1")
	require.Len(t, feed, 2)

	assert.Equal(t, "p2", feed[0].Post.ID)
	assert.Equal(t, 1, feed[0].LikeCount)
	assert.True(t, feed[0].IsLiked)
	require.Len(t, feed[0].Comments, 1)

	assert.Equal(t, "p1", feed[1].Post.ID)
	assert.Equal(t, 2, feed[1].LikeCount)
	assert.True(t, feed[1].IsLiked)
	assert.Len(t, feed[1].Comments, 2)
}

func TestBuildFeedAnonymous(t *testing.T) {
	posts, likes, comments := fixtures()
	feed := BuildFeed(posts, likes, comments, "")
	for _, item := range feed {
		assert.False(t, item.IsLiked)
	}
}

func TestBuildFeedDoesNotMutateInput(t *testing.T) {
	posts, likes, comments := fixtures()
	BuildFeed(posts, likes, comments, "u1")
	assert.Equal(t, "p1", posts[0].ID)
}

func TestOwnership(t *testing.T) {
	item := models.MediaItem{ID: "m1", OwnerID: "u1"}
	assert.True(t, OwnsMedia(item, "u1"))
	assert.False(t, OwnsMedia(item, "u2"))
	assert.False(t, OwnsMedia(item, ""))

	comment := models.Comment{ID: "c1", AuthorID: "u1"}
	assert.True(t, OwnsComment(comment, "u1"))
	assert.False(t, OwnsComment(comment, ""))
}

func TestVisibleSections(t *testing.T) {
	assert.Equal(t, []AppState{StateHome, StateMoreInfo}, VisibleSections(models.RoleAnonymous))
	assert.Contains(t, VisibleSections(models.RoleVisitor), StateVisitorDashboard)
	assert.Contains(t, VisibleSections(models.RoleVisitor), StateVisitorProfile)
	assert.Contains(t, VisibleSections(models.RoleAdmin), StateAdmin)
	assert.NotContains(t, VisibleSections(models.RoleVisitor), StateAdmin)
}

func TestCanEnter(t *testing.T) {
	assert.True(t, CanEnter(models.RoleAnonymous, StateHome))
	assert.False(t, CanEnter(models.RoleAnonymous, StateAdmin))
	assert.True(t, CanEnter(models.RoleAdmin, StateAdmin))
	assert.False(t, CanEnter(models.RoleAdmin, StateVisitorDashboard))
}
