package mirror

import (
	"strings"
	"time"
)

// Collection names the logical remote-store collections mirrored by the
// store. Media mirrors are scoped per owner and derived via MediaCollection.
type Collection string

const (
	CollectionUsers         Collection = "users"
	CollectionAnnouncements Collection = "announcements"
	CollectionPosts         Collection = "adminPosts"
	CollectionComments      Collection = "comments"
	CollectionLikes         Collection = "likes"
	CollectionSiteConfig    Collection = "siteConfig"
)

const mediaPrefix = "media:"

// MediaCollection returns the scoped collection name for one owner's media.
func MediaCollection(ownerID string) Collection {
	return Collection(mediaPrefix + ownerID)
}

// MediaOwner extracts the owner id from a scoped media collection name.
func MediaOwner(c Collection) (string, bool) {
	raw := string(c)
	if !strings.HasPrefix(raw, mediaPrefix) {
		return "", false
	}
	return raw[len(mediaPrefix):], true
}

// Snapshot is a complete point-in-time replacement of a mirror's contents,
// never a diff. Versions increase monotonically per collection.
type Snapshot struct {
	Collection Collection  `json:"collection"`
	Version    uint64      `json:"version"`
	TakenAt    time.Time   `json:"taken_at"`
	Data       interface{} `json:"data"`
}
