package model

import (
	"time"
)

// Thread is a short text post. Author fields are snapshotted at creation
// and not refreshed when the author edits the profile.
type Thread struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profileImage"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	Relevance    float64   `json:"relevance"`

	Likes   int `json:"likes"`
	Reposts int `json:"reposts"`
	// Liked and Reposted are relative to the viewer and filled at read time.
	Liked    bool `json:"liked"`
	Reposted bool `json:"reposted"`

	Comments []Comment `json:"comments"`

	IsPrivate      bool     `json:"isPrivate"`
	MuteReplies    bool     `json:"muteReplies"`
	DisableReposts bool     `json:"disableReposts"`
	AllowedViewers []string `json:"allowedViewers"`
}

// Comment is a top-level comment on a thread.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Replies   []Reply   `json:"replies"`
}

// Reply is a reply to a comment. Replies do not nest further.
type Reply struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Privacy selects at most one restriction family: private, or any
// combination of muted replies and disabled reposts.
type Privacy struct {
	IsPrivate      bool `json:"isPrivate"`
	MuteReplies    bool `json:"muteReplies"`
	DisableReposts bool `json:"disableReposts"`
}

// Normalize resolves conflicting flags. Private wins.
func (p Privacy) Normalize() Privacy {
	if p.IsPrivate {
		return Privacy{IsPrivate: true}
	}
	return p
}

// CreateThreadRequest is the compose form.
type CreateThreadRequest struct {
	Content string `json:"content"`
	Privacy
}

// ContentRequest is used for comments and replies.
type ContentRequest struct {
	Content string `json:"content"`
}

// Category selects a timeline tab.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryMy        Category = "my"
	CategoryFollowing Category = "following"
	CategoryTrending  Category = "trending"
)

// Valid reports whether c names a known tab. Empty means all.
func (c Category) Valid() bool {
	switch c {
	case "", CategoryAll, CategoryMy, CategoryFollowing, CategoryTrending:
		return true
	}
	return false
}

// ThreadFilter narrows a listing for one viewer.
type ThreadFilter struct {
	Query    string
	Category Category
	ViewerID string
	// Following is the viewer's following set, required for CategoryFollowing.
	Following []string
}

// Thread constraints
const (
	MaxThreadLength        = 280
	MaxCommentLength       = 280
	TrendingLikesThreshold = 25
	DefaultRelevance       = 100.0
	ThreadPreviewLength    = 100
)

var (
	ErrThreadNotFound  = kind("thread not found", ErrNotFound)
	ErrCommentNotFound = kind("comment not found", ErrNotFound)
	ErrReplyNotFound   = kind("reply not found", ErrNotFound)
	ErrNotThreadOwner  = kind("not the owner of this thread", ErrPermission)
	ErrNotCommentOwner = kind("not the author of this comment", ErrPermission)
	ErrNotReplyOwner   = kind("not the author of this reply", ErrPermission)
	ErrRepliesMuted    = kind("the author has turned off replies", ErrPermission)
	ErrRepostsDisabled = kind("the author has disabled reposts", ErrPermission)
	ErrInvalidCategory = &ValidationError{Field: "category", Message: "unknown category"}
	ErrContentRequired = &ValidationError{Field: "content", Message: "content is required"}
	ErrContentTooLong  = &ValidationError{Field: "content", Message: "content is too long"}
)

// CanView reports whether viewerID may see t.
func (t *Thread) CanView(viewerID string) bool {
	if !t.IsPrivate {
		return true
	}
	if viewerID == t.UserID {
		return true
	}
	for _, id := range t.AllowedViewers {
		if id == viewerID {
			return true
		}
	}
	return false
}

// FindComment returns the index of the comment with the given id, or -1.
func (t *Thread) FindComment(commentID string) int {
	for i := range t.Comments {
		if t.Comments[i].ID == commentID {
			return i
		}
	}
	return -1
}
