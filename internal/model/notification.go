package model

import (
	"time"
)

// AlertType is the kind of activity an alert reports.
type AlertType string

// Alert types
const (
	AlertLike        AlertType = "like"
	AlertUnlike      AlertType = "unlike"
	AlertComment     AlertType = "comment"
	AlertRepost      AlertType = "repost"
	AlertQuoteRepost AlertType = "quote_repost"
	AlertFollow      AlertType = "follow"
	AlertUnfollow    AlertType = "unfollow"
	AlertProfileView AlertType = "profile_view"
	AlertView        AlertType = "view"
	AlertNewThread   AlertType = "new_thread"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertLike, AlertUnlike, AlertComment, AlertRepost, AlertQuoteRepost,
		AlertFollow, AlertUnfollow, AlertProfileView, AlertView, AlertNewThread:
		return true
	}
	return false
}

// Alert is one entry in a recipient's feed. Message rendering is left to
// the UI; Content carries the short action text.
type Alert struct {
	ID            string    `json:"id"`
	Type          AlertType `json:"type"`
	FromUserID    string    `json:"fromUserId"`
	FromUsername  string    `json:"fromUsername"`
	ActorImage    string    `json:"actorImage,omitempty"`
	Content       string    `json:"content"`
	ThreadID      string    `json:"threadId,omitempty"`
	ThreadPreview string    `json:"threadPreview,omitempty"`
	RelatedUserID string    `json:"relatedUserId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Read          bool      `json:"read"`
}

// AlertListResponse is the notifications page payload.
type AlertListResponse struct {
	Alerts      []Alert `json:"alerts"`
	UnreadCount int     `json:"unreadCount"`
}

// MaxAlerts bounds each recipient's feed; older entries are evicted on write.
const MaxAlerts = 50

var (
	ErrAlertNotFound    = kind("alert not found", ErrNotFound)
	ErrInvalidAlertType = &ValidationError{Field: "type", Message: "unknown alert type"}
)
