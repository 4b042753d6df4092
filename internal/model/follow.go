package model

// UserSummary is a user as shown in lists (followers, suggestions, search).
type UserSummary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
	Location     string `json:"location,omitempty"`
	IsFollowing  bool   `json:"isFollowing"`
}

// ProfileStats are the counters shown on a profile page.
type ProfileStats struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
	Threads   int `json:"threads"`
}

// Suggestions shown in the "who to follow" panel.
const MaxSuggestions = 8

var (
	ErrAlreadyFollowing = kind("already following this user", ErrConflict)
	ErrNotFollowing     = kind("not following this user", ErrNotFound)
	ErrCannotFollowSelf = &ValidationError{Field: "targetId", Message: "cannot follow yourself"}
)

// Summarize converts a user into its list representation.
func Summarize(u User) UserSummary {
	return UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
		Location:     u.Location,
	}
}
