package kv

import "strings"

// Global keys. The names match data written by earlier releases so
// existing installations keep working.
const (
	KeySessionUser    = "threadx_user"
	KeySessionToken   = "threadx_token"
	KeyUsers          = "threadx_users"
	KeyThreads        = "threadx_threads"
	KeyRecentSearches = "recentSearches"
	KeyTheme          = "threadx_theme"
)

// Per-user key prefixes.
const (
	PrefixPassword  = "password_"
	PrefixFollowers = "followers_"
	PrefixFollowing = "following_"
	PrefixAlerts    = "threadx_alerts_"
	PrefixLikes     = "threadx_likes_"
	PrefixReposts   = "threadx_reposts_"
)

func PasswordKey(userID string) string  { return PrefixPassword + userID }
func FollowersKey(userID string) string { return PrefixFollowers + userID }
func FollowingKey(userID string) string { return PrefixFollowing + userID }
func AlertsKey(userID string) string    { return PrefixAlerts + userID }
func LikesKey(userID string) string     { return PrefixLikes + userID }
func RepostsKey(userID string) string   { return PrefixReposts + userID }

// UserScopedKeys lists every key owned by a single user. Account deletion
// removes all of them.
func UserScopedKeys(userID string) []string {
	return []string{
		PasswordKey(userID),
		FollowersKey(userID),
		FollowingKey(userID),
		AlertsKey(userID),
		LikesKey(userID),
		RepostsKey(userID),
	}
}

var families = []struct {
	prefix string
	name   string
}{
	{PrefixPassword, "password"},
	{PrefixFollowers, "followers"},
	{PrefixFollowing, "following"},
	{PrefixAlerts, "alerts"},
	{PrefixLikes, "likes"},
	{PrefixReposts, "reposts"},
}

// Family names the logical collection a key belongs to.
func Family(key string) string {
	switch key {
	case KeySessionUser, KeySessionToken:
		return "session"
	case KeyUsers:
		return "users"
	case KeyThreads:
		return "threads"
	case KeyRecentSearches:
		return "recent_searches"
	case KeyTheme:
		return "theme"
	}
	for _, f := range families {
		if strings.HasPrefix(key, f.prefix) {
			return f.name
		}
	}
	return "other"
}

// Owner returns the user id embedded in a per-user key, or "".
func Owner(key string) string {
	for _, f := range families {
		if strings.HasPrefix(key, f.prefix) {
			return strings.TrimPrefix(key, f.prefix)
		}
	}
	return ""
}
