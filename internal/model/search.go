package model

import "time"

// RecentSearch is a profile the device has viewed through search.
type RecentSearch struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	ProfileImage string    `json:"profileImage"`
	ViewedAt     time.Time `json:"viewedAt"`
}

// MaxRecentSearches bounds the device-local list.
const MaxRecentSearches = 5

// Theme is the UI color scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

var ErrInvalidTheme = &ValidationError{Field: "theme", Message: "theme must be light or dark"}
