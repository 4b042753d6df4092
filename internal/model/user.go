package model

import (
	"time"
)

// User is a registered account. Credentials are stored separately.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Bio          string     `json:"bio"`
	Location     string     `json:"location"`
	ProfileImage string     `json:"profileImage"`
	JoinDate     time.Time  `json:"joinDate"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Location string `json:"location"`
}

// LoginRequest represents the data needed to log in. Identifier is a
// username or an email.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// ProfilePatch carries the editable profile fields. Nil fields are left alone.
type ProfilePatch struct {
	Username     *string `json:"username,omitempty" validate:"omitempty,min=3"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Bio          *string `json:"bio,omitempty" validate:"omitempty,max=160"`
	Location     *string `json:"location,omitempty"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

// ChangePasswordRequest is the settings-page password form.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// DeleteAccountRequest requires the user to type the confirmation phrase.
type DeleteAccountRequest struct {
	Confirmation string `json:"confirmation"`
}

// Identity constraints
const (
	MinUsernameLength = 3
	MinPasswordLength = 6
	DefaultBio        = "New ThreadX user!"

	// DeleteConfirmationPhrase must be typed verbatim to delete an account.
	DeleteConfirmationPhrase = "DELETE MY ACCOUNT"
)

var (
	ErrUserNotFound        = kind("user not found", ErrNotFound)
	ErrUsernameTaken       = kind("username already taken", ErrConflict)
	ErrEmailTaken          = kind("email already registered", ErrConflict)
	ErrDemoAccountReadOnly = kind("demo accounts cannot change their password", ErrPermission)
	ErrNotAccountOwner     = kind("can only delete your own account", ErrPermission)
)
