package types

import "time"

// DefaultProfileImg is the placeholder asset assigned to accounts that
// have not uploaded a picture yet.
const DefaultProfileImg = "default_profile.png"

// User represents an account in the system.
// It contains identity, profile, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, unique across the system.
	Email string `json:"email" db:"email"`

	// ProfileImg is the filename of the user's stored profile picture,
	// keyed as "<username>.<ext>" in object storage. Defaults to
	// DefaultProfileImg until a picture is set.
	ProfileImg string `json:"profile_img" db:"profile_img"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created. It may be
	// backdated at creation time through the legacy create API.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
