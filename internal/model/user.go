// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered forum member.
//
// The Username doubles as the user's mention handle: writing "@sakif" in a
// question or answer body refers to the user whose Username is "sakif".
// That's why it carries a UNIQUE constraint in the database — a handle must
// resolve to at most one account.
//
// WHY IS PasswordHash EXCLUDED FROM JSON?
// The `json:"-"` tag tells encoding/json to never serialize this field.
// Even though it's a bcrypt hash (not the password itself), there is no
// reason for it to ever leave the server. With the tag, the field simply
// cannot appear in an API response, no matter which handler returns a User.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"` // unique mention handle, e.g. "sakif"
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatarUrl"`
	Reputation   int       `json:"reputation"` // never negative; see service.VoteService
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the trimmed-down view of a user embedded in other records
// (question author, notification sender, voter lists). It carries only what
// the frontend needs to render a name with an avatar next to it.
type PublicUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

// Public returns the embeddable view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}
