package model

import "time"

// Share permission levels for individual note shares.
const (
	PermissionView = "view"
	PermissionEdit = "edit"
)

// NoteShare grants a single user access to a single note.
type NoteShare struct {
	ID         int64     `json:"id"`
	NoteID     int64     `json:"note_id"`
	GranteeID  int64     `json:"grantee_id"`
	Permission string    `json:"permission"`
	CreatedAt  time.Time `json:"created_at"`
}

// GlobalShare makes all of the granter's notes visible to the grantee.
type GlobalShare struct {
	ID        int64     `json:"id"`
	GranterID int64     `json:"granter_id"`
	GranteeID int64     `json:"grantee_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the display metadata attached to shared notes.
type Profile struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
