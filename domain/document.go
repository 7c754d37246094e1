package domain

import "time"

// DocumentOrigin tags where the current document text came from.
// The engine applies last-write-wins: a remote event always replaces the
// local value, with no causal comparison. The tag makes that visible to
// callers instead of hiding it.
type DocumentOrigin string

const (
	OriginLocal          DocumentOrigin = "local"
	OriginRemoteOverride DocumentOrigin = "remote-override"
)

// Document is the single mutable text of a room.
type Document struct {
	Room      RoomID
	Text      string
	Origin    DocumentOrigin
	UpdatedAt time.Time
}
