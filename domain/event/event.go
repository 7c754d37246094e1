// Package event defines the change events flowing from the persistent store
// to each participant's session. The union is closed: anything that does not
// decode into one of the three variants is dropped at the boundary.
package event

import "codecollab/domain"

// ChangeEvent is a notification about one row-level change in a room.
type ChangeEvent interface {
	RoomID() domain.RoomID
	Stream() domain.StreamKind
}

// DocumentChanged carries the full replacement text of the room document.
type DocumentChanged struct {
	Room domain.RoomID
	Text string
}

func (e DocumentChanged) RoomID() domain.RoomID     { return e.Room }
func (e DocumentChanged) Stream() domain.StreamKind { return domain.StreamDocument }

// ChatInserted carries one new, immutable chat message.
type ChatInserted struct {
	Room    domain.RoomID
	Message domain.Message
}

func (e ChatInserted) RoomID() domain.RoomID     { return e.Room }
func (e ChatInserted) Stream() domain.StreamKind { return domain.StreamChat }

// PresenceChanged signals that the participant set changed. It carries no
// payload on purpose: the channel gives no completeness guarantee, so
// consumers must re-fetch the full participant list.
type PresenceChanged struct {
	Room domain.RoomID
}

func (e PresenceChanged) RoomID() domain.RoomID     { return e.Room }
func (e PresenceChanged) Stream() domain.StreamKind { return domain.StreamPresence }
