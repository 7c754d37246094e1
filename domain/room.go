// Package domain contains core concepts of the collaboration system.
// This file defines Room identity. Rooms scope every other entity and are
// created implicitly on first reference; abandoned rooms are never reclaimed.
package domain

// RoomID is the opaque key scoping documents, chat logs and participants.
type RoomID string

func (id RoomID) String() string {
	return string(id)
}
