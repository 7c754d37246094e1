// Package domain contains core concepts of the collaboration system.
// This file defines Message events and related rules.
// Messages are immutable once created.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat entry.
type Message struct {
	ID        uuid.UUID
	Room      RoomID
	Sender    string
	Content   string
	CreatedAt time.Time
}
