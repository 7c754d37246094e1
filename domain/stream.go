package domain

// StreamKind names one of the three logical change streams of a room.
type StreamKind string

const (
	StreamDocument StreamKind = "document"
	StreamChat     StreamKind = "chat"
	StreamPresence StreamKind = "presence"
)

// Streams lists every stream a synchronizer binds when entering a room.
var Streams = []StreamKind{StreamDocument, StreamChat, StreamPresence}
