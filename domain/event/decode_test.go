package event

import (
	"testing"
	"time"

	"codecollab/domain"
	"codecollab/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecode_DocumentChanged(t *testing.T) {
	req := require.New(t)

	e, err := Decode(domain.StreamDocument, []byte(`{"room_id":"room-1","text":"hello"}`))
	req.NoError(err)

	doc, ok := e.(DocumentChanged)
	req.True(ok)
	req.Equal(domain.RoomID("room-1"), doc.Room)
	req.Equal("hello", doc.Text)
}

func TestDecode_DocumentWithoutTextIsEmptyDocument(t *testing.T) {
	req := require.New(t)

	e, err := Decode(domain.StreamDocument, []byte(`{"room_id":"room-1"}`))
	req.NoError(err)
	req.Equal("", e.(DocumentChanged).Text)
}

func TestDecode_ChatInserted(t *testing.T) {
	req := require.New(t)
	id := uuid.New()

	payload := `{"room_id":"room-1","message_id":"` + id.String() +
		`","sender":"alice","content":"hi","created_at":"2025-03-01T12:00:00.5Z"}`
	e, err := Decode(domain.StreamChat, []byte(payload))
	req.NoError(err)

	chat, ok := e.(ChatInserted)
	req.True(ok)
	req.Equal(id, chat.Message.ID)
	req.Equal("alice", chat.Message.Sender)
	req.Equal("hi", chat.Message.Content)
	req.Equal(time.Date(2025, 3, 1, 12, 0, 0, 500_000_000, time.UTC), chat.Message.CreatedAt)
}

func TestDecode_PresenceCarriesOnlyTheRoom(t *testing.T) {
	req := require.New(t)

	e, err := Decode(domain.StreamPresence, []byte(`{"room_id":"room-1","sender":"ignored"}`))
	req.NoError(err)
	req.Equal(domain.RoomID("room-1"), e.(PresenceChanged).Room)
}

func TestDecode_MalformedPayloads(t *testing.T) {
	cases := map[string]struct {
		kind    domain.StreamKind
		payload string
	}{
		"invalid json":        {domain.StreamDocument, `{"room_id":`},
		"missing room":        {domain.StreamDocument, `{"text":"orphan"}`},
		"chat bad message id": {domain.StreamChat, `{"room_id":"r","message_id":"nope","created_at":"2025-03-01T12:00:00Z"}`},
		"chat bad created_at": {domain.StreamChat, `{"room_id":"r","message_id":"` + uuid.NewString() + `","created_at":"yesterday"}`},
		"unknown stream":      {domain.StreamKind("cursor"), `{"room_id":"r"}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tc.kind, []byte(tc.payload))
			require.ErrorIs(t, err, errors.ErrMalformedEvent)
		})
	}
}

func TestEncode_RoundTripsThroughDecode(t *testing.T) {
	req := require.New(t)
	msg := domain.Message{
		ID:        uuid.New(),
		Room:      "room-7",
		Sender:    "bob",
		Content:   "ship it",
		CreatedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	payload, err := Encode(ChatInserted{Room: "room-7", Message: msg})
	req.NoError(err)

	decoded, err := Decode(domain.StreamChat, payload)
	req.NoError(err)
	req.Equal(msg, decoded.(ChatInserted).Message)
}
