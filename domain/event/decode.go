package event

import (
	"encoding/json"
	"fmt"
	"time"

	"codecollab/domain"
	"codecollab/errors"

	"github.com/google/uuid"
)

// wirePayload is the superset of fields a change notification may carry.
type wirePayload struct {
	RoomID    string `json:"room_id"`
	Text      string `json:"text"`
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Decode validates one raw notification against the stream it arrived on and
// returns the corresponding ChangeEvent. Payloads that do not fit the union
// are reported as ErrMalformedEvent so the caller can drop them without
// taking the session down.
func Decode(kind domain.StreamKind, payload []byte) (ChangeEvent, error) {
	var raw wirePayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	if raw.RoomID == "" {
		return nil, fmt.Errorf("%w: missing room_id", errors.ErrMalformedEvent)
	}
	room := domain.RoomID(raw.RoomID)

	switch kind {
	case domain.StreamDocument:
		// Absent text decodes to the empty document, not an error: the
		// editing surface must always stay renderable.
		return DocumentChanged{Room: room, Text: raw.Text}, nil
	case domain.StreamChat:
		msg, err := decodeMessage(room, raw)
		if err != nil {
			return nil, err
		}
		return ChatInserted{Room: room, Message: msg}, nil
	case domain.StreamPresence:
		return PresenceChanged{Room: room}, nil
	default:
		return nil, fmt.Errorf("%w: unknown stream %q", errors.ErrMalformedEvent, kind)
	}
}

func decodeMessage(room domain.RoomID, raw wirePayload) (domain.Message, error) {
	id, err := uuid.Parse(raw.MessageID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: bad message id %q", errors.ErrMalformedEvent, raw.MessageID)
	}
	at, err := time.Parse(time.RFC3339Nano, raw.CreatedAt)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: bad created_at %q", errors.ErrMalformedEvent, raw.CreatedAt)
	}
	return domain.Message{
		ID:        id,
		Room:      room,
		Sender:    raw.Sender,
		Content:   raw.Content,
		CreatedAt: at.UTC(),
	}, nil
}

// Encode renders an event back into its wire payload. The persistent store
// uses it when re-broadcasting a successful write to subscribers.
func Encode(e ChangeEvent) ([]byte, error) {
	raw := wirePayload{RoomID: e.RoomID().String()}
	switch evt := e.(type) {
	case DocumentChanged:
		raw.Text = evt.Text
	case ChatInserted:
		raw.MessageID = evt.Message.ID.String()
		raw.Sender = evt.Message.Sender
		raw.Content = evt.Message.Content
		raw.CreatedAt = evt.Message.CreatedAt.UTC().Format(time.RFC3339Nano)
	case PresenceChanged:
	default:
		return nil, fmt.Errorf("%w: unknown event %T", errors.ErrMalformedEvent, e)
	}
	return json.Marshal(raw)
}
