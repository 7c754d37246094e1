// Package session holds the per-room, per-participant view of a
// collaboration room and the synchronizer that keeps it converging with the
// persistent store.
package session

import (
	"sync"
	"time"

	"codecollab/domain"
)

// State is the in-memory view of one room: current document text, ordered
// chat log and participant set. It is written only by the owning
// synchronizer's apply loop; the lock exists for concurrent readers (UI).
//
// Document conflict policy is last-write-wins. A remote event overwrites the
// local text unconditionally, with no timestamp or causal comparison, so two
// simultaneous typists will see each other's latest delivered change replace
// their own. That is the documented convergence property, not a bug.
type State struct {
	mu           sync.RWMutex
	room         domain.RoomID
	document     domain.Document
	messages     []domain.Message
	participants []domain.Participant
}

func NewState(room domain.RoomID) *State {
	return &State{
		room: room,
		document: domain.Document{
			Room:   room,
			Origin: domain.OriginLocal,
		},
	}
}

func (s *State) Room() domain.RoomID {
	return s.room
}

// Document returns the current local view of the room document.
func (s *State) Document() domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document
}

// ApplyLocalEdit replaces the text with the participant's own edit. The new
// value is authoritative locally right away; persistence happens elsewhere.
func (s *State) ApplyLocalEdit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = domain.Document{
		Room:      s.room,
		Text:      text,
		Origin:    domain.OriginLocal,
		UpdatedAt: time.Now().UTC(),
	}
}

// ApplyRemoteDocument overwrites the text with a delivered change event.
func (s *State) ApplyRemoteDocument(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = domain.Document{
		Room:      s.room,
		Text:      text,
		Origin:    domain.OriginRemoteOverride,
		UpdatedAt: time.Now().UTC(),
	}
}

// AppendMessage inserts msg keeping the log sorted by CreatedAt ascending.
// Equal timestamps keep insertion order, so the scan from the tail stops at
// the first entry that is not strictly newer.
func (s *State) AppendMessage(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.messages)
	for i > 0 && s.messages[i-1].CreatedAt.After(msg.CreatedAt) {
		i--
	}
	s.messages = append(s.messages, domain.Message{})
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = msg
}

// Messages returns a copy of the chat log, oldest first.
func (s *State) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetParticipants replaces the participant set wholesale. Presence events
// carry no guaranteed-complete payload, so there is no incremental diff.
func (s *State) SetParticipants(list []domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = make([]domain.Participant, len(list))
	copy(s.participants, list)
}

func (s *State) Participants() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, len(s.participants))
	copy(out, s.participants)
	return out
}

// Seed loads a full snapshot fetched from the persistent store. Messages are
// re-inserted one by one so the ordering invariant holds even if the store
// returned them unsorted.
func (s *State) Seed(doc domain.Document, msgs []domain.Message, parts []domain.Participant) {
	s.mu.Lock()
	s.document = domain.Document{
		Room:      s.room,
		Text:      doc.Text,
		Origin:    domain.OriginRemoteOverride,
		UpdatedAt: doc.UpdatedAt,
	}
	s.messages = nil
	s.mu.Unlock()

	for _, m := range msgs {
		s.AppendMessage(m)
	}
	s.SetParticipants(parts)
}
