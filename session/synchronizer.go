package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"codecollab/contract"
	"codecollab/domain"
	"codecollab/domain/event"
	"codecollab/errors"

	"github.com/google/uuid"
)

const presenceFetchTimeout = 5 * time.Second

// Synchronizer binds one channel subscription per stream kind for a room and
// bridges between the local State and the persistent store.
//
// All inbound events are funneled through a single buffered channel and
// applied in arrival order by Run, so the State has exactly one writer.
// There is no cross-stream ordering guarantee, only per-stream transport
// order, which is all the convergence model needs.
type Synchronizer struct {
	log     *slog.Logger
	store   contract.StoreClient
	channel contract.ChannelClient
	state   *State
	self    domain.Participant

	inbound chan event.ChangeEvent
	subs    []contract.Subscription

	leaveOnce    sync.Once
	closed       atomic.Bool
	disconnected atomic.Bool
	listener     contract.Handler
}

func NewSynchronizer(
	log *slog.Logger,
	store contract.StoreClient,
	channel contract.ChannelClient,
	room domain.RoomID,
	self domain.Participant,
	bufferSize int,
) *Synchronizer {
	return &Synchronizer{
		log:     log,
		store:   store,
		channel: channel,
		state:   NewState(room),
		self:    self,
		inbound: make(chan event.ChangeEvent, bufferSize),
	}
}

// State exposes the read model consumed by the UI layer.
func (s *Synchronizer) State() *State {
	return s.state
}

// SetListener registers a hook invoked from the apply loop after each
// applied event, so a UI transport can push the updated view. Must be set
// before Join; the hook runs on the loop goroutine and must not block.
func (s *Synchronizer) SetListener(h contract.Handler) {
	s.listener = h
}

// Disconnected reports whether the last persist attempt failed. It is a
// transient indicator, never a rollback of local state.
func (s *Synchronizer) Disconnected() bool {
	return s.disconnected.Load()
}

// Join enters the room: register membership, fetch the full snapshot (the
// only catch-up mechanism, since the channel offers no replay), seed the
// local state, then open the three stream subscriptions.
func (s *Synchronizer) Join(ctx context.Context) error {
	if err := s.store.Join(ctx, s.state.Room(), s.self); err != nil {
		return fmt.Errorf("%w: join: %v", errors.ErrConnectivity, err)
	}

	if err := s.resync(ctx); err != nil {
		return err
	}

	for _, kind := range domain.Streams {
		sub, err := s.channel.Subscribe(ctx, s.state.Room(), kind, s.enqueue)
		if err != nil {
			s.teardownSubscriptions()
			return fmt.Errorf("%w: subscribe %s: %v", errors.ErrConnectivity, kind, err)
		}
		s.subs = append(s.subs, sub)
	}
	s.log.Info("Joined room", "room", s.state.Room(), "participant", s.self.ID)
	return nil
}

// resync replaces the whole local state with a fresh store snapshot.
func (s *Synchronizer) resync(ctx context.Context) error {
	doc, err := s.store.FetchDocument(ctx, s.state.Room())
	if err != nil {
		return fmt.Errorf("%w: fetch document: %v", errors.ErrConnectivity, err)
	}
	msgs, err := s.store.FetchMessages(ctx, s.state.Room())
	if err != nil {
		return fmt.Errorf("%w: fetch messages: %v", errors.ErrConnectivity, err)
	}
	parts, err := s.store.FetchParticipants(ctx, s.state.Room())
	if err != nil {
		return fmt.Errorf("%w: fetch participants: %v", errors.ErrConnectivity, err)
	}
	s.state.Seed(doc, msgs, parts)
	return nil
}

// enqueue is the channel handler. It never blocks the transport: when the
// buffer is full the event is dropped, and the next snapshot fetch catches
// the session up. Events for a closed session are discarded outright.
func (s *Synchronizer) enqueue(e event.ChangeEvent) {
	if s.closed.Load() {
		return
	}
	select {
	case s.inbound <- e:
	default:
		s.log.Warn("Inbound buffer full, dropping change event",
			"room", s.state.Room(), "stream", e.Stream())
	}
}

// Run is the apply loop. It is the sole writer of the State and is meant to
// be driven by a supervisor.
func (s *Synchronizer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-s.inbound:
			s.apply(ctx, evt)
			if s.listener != nil && !s.closed.Load() {
				s.listener(evt)
			}
		}
	}
}

func (s *Synchronizer) apply(ctx context.Context, e event.ChangeEvent) {
	if s.closed.Load() {
		return
	}
	switch evt := e.(type) {
	case event.DocumentChanged:
		s.state.ApplyRemoteDocument(evt.Text)
	case event.ChatInserted:
		s.state.AppendMessage(evt.Message)
	case event.PresenceChanged:
		fetchCtx, cancel := context.WithTimeout(ctx, presenceFetchTimeout)
		defer cancel()
		parts, err := s.store.FetchParticipants(fetchCtx, s.state.Room())
		if err != nil {
			s.log.Warn("Participant refetch failed", "room", s.state.Room(), "error", err)
			return
		}
		s.state.SetParticipants(parts)
	default:
		// Closed union; anything else was already rejected at decode time.
		s.log.Debug("Dropping unknown change event", "room", s.state.Room())
	}
}

// ApplyLocalEdit applies text locally right away and persists it in the
// background. A persist failure surfaces as the disconnected indicator, not
// as a rollback: the local buffer stays the participant's working copy.
func (s *Synchronizer) ApplyLocalEdit(ctx context.Context, text string) {
	s.state.ApplyLocalEdit(text)

	go func() {
		if err := s.store.SaveDocument(ctx, s.state.Room(), text); err != nil {
			s.disconnected.Store(true)
			s.log.Warn("Document persist failed", "room", s.state.Room(), "error", err)
			return
		}
		s.disconnected.Store(false)
	}()
}

// SendMessage persists a new chat message. The local log is appended when
// the store re-broadcasts the insert, like every other participant's copy.
func (s *Synchronizer) SendMessage(ctx context.Context, content string) error {
	msg := domain.Message{
		ID:        uuid.New(),
		Room:      s.state.Room(),
		Sender:    s.self.Name,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		s.disconnected.Store(true)
		return fmt.Errorf("%w: send message: %v", errors.ErrConnectivity, err)
	}
	s.disconnected.Store(false)
	return nil
}

// Leave tears the session down: all three subscriptions are closed and the
// state stops accepting events. Safe to call from any exit path, any number
// of times.
func (s *Synchronizer) Leave(ctx context.Context) {
	s.leaveOnce.Do(func() {
		s.closed.Store(true)
		s.teardownSubscriptions()
		if err := s.store.Leave(ctx, s.state.Room(), s.self.ID); err != nil {
			s.log.Warn("Best-effort leave failed", "room", s.state.Room(), "error", err)
		}
		s.log.Info("Left room", "room", s.state.Room(), "participant", s.self.ID)
	})
}

func (s *Synchronizer) teardownSubscriptions() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.log.Warn("Unsubscribe failed", "room", s.state.Room(), "error", err)
		}
	}
	s.subs = nil
}
