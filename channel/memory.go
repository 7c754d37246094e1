// Package channel implements the live-tail change notification clients.
// A subscription is a live tail, not a durable log: events delivered while
// nobody listens are gone, and consumers needing completeness snapshot-fetch
// on (re)connect.
package channel

import (
	"context"
	"log/slog"
	"sync"

	"codecollab/contract"
	"codecollab/domain"
	"codecollab/domain/event"
)

type topic struct {
	room domain.RoomID
	kind domain.StreamKind
}

// MemoryBroker is an in-process ChannelClient and Publisher. It backs
// single-node deployments and tests, with the same at-most-once, in-order
// delivery contract as the networked transport.
type MemoryBroker struct {
	mu   sync.RWMutex
	log  *slog.Logger
	subs map[topic]map[*memorySubscription]struct{}
}

func NewMemoryBroker(log *slog.Logger) *MemoryBroker {
	return &MemoryBroker{
		log:  log,
		subs: make(map[topic]map[*memorySubscription]struct{}),
	}
}

func (b *MemoryBroker) Subscribe(
	_ context.Context,
	room domain.RoomID,
	kind domain.StreamKind,
	h contract.Handler,
) (contract.Subscription, error) {
	sub := &memorySubscription{broker: b, key: topic{room: room, kind: kind}, handler: h}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.key]; !ok {
		b.subs[sub.key] = make(map[*memorySubscription]struct{})
	}
	b.subs[sub.key][sub] = struct{}{}
	return sub, nil
}

// Publish delivers e to every live subscriber of its (room, stream) topic,
// synchronously and in call order.
func (b *MemoryBroker) Publish(_ context.Context, e event.ChangeEvent) error {
	key := topic{room: e.RoomID(), kind: e.Stream()}

	b.mu.RLock()
	targets := make([]*memorySubscription, 0, len(b.subs[key]))
	for sub := range b.subs[key] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.deliver(e)
	}
	return nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if members, ok := b.subs[sub.key]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(b.subs, sub.key)
		}
	}
}

type memorySubscription struct {
	broker  *MemoryBroker
	key     topic
	handler contract.Handler

	mu     sync.Mutex
	closed bool
}

// deliver invokes the handler under the subscription lock so Unsubscribe can
// guarantee no invocation after it returns.
func (s *memorySubscription) deliver(e event.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.handler(e)
}

// Unsubscribe is an idempotent no-op on an already-closed handle. Once it
// returns, any in-flight delivery has finished and no further one starts.
func (s *memorySubscription) Unsubscribe() error {
	s.broker.remove(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
