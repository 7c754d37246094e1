package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"codecollab/contract"
	"codecollab/domain"
	"codecollab/domain/event"
	cerr "codecollab/errors"

	"github.com/redis/go-redis/v9"
)

// RedisChannel carries change notifications over redis pub/sub, one PubSub
// connection per (room, stream) subscription. Redis gives per-channel
// ordering and at-most-once delivery to connected subscribers, which is
// exactly the contract the synchronizer assumes.
type RedisChannel struct {
	log *slog.Logger
	rdb *redis.Client
}

func NewRedisChannel(log *slog.Logger, rdb *redis.Client) *RedisChannel {
	return &RedisChannel{log: log, rdb: rdb}
}

func topicName(room domain.RoomID, kind domain.StreamKind) string {
	return fmt.Sprintf("room:%s:%s", room, kind)
}

func (c *RedisChannel) Subscribe(
	ctx context.Context,
	room domain.RoomID,
	kind domain.StreamKind,
	h contract.Handler,
) (contract.Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, topicName(room, kind))

	// Wait for the subscription confirmation so a successful return means
	// we are actually registered with the transport.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: redis subscribe: %v", cerr.ErrConnectivity, err)
	}

	sub := &redisSubscription{pubsub: pubsub, handler: h}

	go c.pump(sub, kind)
	return sub, nil
}

// pump forwards transport messages to the handler in arrival order. It ends
// when the PubSub connection closes, either via Unsubscribe or transport
// failure; dropped events are recovered only by the next snapshot fetch.
func (c *RedisChannel) pump(sub *redisSubscription, kind domain.StreamKind) {
	for msg := range sub.pubsub.Channel() {
		evt, err := event.Decode(kind, []byte(msg.Payload))
		if err != nil {
			c.log.Debug("Dropping malformed change event", "topic", msg.Channel, "error", err)
			continue
		}
		sub.deliver(evt)
	}
	c.log.Debug("Channel subscription drained", "stream", kind)
}

// Publish re-broadcasts a change event to every subscriber of its topic.
func (c *RedisChannel) Publish(ctx context.Context, e event.ChangeEvent) error {
	payload, err := event.Encode(e)
	if err != nil {
		return err
	}
	if err := c.rdb.Publish(ctx, topicName(e.RoomID(), e.Stream()), payload).Err(); err != nil {
		return fmt.Errorf("%w: redis publish: %v", cerr.ErrConnectivity, err)
	}
	return nil
}

type redisSubscription struct {
	pubsub  *redis.PubSub
	handler contract.Handler

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

func (s *redisSubscription) deliver(e event.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.handler(e)
}

// Unsubscribe closes the underlying PubSub connection. Idempotent; after it
// returns the handler will not be invoked again, even for messages already
// in flight on the transport.
func (s *redisSubscription) Unsubscribe() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}
