//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"codecollab/domain"
	"codecollab/domain/event"
)

// StoreClient is the persistent store behind the session: full-state reads
// (the only catch-up mechanism), writes, and membership. Implementations are
// expected to re-broadcast every successful write as a change event.
type StoreClient interface {
	FetchDocument(ctx context.Context, room domain.RoomID) (domain.Document, error)
	SaveDocument(ctx context.Context, room domain.RoomID, text string) error
	FetchMessages(ctx context.Context, room domain.RoomID) ([]domain.Message, error)
	AppendMessage(ctx context.Context, msg domain.Message) error
	FetchParticipants(ctx context.Context, room domain.RoomID) ([]domain.Participant, error)
	Join(ctx context.Context, room domain.RoomID, p domain.Participant) error
	Leave(ctx context.Context, room domain.RoomID, participantID string) error
}

// Handler receives one decoded change event. Invoked exactly once per
// delivered event, in transport order.
type Handler func(e event.ChangeEvent)

// ChannelClient tails live change notifications for one (room, stream) pair.
// Delivery is at-most-once and best-effort: no replay, no redelivery.
type ChannelClient interface {
	Subscribe(ctx context.Context, room domain.RoomID, kind domain.StreamKind, h Handler) (Subscription, error)
}

// Subscription is one open interest registration. Unsubscribe is idempotent
// and guarantees no handler invocation after it returns.
type Subscription interface {
	Unsubscribe() error
}

// Publisher pushes a change event to every live subscriber of its stream.
type Publisher interface {
	Publish(ctx context.Context, e event.ChangeEvent) error
}

// JudgeClient is the remote execution service behind a submit/poll contract.
type JudgeClient interface {
	CreateSubmission(ctx context.Context, sourceCode string, languageID int, stdin string) (string, error)
	GetSubmission(ctx context.Context, token string) (domain.StatusSnapshot, error)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
