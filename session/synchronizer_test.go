package session

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"codecollab/channel"
	"codecollab/domain"
	"codecollab/domain/event"
	"codecollab/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testRoom = domain.RoomID("room-42")

var self = domain.Participant{ID: "p-1", Name: "alice", Online: true}

func newTestSynchronizer(t *testing.T) (*Synchronizer, *mocks.MockStoreClient, *channel.MemoryBroker) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStoreClient(ctrl)
	broker := channel.NewMemoryBroker(log)
	return NewSynchronizer(log, store, broker, testRoom, self, 16), store, broker
}

func expectJoinSnapshot(store *mocks.MockStoreClient, doc domain.Document, msgs []domain.Message, parts []domain.Participant) {
	store.EXPECT().Join(gomock.Any(), testRoom, self).Return(nil)
	store.EXPECT().FetchDocument(gomock.Any(), testRoom).Return(doc, nil)
	store.EXPECT().FetchMessages(gomock.Any(), testRoom).Return(msgs, nil)
	store.EXPECT().FetchParticipants(gomock.Any(), testRoom).Return(parts, nil)
}

func TestSynchronizer_JoinSeedsSnapshot(t *testing.T) {
	req := require.New(t)
	sync, store, _ := newTestSynchronizer(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	expectJoinSnapshot(store,
		domain.Document{Room: testRoom, Text: "seed text", UpdatedAt: base},
		[]domain.Message{msgAt("bob", "hello", base)},
		[]domain.Participant{self},
	)

	req.NoError(sync.Join(ctx))

	req.Equal("seed text", sync.State().Document().Text)
	req.Len(sync.State().Messages(), 1)
	req.Len(sync.State().Participants(), 1)
}

func TestSynchronizer_RemoteDocumentEventApplied(t *testing.T) {
	req := require.New(t)
	sync, store, broker := newTestSynchronizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expectJoinSnapshot(store, domain.Document{Room: testRoom, Text: "old"}, nil, nil)
	req.NoError(sync.Join(ctx))
	go func() { _ = sync.Run(ctx) }()

	req.NoError(broker.Publish(ctx, event.DocumentChanged{Room: testRoom, Text: "new remote"}))

	req.Eventually(func() bool {
		doc := sync.State().Document()
		return doc.Text == "new remote" && doc.Origin == domain.OriginRemoteOverride
	}, time.Second, 10*time.Millisecond)
}

func TestSynchronizer_ChatEventsAppendInArrivalOrder(t *testing.T) {
	req := require.New(t)
	sync, store, broker := newTestSynchronizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expectJoinSnapshot(store, domain.Document{Room: testRoom}, nil, nil)
	req.NoError(sync.Join(ctx))
	go func() { _ = sync.Run(ctx) }()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	// Delivered newest first: the log must still come out sorted.
	req.NoError(broker.Publish(ctx, event.ChatInserted{Room: testRoom, Message: msgAt("bob", "second", base.Add(time.Minute))}))
	req.NoError(broker.Publish(ctx, event.ChatInserted{Room: testRoom, Message: msgAt("alice", "first", base)}))

	req.Eventually(func() bool {
		return len(sync.State().Messages()) == 2
	}, time.Second, 10*time.Millisecond)

	log := sync.State().Messages()
	req.Equal("first", log[0].Content)
	req.Equal("second", log[1].Content)
}

func TestSynchronizer_PresenceEventTriggersRefetch(t *testing.T) {
	req := require.New(t)
	sync, store, broker := newTestSynchronizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expectJoinSnapshot(store, domain.Document{Room: testRoom}, nil, []domain.Participant{self})
	// The presence event itself carries nothing; the list is re-fetched.
	store.EXPECT().FetchParticipants(gomock.Any(), testRoom).Return([]domain.Participant{
		self,
		{ID: "p-2", Name: "bob", Online: true},
	}, nil)

	req.NoError(sync.Join(ctx))
	go func() { _ = sync.Run(ctx) }()

	req.NoError(broker.Publish(ctx, event.PresenceChanged{Room: testRoom}))

	req.Eventually(func() bool {
		return len(sync.State().Participants()) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestSynchronizer_NoMutationAfterLeave(t *testing.T) {
	req := require.New(t)
	sync, store, broker := newTestSynchronizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expectJoinSnapshot(store, domain.Document{Room: testRoom, Text: "before leave"}, nil, nil)
	store.EXPECT().Leave(gomock.Any(), testRoom, self.ID).Return(nil)

	req.NoError(sync.Join(ctx))
	go func() { _ = sync.Run(ctx) }()

	sync.Leave(ctx)

	req.NoError(broker.Publish(ctx, event.DocumentChanged{Room: testRoom, Text: "late event"}))

	// The late event must not reach the discarded state.
	time.Sleep(50 * time.Millisecond)
	req.Equal("before leave", sync.State().Document().Text)
}

func TestSynchronizer_LeaveIsIdempotent(t *testing.T) {
	req := require.New(t)
	sync, store, _ := newTestSynchronizer(t)
	ctx := context.Background()

	expectJoinSnapshot(store, domain.Document{Room: testRoom}, nil, nil)
	store.EXPECT().Leave(gomock.Any(), testRoom, self.ID).Return(nil).Times(1)

	req.NoError(sync.Join(ctx))

	sync.Leave(ctx)
	sync.Leave(ctx)
}

func TestSynchronizer_LocalEditKeptWhenPersistFails(t *testing.T) {
	req := require.New(t)
	sync, store, _ := newTestSynchronizer(t)
	ctx := context.Background()

	expectJoinSnapshot(store, domain.Document{Room: testRoom}, nil, nil)
	store.EXPECT().SaveDocument(gomock.Any(), testRoom, "my edit").
		Return(fmt.Errorf("network down"))

	req.NoError(sync.Join(ctx))

	sync.ApplyLocalEdit(ctx, "my edit")

	// Local echo is immediate and survives the failed persist.
	req.Equal("my edit", sync.State().Document().Text)
	req.Eventually(sync.Disconnected, time.Second, 10*time.Millisecond)
}

func TestSynchronizer_SendMessagePersistsOnly(t *testing.T) {
	req := require.New(t)
	sync, store, _ := newTestSynchronizer(t)
	ctx := context.Background()

	expectJoinSnapshot(store, domain.Document{Room: testRoom}, nil, nil)
	store.EXPECT().AppendMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg domain.Message) error {
			req.Equal(testRoom, msg.Room)
			req.Equal("alice", msg.Sender)
			req.Equal("hi there", msg.Content)
			return nil
		})

	req.NoError(sync.Join(ctx))
	req.NoError(sync.SendMessage(ctx, "hi there"))

	// The local log fills in only when the store re-broadcasts the insert.
	req.Empty(sync.State().Messages())
}

func TestSynchronizer_JoinFailsClosed(t *testing.T) {
	req := require.New(t)
	sync, store, _ := newTestSynchronizer(t)
	ctx := context.Background()

	store.EXPECT().Join(gomock.Any(), testRoom, self).Return(nil)
	store.EXPECT().FetchDocument(gomock.Any(), testRoom).
		Return(domain.Document{}, fmt.Errorf("store unreachable"))

	err := sync.Join(ctx)
	req.Error(err)
}
