package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codecollab/channel"
	"codecollab/domain"
	"codecollab/execution"
	"codecollab/infrastructure/storage"
	"codecollab/mocks"
	"codecollab/runtime/workers"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type serverFixture struct {
	server *Server
	judge  *mocks.MockJudgeClient
	store  *mocks.MockStoreClient
}

func newTestServer(t *testing.T) serverFixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	judge := mocks.NewMockJudgeClient(ctrl)
	store := mocks.NewMockStoreClient(ctrl)
	dispatcher := execution.NewDispatcher(log, judge, time.Millisecond, 10)

	server := NewServer(
		log,
		store,
		channel.NewMemoryBroker(log),
		workers.NewSupervisor(log, 50*time.Millisecond),
		dispatcher,
		storage.NewRunHistory(db, log),
		16,
	)
	return serverFixture{server: server, judge: judge, store: store}
}

func TestServer_Healthz(t *testing.T) {
	req := require.New(t)
	fix := newTestServer(t)

	rec := httptest.NewRecorder()
	fix.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	req.Equal(http.StatusOK, rec.Code)
	var body map[string]any
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Equal("ok", body["status"])
}

func runBody(t *testing.T, source string, lang int) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(execution.RunRequest{SourceCode: source, LanguageID: lang})
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestServer_RunHandlerAcceptedAndRecorded(t *testing.T) {
	req := require.New(t)
	fix := newTestServer(t)

	fix.judge.EXPECT().CreateSubmission(gomock.Any(), `print("1")`, execution.LanguagePython, "").
		Return("tok-1", nil)
	fix.judge.EXPECT().GetSubmission(gomock.Any(), "tok-1").
		Return(domain.StatusSnapshot{StatusID: 3, StatusDescription: "Accepted", Stdout: "1\n"}, nil)

	rec := httptest.NewRecorder()
	fix.server.Router().ServeHTTP(rec, httptest.NewRequest(
		http.MethodPost, "/api/rooms/room-1/run", runBody(t, `print("1")`, execution.LanguagePython)))

	req.Equal(http.StatusOK, rec.Code)
	var resp runResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	req.Equal("tok-1", resp.Token)
	req.Equal(string(domain.SubmissionDone), resp.Status)
	req.Equal("1", resp.Output)

	// The run must land in the room's history.
	rec = httptest.NewRecorder()
	fix.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/room-1/runs", nil))
	req.Equal(http.StatusOK, rec.Code)

	var runs []storage.RunRecord
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &runs))
	req.Len(runs, 1)
	req.Equal("tok-1", runs[0].Token)
	req.Equal("1", runs[0].Output)
}

func TestServer_RunHandlerRejections(t *testing.T) {
	t.Run("unsupported language", func(t *testing.T) {
		fix := newTestServer(t)
		rec := httptest.NewRecorder()
		fix.server.Router().ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/rooms/room-1/run", runBody(t, "x", 99)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty source", func(t *testing.T) {
		fix := newTestServer(t)
		rec := httptest.NewRecorder()
		fix.server.Router().ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/rooms/room-1/run", runBody(t, "", execution.LanguagePython)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("garbage body", func(t *testing.T) {
		fix := newTestServer(t)
		rec := httptest.NewRecorder()
		fix.server.Router().ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/api/rooms/room-1/run", bytes.NewReader([]byte("{not json"))))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_RunHandlerPollTimeout(t *testing.T) {
	req := require.New(t)
	fix := newTestServer(t)

	fix.judge.EXPECT().CreateSubmission(gomock.Any(), gomock.Any(), execution.LanguagePython, gomock.Any()).
		Return("tok-slow", nil)
	fix.judge.EXPECT().GetSubmission(gomock.Any(), "tok-slow").
		Return(domain.StatusSnapshot{StatusID: 2, StatusDescription: "Processing"}, nil).
		AnyTimes()

	rec := httptest.NewRecorder()
	fix.server.Router().ServeHTTP(rec, httptest.NewRequest(
		http.MethodPost, "/api/rooms/room-1/run", runBody(t, "while True: pass", execution.LanguagePython)))

	req.Equal(http.StatusGatewayTimeout, rec.Code)
}

func TestServer_RunListEmptyRoom(t *testing.T) {
	req := require.New(t)
	fix := newTestServer(t)

	rec := httptest.NewRecorder()
	fix.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/ghost/runs", nil))

	req.Equal(http.StatusOK, rec.Code)
	req.Equal("[]", string(bytes.TrimSpace(rec.Body.Bytes())))
}
