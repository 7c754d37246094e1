// Package api exposes the engine to browser clients: a websocket gateway
// for the room session and a small JSON surface for runs and health.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"codecollab/contract"
	"codecollab/domain"
	cerr "codecollab/errors"
	"codecollab/execution"
	"codecollab/infrastructure/storage"
	"codecollab/session"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	log        *slog.Logger
	store      contract.StoreClient
	channel    contract.ChannelClient
	supervisor contract.ISupervisor
	dispatcher *execution.Dispatcher
	history    storage.RunHistory
	bufferSize int
}

func NewServer(
	log *slog.Logger,
	store contract.StoreClient,
	channel contract.ChannelClient,
	supervisor contract.ISupervisor,
	dispatcher *execution.Dispatcher,
	history storage.RunHistory,
	bufferSize int,
) *Server {
	return &Server{
		log:        log,
		store:      store,
		channel:    channel,
		supervisor: supervisor,
		dispatcher: dispatcher,
		history:    history,
		bufferSize: bufferSize,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws/{room}", s.SocketHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms/{room}/run", s.RunHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/rooms/{room}/runs", s.RunListHandler).Methods(http.MethodGet)
	return r
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SocketHandler joins the caller into a room and streams the session both
// ways until the connection drops. Teardown runs on every exit path so a
// dead connection never leaks a live subscription.
func (s *Server) SocketHandler(w http.ResponseWriter, r *http.Request) {
	room := domain.RoomID(mux.Vars(r)["room"])
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "anonymous"
	}

	self := domain.Participant{
		ID:     uuid.NewString(),
		Name:   name,
		Avatar: r.URL.Query().Get("avatar"),
		Online: true,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "room", room, "error", err)
		return
	}

	// Not the request context: the handler returns while the pumps keep
	// running, and ServeHTTP returning would cancel it under us.
	ctx, cancel := context.WithCancel(context.Background())
	sync := session.NewSynchronizer(s.log, s.store, s.channel, room, self, s.bufferSize)

	sock := newSocketSession(s.log, conn, sync, cancel)
	sync.SetListener(sock.onApplied)

	if err := sync.Join(ctx); err != nil {
		s.log.Warn("Room join failed", "room", room, "error", err)
		cancel()
		_ = conn.Close()
		return
	}

	go func() {
		<-ctx.Done()
		leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer leaveCancel()
		sync.Leave(leaveCtx)
	}()

	s.supervisor.Start(ctx, sync)
	sock.snapshot()

	go sock.writePump(ctx)
	go sock.readPump(ctx)
}

type runResponse struct {
	Token  string `json:"token"`
	Status string `json:"status"`
	Output string `json:"output"`
}

// RunHandler drives one remote execution to its terminal state and records
// it in the room's run history. Run failures are terminal for that run only.
func (s *Server) RunHandler(w http.ResponseWriter, r *http.Request) {
	room := domain.RoomID(mux.Vars(r)["room"])

	var req execution.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.dispatcher.Run(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, cerr.ErrUnsupportedLanguage), errors.Is(err, cerr.ErrSubmissionRejected):
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, cerr.ErrPollTimeout):
		errorResponse(w, http.StatusGatewayTimeout, err.Error())
		return
	default:
		errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}

	rec := storage.RunRecord{
		ID:         uuid.New(),
		Room:       room,
		Token:      result.Submission.Token,
		LanguageID: result.Submission.LanguageID,
		SourceCode: result.Submission.SourceCode,
		Status:     result.Submission.Status,
		Output:     result.Output,
		At:         time.Now().UTC(),
	}
	if err := s.history.Record(rec); err != nil {
		s.log.Warn("Run history write failed", "room", room, "error", err)
	}

	jsonResponse(w, http.StatusOK, runResponse{
		Token:  result.Submission.Token,
		Status: string(result.Submission.Status),
		Output: result.Output,
	})
}

func (s *Server) RunListHandler(w http.ResponseWriter, r *http.Request) {
	room := domain.RoomID(mux.Vars(r)["room"])

	records, err := s.history.ListByRoom(room)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []storage.RunRecord{}
	}
	jsonResponse(w, http.StatusOK, records)
}
