package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"codecollab/domain"
	"codecollab/domain/event"
	"codecollab/session"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
	sendBuffer     = 256
)

// socketSession bridges one websocket connection to one room session. The
// read pump turns client frames into engine calls; the write pump pushes
// the updated read model after every applied change event.
type socketSession struct {
	log    *slog.Logger
	conn   *websocket.Conn
	sync   *session.Synchronizer
	send   chan outboundFrame
	cancel context.CancelFunc
}

func newSocketSession(log *slog.Logger, conn *websocket.Conn, sync *session.Synchronizer, cancel context.CancelFunc) *socketSession {
	return &socketSession{
		log:    log,
		conn:   conn,
		sync:   sync,
		send:   make(chan outboundFrame, sendBuffer),
		cancel: cancel,
	}
}

// onApplied runs on the synchronizer's apply loop; it must only enqueue.
func (s *socketSession) onApplied(e event.ChangeEvent) {
	var frame outboundFrame
	switch evt := e.(type) {
	case event.DocumentChanged:
		frame = outboundFrame{Type: frameDocument, Text: evt.Text, Origin: string(domain.OriginRemoteOverride)}
	case event.ChatInserted:
		msg := toWireMessage(evt.Message)
		frame = outboundFrame{Type: frameChat, Message: &msg}
	case event.PresenceChanged:
		frame = outboundFrame{Type: framePresence, Participants: toWireMembers(s.sync.State().Participants())}
	default:
		return
	}

	select {
	case s.send <- frame:
	default:
		s.log.Warn("Send buffer full, dropping frame", "room", s.sync.State().Room())
	}
}

// snapshot queues the full current state, sent once right after the join.
func (s *socketSession) snapshot() {
	state := s.sync.State()
	doc := state.Document()

	s.send <- outboundFrame{
		Type:         frameSnapshot,
		Text:         doc.Text,
		Origin:       string(doc.Origin),
		Messages:     toWireMessages(state.Messages()),
		Participants: toWireMembers(state.Participants()),
	}
}

func (s *socketSession) readPump(ctx context.Context) {
	defer s.cancel()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Websocket read failed", "room", s.sync.State().Room(), "error", err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.log.Debug("Dropping undecodable client frame", "error", err)
			continue
		}

		switch frame.Type {
		case frameEdit:
			s.sync.ApplyLocalEdit(ctx, frame.Text)
			// Local echo so the sender sees its own keystrokes even while
			// the persist round-trip is in flight.
			select {
			case s.send <- outboundFrame{Type: frameDocument, Text: frame.Text, Origin: string(domain.OriginLocal)}:
			default:
			}
		case frameChatSend:
			if err := s.sync.SendMessage(ctx, frame.Content); err != nil {
				s.log.Warn("Chat send failed", "room", s.sync.State().Room(), "error", err)
			}
		default:
			s.log.Debug("Dropping unknown client frame", "type", frame.Type)
		}
	}
}

func (s *socketSession) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
