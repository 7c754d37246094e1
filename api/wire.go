package api

import (
	"time"

	"codecollab/domain"

	"github.com/samber/lo"
)

// Frame types exchanged with browser clients over the websocket.
const (
	frameSnapshot = "snapshot"
	frameDocument = "document"
	frameChat     = "chat"
	framePresence = "presence"
	frameEdit     = "edit"
	frameChatSend = "chat_send"
)

// inboundFrame is what a client may send: a local edit or a chat message.
type inboundFrame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Content string `json:"content,omitempty"`
}

// outboundFrame pushes the updated read model to the client.
type outboundFrame struct {
	Type         string        `json:"type"`
	Text         string        `json:"text,omitempty"`
	Origin       string        `json:"origin,omitempty"`
	Message      *wireMessage  `json:"message,omitempty"`
	Messages     []wireMessage `json:"messages,omitempty"`
	Participants []wireMember  `json:"participants,omitempty"`
}

type wireMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type wireMember struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Online bool   `json:"online"`
}

func toWireMessage(m domain.Message) wireMessage {
	return wireMessage{
		ID:        m.ID.String(),
		Sender:    m.Sender,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toWireMessages(msgs []domain.Message) []wireMessage {
	return lo.Map(msgs, func(m domain.Message, _ int) wireMessage {
		return toWireMessage(m)
	})
}

func toWireMembers(parts []domain.Participant) []wireMember {
	return lo.Map(parts, func(p domain.Participant, _ int) wireMember {
		return wireMember{ID: p.ID, Name: p.Name, Avatar: p.Avatar, Online: p.Online}
	})
}
