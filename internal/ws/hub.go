// Package ws implements the realtime messaging engine: the per-connection
// authentication handshake, the registry of live connections, and the
// persist-then-fan-out broadcast of chat messages.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/eliu/babble/internal/auth"
	"github.com/eliu/babble/internal/models"
	"github.com/eliu/babble/internal/store"
)

// inboundFrame is the tagged variant sent by clients. Unknown tags are
// ignored.
type inboundFrame struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	IsTyping bool   `json:"isTyping,omitempty"`
}

type messageFrame struct {
	Type string `json:"type"`
	models.Message
}

type typingFrame struct {
	Type     string `json:"type"`
	UserID   int    `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type Hub struct {
	registry *Registry
	store    store.Store
	tokens   *auth.TokenManager
	upgrader websocket.Upgrader
}

func NewHub(st store.Store, tokens *auth.TokenManager, allowedOrigins []string) *Hub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = struct{}{}
	}

	return &Hub{
		registry: NewRegistry(),
		store:    st,
		tokens:   tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// Registry exposes the connection registry, mainly for tests and stats.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeWS upgrades the request and runs the session handshake. The bearer
// token travels in the ?token= query parameter. A missing token leaves the
// connection open but inert; an invalid one closes it immediately.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}

	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := h.tokens.Verify(token)
		if err != nil {
			conn.Close()
			return
		}

		client.userID = claims.UserID
		client.username = claims.Username
		client.authed = true

		if prior := h.registry.Put(client.userID, client); prior != nil {
			// Single connection per user: the superseded socket is
			// closed rather than left to leak.
			prior.conn.Close()
		}
		log.Printf("user %s connected (conn %s, %d online)", client.username, client.id, h.registry.Len())
	}

	go client.writePump()
	go client.readPump()
}

// detach runs once when a connection's read pump exits. The
// compare-and-remove keeps a superseded connection from evicting its
// replacement.
func (h *Hub) detach(c *Client) {
	if !c.authed {
		return
	}
	if h.registry.Remove(c.userID, c) {
		log.Printf("user %s disconnected (conn %s, %d online)", c.username, c.id, h.registry.Len())
	}
}

// handleFrame dispatches one inbound frame. Malformed frames and frames
// from unauthenticated connections are dropped; the connection stays open.
func (h *Hub) handleFrame(c *Client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("conn %s sent malformed frame: %v", c.id, err)
		return
	}

	if !c.authed {
		return
	}

	switch frame.Type {
	case "chat":
		content := strings.TrimSpace(frame.Content)
		if content == "" {
			return
		}
		h.broadcastChat(c, content)
	case "typing":
		h.relayTyping(c, frame.IsTyping)
	}
}

// broadcastChat persists the message and fans the canonical row out to
// every registered connection, including the sender. Fan-out only happens
// after the persist succeeds, so no receiver observes an unsaved message.
func (h *Hub) broadcastChat(c *Client, content string) {
	msg, err := h.store.SaveMessage(c.userID, content)
	if err != nil {
		log.Printf("failed to save message from user %d: %v", c.userID, err)
		if payload, err := json.Marshal(errorFrame{Type: "error", Error: "failed to save message"}); err == nil {
			c.trySend(payload)
		}
		return
	}

	payload, err := json.Marshal(messageFrame{Type: "message", Message: *msg})
	if err != nil {
		log.Printf("failed to encode message %d: %v", msg.ID, err)
		return
	}

	for _, peer := range h.registry.Snapshot() {
		if !peer.trySend(payload) {
			log.Printf("dropping message %d for slow conn %s", msg.ID, peer.id)
		}
	}
}

// relayTyping forwards a typing indicator to everyone but the sender. It is
// never persisted.
func (h *Hub) relayTyping(c *Client, isTyping bool) {
	payload, err := json.Marshal(typingFrame{
		Type:     "typing",
		UserID:   c.userID,
		Username: c.username,
		IsTyping: isTyping,
	})
	if err != nil {
		return
	}

	for _, peer := range h.registry.Snapshot() {
		if peer == c {
			continue
		}
		peer.trySend(payload)
	}
}
