package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub manages WebSocket connections for live sessions. Registration is
// synchronous, so a caller that registers a socket and then triggers a
// broadcast is guaranteed the socket sees it. Outbound delivery runs
// through a single FIFO channel: for any one session, frames reach
// sockets in the order broadcasts were enqueued.
type Hub struct {
	// Session -> connections
	hostConns        map[string]*Connection
	participantConns map[string]map[string]*Connection // accessCode -> participantID -> conn

	mu sync.RWMutex

	broadcast chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	AccessCode    string
	ParticipantID string // Empty for host connections
	IsHost        bool
	Send          chan []byte
}

// BroadcastMessage is one queued delivery instruction. closeAll tears
// down every socket of the session after all prior frames were flushed.
type BroadcastMessage struct {
	AccessCode    string
	ToHost        bool
	ToParticipant string // Empty means all participants
	closeAll      bool
	Message       *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		hostConns:        make(map[string]*Connection),
		participantConns: make(map[string]map[string]*Connection),
		broadcast:        make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for msg := range h.broadcast {
		if msg.closeAll {
			h.closeSession(msg.AccessCode)
			continue
		}
		h.deliver(msg)
	}
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(msg.Message)
	if err != nil {
		log.Printf("Failed to marshal %s message: %v", msg.Message.Type, err)
		return
	}

	if msg.ToHost || msg.ToParticipant == "" {
		if conn, ok := h.hostConns[msg.AccessCode]; ok {
			conn.trySend(data)
		}
	}
	if msg.ToHost {
		return
	}

	participants, ok := h.participantConns[msg.AccessCode]
	if !ok {
		return
	}
	if msg.ToParticipant != "" {
		if conn, ok := participants[msg.ToParticipant]; ok {
			conn.trySend(data)
		}
		return
	}
	for _, conn := range participants {
		conn.trySend(data)
	}
}

// trySend drops the frame if the socket's buffer is full; a stalled
// client must not block delivery to the rest of the session.
func (c *Connection) trySend(data []byte) {
	select {
	case c.Send <- data:
	default:
	}
}

// Register adds a connection. A second host socket for the same session
// replaces the first, which covers host reconnects.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn.IsHost {
		if existing, ok := h.hostConns[conn.AccessCode]; ok {
			close(existing.Send)
		}
		h.hostConns[conn.AccessCode] = conn
		log.Printf("Host connected to session %s", conn.AccessCode)
		return
	}

	if h.participantConns[conn.AccessCode] == nil {
		h.participantConns[conn.AccessCode] = make(map[string]*Connection)
	}
	if existing, ok := h.participantConns[conn.AccessCode][conn.ParticipantID]; ok {
		close(existing.Send)
	}
	h.participantConns[conn.AccessCode][conn.ParticipantID] = conn
	log.Printf("Participant %s connected to session %s", conn.ParticipantID, conn.AccessCode)
}

// Unregister removes a connection. It reports whether this exact
// connection was still registered: a replaced socket's late teardown
// returns false, so callers must not undo the replacement's state.
func (h *Hub) Unregister(conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn.IsHost {
		if existing, ok := h.hostConns[conn.AccessCode]; ok && existing == conn {
			delete(h.hostConns, conn.AccessCode)
			close(conn.Send)
			log.Printf("Host disconnected from session %s", conn.AccessCode)
			return true
		}
		return false
	}

	removed := false
	if participants, ok := h.participantConns[conn.AccessCode]; ok {
		if existing, ok := participants[conn.ParticipantID]; ok && existing == conn {
			delete(participants, conn.ParticipantID)
			close(conn.Send)
			log.Printf("Participant %s disconnected from session %s", conn.ParticipantID, conn.AccessCode)
			removed = true
		}
		if len(participants) == 0 {
			delete(h.participantConns, conn.AccessCode)
		}
	}
	return removed
}

// BroadcastToHost sends a message to the session host (implements service.Broadcaster)
func (h *Hub) BroadcastToHost(accessCode string, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{
		AccessCode: accessCode,
		ToHost:     true,
		Message:    newMessage(msgType, payload),
	})
}

// BroadcastToParticipant sends a message to one participant (implements service.Broadcaster)
func (h *Hub) BroadcastToParticipant(accessCode, participantID string, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{
		AccessCode:    accessCode,
		ToParticipant: participantID,
		Message:       newMessage(msgType, payload),
	})
}

// BroadcastToSession sends a message to the host and every participant
// of a session (implements service.Broadcaster)
func (h *Hub) BroadcastToSession(accessCode string, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{
		AccessCode: accessCode,
		Message:    newMessage(msgType, payload),
	})
}

// CloseSession tears down every socket of a session after previously
// queued frames were delivered (implements service.Broadcaster)
func (h *Hub) CloseSession(accessCode string) {
	h.enqueue(&BroadcastMessage{
		AccessCode: accessCode,
		closeAll:   true,
	})
}

// Reply sends one frame to a single connection, under the hub lock so
// it can never race a concurrent close of the socket's send channel.
// A connection that is no longer registered is skipped.
func (h *Hub) Reply(conn *Connection, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal %s message: %v", msg.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.isRegistered(conn) {
		conn.trySend(data)
	}
}

func (h *Hub) isRegistered(conn *Connection) bool {
	if conn.IsHost {
		return h.hostConns[conn.AccessCode] == conn
	}
	return h.participantConns[conn.AccessCode][conn.ParticipantID] == conn
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	h.broadcast <- msg
}

func (h *Hub) closeSession(accessCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.hostConns[accessCode]; ok {
		close(conn.Send)
		delete(h.hostConns, accessCode)
	}
	for _, conn := range h.participantConns[accessCode] {
		close(conn.Send)
	}
	delete(h.participantConns, accessCode)
	log.Printf("Closed all sockets for session %s", accessCode)
}

func newMessage(msgType string, payload interface{}) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s payload: %v", msgType, err)
		data = nil
	}
	return &Message{
		Type:    msgType,
		Payload: data,
	}
}
