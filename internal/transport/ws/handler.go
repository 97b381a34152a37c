package ws

import (
	"collaboard/internal/live"
	"collaboard/internal/service"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// CloseSessionLocked tells the client the session cannot be joined
	// and the close is terminal: redirect instead of retrying.
	CloseSessionLocked = 4401
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler terminates WebSocket connections, authenticates the caller's
// role and session membership, and relays decoded messages into the
// session service. It never mutates session state itself.
type Handler struct {
	hub        *Hub
	sessionSvc *service.SessionService
	authSvc    *service.AuthService
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, sessionSvc *service.SessionService, authSvc *service.AuthService) *Handler {
	return &Handler{
		hub:        hub,
		sessionSvc: sessionSvc,
		authSvc:    authSvc,
	}
}

// HostWS handles GET /v1/ws/meetings/{meetingId}/host?session={token}
func (h *Handler) HostWS(w http.ResponseWriter, r *http.Request) {
	meetingID := mux.Vars(r)["meetingId"]
	token := r.URL.Query().Get("session")

	if token == "" {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateHostToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	meta, err := h.sessionSvc.SessionForMeeting(meetingID, claims.HostID)
	if err == live.ErrNotAuthorized {
		http.Error(w, "not the meeting host", http.StatusForbidden)
		return
	}
	if err != nil {
		http.Error(w, "no live session for meeting", http.StatusNotFound)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		AccessCode: meta.AccessCode,
		IsHost:     true,
		Send:       make(chan []byte, 256),
	}
	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readHostPump(wsConn, conn, claims.HostID)
}

// ParticipantWS handles GET /v1/ws/sessions/{accessCode}/participant?token={token}
func (h *Handler) ParticipantWS(w http.ResponseWriter, r *http.Request) {
	accessCode := mux.Vars(r)["accessCode"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateParticipantToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.AccessCode != accessCode {
		http.Error(w, "token not valid for this session", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		AccessCode:    accessCode,
		ParticipantID: claims.ParticipantID,
		Send:          make(chan []byte, 256),
	}

	// Register before joining so the resync frame emitted by the join
	// reaches this socket.
	h.hub.Register(conn)

	if _, err := h.sessionSvc.Connect(accessCode, claims.ParticipantID, claims.DisplayName); err != nil {
		h.hub.Unregister(conn)
		// No write pump is running for this socket yet, so the rejection
		// goes out directly, ahead of the terminal close.
		if reject, merr := json.Marshal(newMessage(MsgError, ErrorPayload{Code: live.ErrorCode(err), Reason: err.Error()})); merr == nil {
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			wsConn.WriteMessage(websocket.TextMessage, reject)
		}
		closeMsg := websocket.FormatCloseMessage(CloseSessionLocked, "session locked")
		wsConn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
		wsConn.Close()
		return
	}

	go h.writePump(wsConn, conn)
	go h.readParticipantPump(wsConn, conn, claims.ParticipantID)
}

func (h *Handler) readHostPump(wsConn *websocket.Conn, conn *Connection, hostID string) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()
	configureReader(wsConn)

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("Host socket error on %s: %v", conn.AccessCode, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Undecodable host message on %s: %v", conn.AccessCode, err)
			h.sendReject(conn, "bad_request", "undecodable message")
			continue
		}

		var actionErr error
		switch msg.Type {
		case MsgStartMeeting:
			actionErr = h.sessionSvc.StartMeeting(conn.AccessCode, hostID)
		case MsgNextQuestion:
			actionErr = h.sessionSvc.NextQuestion(conn.AccessCode, hostID)
		case MsgEndMeeting:
			actionErr = h.sessionSvc.EndMeeting(conn.AccessCode, hostID)
		default:
			h.sendReject(conn, "bad_request", "unknown message type: "+msg.Type)
			continue
		}

		if actionErr != nil {
			h.sendError(conn, actionErr)
		}
	}
}

func (h *Handler) readParticipantPump(wsConn *websocket.Conn, conn *Connection, participantID string) {
	defer func() {
		// A reconnect replaces this conn in the hub; only the socket that
		// is still registered may flip the participant to disconnected.
		if h.hub.Unregister(conn) {
			h.sessionSvc.Disconnect(conn.AccessCode, participantID)
		}
		wsConn.Close()
	}()
	configureReader(wsConn)

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("Participant socket error on %s: %v", conn.AccessCode, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Undecodable participant message on %s: %v", conn.AccessCode, err)
			h.sendReject(conn, "bad_request", "undecodable message")
			continue
		}

		switch msg.Type {
		case MsgSubmitAnswer:
			var payload SubmitAnswerPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				h.sendReject(conn, "bad_request", "invalid submit_answer payload")
				continue
			}
			if err := h.sessionSvc.SubmitAnswer(conn.AccessCode, participantID, payload.QuestionIndex, payload.Text); err != nil {
				h.sendError(conn, err)
			}
		case MsgStartMeeting, MsgNextQuestion, MsgEndMeeting:
			h.sendReject(conn, live.ErrorCode(live.ErrNotAuthorized), "host-only message type")
		default:
			h.sendReject(conn, "bad_request", "unknown message type: "+msg.Type)
		}
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError maps a session error to a rejection reply for the
// originating socket only. Rejections are never broadcast.
func (h *Handler) sendError(conn *Connection, err error) {
	h.sendReject(conn, live.ErrorCode(err), err.Error())
}

func (h *Handler) sendReject(conn *Connection, code, reason string) {
	h.hub.Reply(conn, newMessage(MsgError, ErrorPayload{Code: code, Reason: reason}))
}

func configureReader(wsConn *websocket.Conn) {
	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
}
