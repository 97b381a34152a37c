package handler

import (
	"collaboard/internal/model"
	"collaboard/internal/service"
	"collaboard/internal/transport/rest/middleware"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// SessionHandler handles live session endpoints
type SessionHandler struct {
	sessionSvc *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// Open handles POST /v1/meetings/{meetingId}/sessions
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	meetingID := mux.Vars(r)["meetingId"]

	meta, err := h.sessionSvc.OpenSession(r.Context(), meetingID, hostID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, meta)
}

// Get handles GET /v1/sessions/{accessCode}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	accessCode := mux.Vars(r)["accessCode"]

	meta, err := h.sessionSvc.GetSessionMeta(r.Context(), accessCode)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// Join handles POST /v1/sessions/{accessCode}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	accessCode := mux.Vars(r)["accessCode"]

	var req model.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.sessionSvc.RegisterParticipant(r.Context(), accessCode, req.DisplayName)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Roster handles GET /v1/sessions/{accessCode}/roster
func (h *SessionHandler) Roster(w http.ResponseWriter, r *http.Request) {
	accessCode := mux.Vars(r)["accessCode"]

	roster, err := h.sessionSvc.Roster(accessCode)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"participants": roster})
}

// Answers handles GET /v1/sessions/{accessCode}/answers
func (h *SessionHandler) Answers(w http.ResponseWriter, r *http.Request) {
	accessCode := mux.Vars(r)["accessCode"]

	answers, err := h.sessionSvc.ListAnswers(r.Context(), accessCode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"answers": answers})
}

// Archive handles GET /v1/sessions/{accessCode}/archive
func (h *SessionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	accessCode := mux.Vars(r)["accessCode"]

	archive, err := h.sessionSvc.GetArchive(r.Context(), accessCode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if archive == nil {
		writeError(w, http.StatusNotFound, "session archive not found")
		return
	}

	writeJSON(w, http.StatusOK, archive)
}
