package handler

import (
	"collaboard/internal/service"
	"collaboard/internal/transport/rest/middleware"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// MeetingHandler handles meeting setup endpoints
type MeetingHandler struct {
	meetingSvc *service.MeetingService
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetingSvc *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetingSvc: meetingSvc}
}

// MeetingRequest is the request body for creating or updating a meeting
type MeetingRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	DurationSeconds int      `json:"durationSeconds"`
	Questions       []string `json:"questions"`
}

// Create handles POST /v1/meetings
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meeting, err := h.meetingSvc.CreateMeeting(r.Context(), hostID, req.Title, req.Description, req.DurationSeconds, req.Questions)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, meeting)
}

// Get handles GET /v1/meetings/{meetingId}
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	meetingID := mux.Vars(r)["meetingId"]

	meeting, err := h.meetingSvc.GetMeeting(r.Context(), meetingID, hostID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if meeting == nil {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}

	writeJSON(w, http.StatusOK, meeting)
}

// List handles GET /v1/meetings
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())

	meetings, err := h.meetingSvc.ListMeetings(r.Context(), hostID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"meetings": meetings})
}

// Update handles PUT /v1/meetings/{meetingId}
func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	meetingID := mux.Vars(r)["meetingId"]

	var req MeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meeting, err := h.meetingSvc.UpdateMeeting(r.Context(), meetingID, hostID, req.Title, req.Description, req.DurationSeconds, req.Questions)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if meeting == nil {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}

	writeJSON(w, http.StatusOK, meeting)
}

// Delete handles DELETE /v1/meetings/{meetingId}
func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	meetingID := mux.Vars(r)["meetingId"]

	if err := h.meetingSvc.DeleteMeeting(r.Context(), meetingID, hostID); err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
