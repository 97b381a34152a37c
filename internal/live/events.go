package live

import "collaboard/internal/model"

// Outbound event kinds. These are the authoritative message-type strings
// of the session protocol; the WebSocket layer reuses them verbatim.
const (
	EventMeetingStarted    = "meeting_started"
	EventQuestionChanged   = "question_changed"
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventAnswerSubmitted   = "answer_submitted"
	EventMeetingEnded      = "meeting_ended"
	EventResync            = "resync"
)

// Event is one outbound protocol event produced by a session mutation.
// HostOnly restricts delivery to the host socket; a non-empty
// ParticipantID restricts it to that participant's socket. Otherwise the
// event goes to every socket subscribed to the session.
type Event struct {
	Kind          string
	HostOnly      bool
	ParticipantID string
	Payload       any
}

// Sink receives events in the exact order the session generated them.
// Sessions call Emit while holding their own lock, so for any single
// session the sink observes events in mutation order.
type Sink interface {
	Emit(accessCode string, ev Event)
}

// MeetingStartedPayload carries the full question list, sent to the host
// exactly once when the meeting starts.
type MeetingStartedPayload struct {
	Questions  []string `json:"questions"`
	AccessCode string   `json:"accessCode"`
}

// QuestionChangedPayload announces the current question to all sockets.
type QuestionChangedPayload struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
}

// ParticipantJoinedPayload announces a (re)joined participant.
type ParticipantJoinedPayload struct {
	Participant model.Participant `json:"participant"`
}

// ParticipantLeftPayload announces a disconnected participant.
type ParticipantLeftPayload struct {
	ParticipantID string `json:"participantId"`
}

// AnswerSubmittedPayload reports submission progress to the host only.
// Peers never learn who answered.
type AnswerSubmittedPayload struct {
	ParticipantID string `json:"participantId"`
	QuestionIndex int    `json:"questionIndex"`
	Answered      int    `json:"answered"`
	Connected     int    `json:"connected"`
}

// MeetingEndedPayload tells clients where to navigate after the session.
type MeetingEndedPayload struct {
	RedirectURL string `json:"redirectUrl"`
}

// ResyncPayload is sent only to a (re)joining participant so the client
// never has to rely on cached state.
type ResyncPayload struct {
	State    model.SessionState `json:"state"`
	Index    int                `json:"index"`
	Question string             `json:"question,omitempty"`
	Answered []int              `json:"answered"`
}
