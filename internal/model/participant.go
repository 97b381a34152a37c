package model

import "time"

// ConnectionStatus tracks whether a participant's socket is currently open
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// Participant is the wire view of one attendee, as broadcast to sockets
// and returned by REST introspection. Answer texts never leave the host
// path; peers only ever see name and status.
type Participant struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"displayName"`
	Status      ConnectionStatus `json:"status"`
	JoinedAt    time.Time        `json:"joinedAt"`
}

// Answer is an accepted answer submission, persisted to MongoDB by the
// background writer after the in-memory roster mutation succeeded.
type Answer struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	AccessCode    string    `json:"accessCode" bson:"accessCode"`
	MeetingID     string    `json:"meetingId" bson:"meetingId"`
	ParticipantID string    `json:"participantId" bson:"participantId"`
	QuestionIndex int       `json:"questionIndex" bson:"questionIndex"`
	Text          string    `json:"text" bson:"text"`
	SubmittedAt   time.Time `json:"submittedAt" bson:"submittedAt"`
}
