package model

import "time"

// SessionState is the lifecycle state of a live session
type SessionState string

const (
	SessionNotStarted SessionState = "not_started"
	SessionInProgress SessionState = "in_progress"
	SessionEnded      SessionState = "ended"
)

// SessionMeta is the Redis mirror of a live session, keyed by access code.
// The in-memory store stays authoritative; this copy serves access-code
// uniqueness across restarts and REST introspection.
type SessionMeta struct {
	AccessCode       string       `json:"accessCode"`
	MeetingID        string       `json:"meetingId"`
	HostID           string       `json:"hostId"`
	State            SessionState `json:"state"`
	QuestionCount    int          `json:"questionCount"`
	ParticipantCount int          `json:"participantCount"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// SessionArchive is the MongoDB record written when a session ends
type SessionArchive struct {
	ID               string    `json:"id" bson:"_id,omitempty"`
	AccessCode       string    `json:"accessCode" bson:"accessCode"`
	MeetingID        string    `json:"meetingId" bson:"meetingId"`
	HostID           string    `json:"hostId" bson:"hostId"`
	StartedAt        time.Time `json:"startedAt" bson:"startedAt"`
	EndedAt          time.Time `json:"endedAt" bson:"endedAt"`
	ParticipantCount int       `json:"participantCount" bson:"participantCount"`
	AnswerCount      int       `json:"answerCount" bson:"answerCount"`
}
