package model

import "github.com/golang-jwt/jwt/v5"

// HostClaims are JWT claims for host authentication
type HostClaims struct {
	HostID string `json:"hostId"`
	jwt.RegisteredClaims
}

// ParticipantClaims are JWT claims for participant session-scoped tokens.
// The participant ID is stable across reconnects, which is how a resumed
// attendee is told apart from a new one.
type ParticipantClaims struct {
	AccessCode    string `json:"accessCode"`
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for host login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token  string `json:"token"`
	HostID string `json:"hostId"`
}

// JoinRequest is the request body for a participant joining a session
type JoinRequest struct {
	DisplayName string `json:"displayName"`
}

// JoinResponse is returned after a participant joins a session
type JoinResponse struct {
	ParticipantID string       `json:"participantId"`
	DisplayName   string       `json:"displayName"`
	Token         string       `json:"token"`
	Meta          *SessionMeta `json:"meta"`
}
