package ws

import "encoding/json"

// Inbound message types. Host sockets control progression; participant
// sockets only submit answers. Outbound types come from the live package
// and are reused verbatim as wire strings.
const (
	MsgStartMeeting = "start_meeting"
	MsgNextQuestion = "next_question"
	MsgEndMeeting   = "end_meeting"
	MsgSubmitAnswer = "submit_answer"

	// MsgError is the rejection reply sent only to the originating socket.
	MsgError = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubmitAnswerPayload is the inbound payload for submit_answer
type SubmitAnswerPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Text          string `json:"text"`
}

// ErrorPayload carries a typed rejection to the originating socket
type ErrorPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}
