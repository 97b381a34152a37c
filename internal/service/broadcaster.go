package service

import "collaboard/internal/live"

// Broadcaster delivers outbound session events to connected sockets.
// Implemented by the WebSocket hub; declared here to avoid an import
// cycle between the service and transport layers. Implementations must
// deliver messages for one session in the order the calls were made.
type Broadcaster interface {
	BroadcastToHost(accessCode string, msgType string, payload interface{})
	BroadcastToParticipant(accessCode, participantID string, msgType string, payload interface{})
	BroadcastToSession(accessCode string, msgType string, payload interface{})
	CloseSession(accessCode string)
}

// eventSink adapts a Broadcaster to the live.Sink interface. Sessions
// call Emit while holding their lock, so the broadcaster's FIFO sees
// events in mutation order.
type eventSink struct {
	b Broadcaster
}

// NewEventSink wraps a Broadcaster for use as the session store's sink.
func NewEventSink(b Broadcaster) live.Sink {
	return &eventSink{b: b}
}

func (s *eventSink) Emit(accessCode string, ev live.Event) {
	switch {
	case ev.HostOnly:
		s.b.BroadcastToHost(accessCode, ev.Kind, ev.Payload)
	case ev.ParticipantID != "":
		s.b.BroadcastToParticipant(accessCode, ev.ParticipantID, ev.Kind, ev.Payload)
	default:
		s.b.BroadcastToSession(accessCode, ev.Kind, ev.Payload)
	}
}
