package live

import "errors"

var (
	// ErrInvalidConfig rejects bad session setup parameters at creation,
	// before a session ever exists.
	ErrInvalidConfig = errors.New("invalid session configuration")

	// ErrCodeConflict means the chosen access code is already owned by a
	// live session. Callers retry with a fresh code.
	ErrCodeConflict = errors.New("access code already in use")

	// ErrNotFound means no live session owns the given access code, or a
	// participant ID is not on the session's roster.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized rejects a host-only action issued by a non-host.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrAlreadyStarted rejects start on a session that is not NotStarted.
	ErrAlreadyStarted = errors.New("meeting already started")

	// ErrNotStarted rejects actions that require an in-progress session.
	ErrNotStarted = errors.New("meeting not started")

	// ErrNoMoreQuestions rejects advance past the last question. The host
	// should issue end instead.
	ErrNoMoreQuestions = errors.New("no more questions")

	// ErrSessionClosed rejects any action on an ended session.
	ErrSessionClosed = errors.New("session closed")

	// ErrStaleQuestion rejects an answer for a question index the host has
	// already advanced past (or not reached).
	ErrStaleQuestion = errors.New("stale question index")

	// ErrDuplicateAnswer rejects a second answer for the same participant
	// and question index. First write wins.
	ErrDuplicateAnswer = errors.New("answer already submitted")
)

// ErrorCode maps a session error to its wire code, sent in rejection
// replies to the originating socket.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrAlreadyStarted):
		return "already_started"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	case errors.Is(err, ErrNoMoreQuestions):
		return "no_more_questions"
	case errors.Is(err, ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, ErrStaleQuestion):
		return "stale_question"
	case errors.Is(err, ErrDuplicateAnswer):
		return "duplicate_answer"
	default:
		return "internal"
	}
}
