package live

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Session configuration bounds. Question length and duration limits match
// the meeting setup form the host goes through.
const (
	MaxQuestions       = 20
	MaxQuestionLen     = 300
	MaxDurationSeconds = 3600
	AccessCodeLen      = 8
)

// Store is the authoritative registry of live sessions keyed by access
// code. Lookups across different codes run concurrently under the read
// lock; all state inside a single session is guarded by that session's
// own lock.
type Store struct {
	sink Sink

	mu       sync.RWMutex
	sessions map[string]*Session
	onExpire func(accessCode string)
}

// NewStore creates an empty session store. Events from every session are
// delivered through sink.
func NewStore(sink Sink) *Store {
	return &Store{
		sink:     sink,
		sessions: make(map[string]*Session),
	}
}

// SetExpiryHandler installs the callback invoked when a session's
// countdown reaches zero. The handler is expected to funnel the expiry
// through the same serialized end path as a host-issued end.
func (st *Store) SetExpiryHandler(fn func(accessCode string)) {
	st.mu.Lock()
	st.onExpire = fn
	st.mu.Unlock()
}

// ValidateConfig checks session setup parameters before any session
// state exists. All violations map to ErrInvalidConfig.
func ValidateConfig(questions []string, durationSeconds int) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidConfig)
	}
	if len(questions) > MaxQuestions {
		return fmt.Errorf("%w: %d questions exceeds limit of %d", ErrInvalidConfig, len(questions), MaxQuestions)
	}
	for i, q := range questions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("%w: question %d is empty", ErrInvalidConfig, i)
		}
		if len(q) > MaxQuestionLen {
			return fmt.Errorf("%w: question %d exceeds %d characters", ErrInvalidConfig, i, MaxQuestionLen)
		}
	}
	if durationSeconds < 1 || durationSeconds > MaxDurationSeconds {
		return fmt.Errorf("%w: duration %ds out of range", ErrInvalidConfig, durationSeconds)
	}
	return nil
}

// GenerateAccessCode returns a random 8-digit numeric code.
func GenerateAccessCode() (string, error) {
	b := make([]byte, AccessCodeLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate access code: %w", err)
	}
	code := make([]byte, AccessCodeLen)
	for i := range code {
		code[i] = '0' + b[i]%10
	}
	return string(code), nil
}

// Create registers a new NotStarted session under accessCode. It fails
// with ErrInvalidConfig on bad parameters and ErrCodeConflict when the
// code is already live; callers retry conflicts with a fresh code.
func (st *Store) Create(accessCode, meetingID, hostID string, questions []string, durationSeconds int) (*Session, error) {
	if err := ValidateConfig(questions, durationSeconds); err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.sessions[accessCode]; exists {
		return nil, ErrCodeConflict
	}

	sess := newSession(accessCode, meetingID, hostID, questions, durationSeconds, st.sink)
	sess.expire = func() { st.expired(accessCode) }
	st.sessions[accessCode] = sess
	return sess, nil
}

// Get returns the live session for accessCode, or ErrNotFound.
func (st *Store) Get(accessCode string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[accessCode]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// FindByMeeting returns the live session opened for meetingID, if any.
func (st *Store) FindByMeeting(meetingID string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, sess := range st.sessions {
		if sess.meetingID == meetingID {
			return sess, nil
		}
	}
	return nil, ErrNotFound
}

// Remove drops the session for accessCode, if any.
func (st *Store) Remove(accessCode string) {
	st.mu.Lock()
	delete(st.sessions, accessCode)
	st.mu.Unlock()
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// EvictEnded removes sessions that ended more than ttl ago and returns
// their access codes so callers can clean up external mirrors. Sessions
// still in progress are never evicted.
func (st *Store) EvictEnded(ttl time.Duration) []string {
	cutoff := time.Now().Add(-ttl)

	st.mu.RLock()
	candidates := make([]*Session, 0)
	for _, sess := range st.sessions {
		candidates = append(candidates, sess)
	}
	st.mu.RUnlock()

	evicted := make([]string, 0)
	for _, sess := range candidates {
		if sess.endedBefore(cutoff) {
			evicted = append(evicted, sess.accessCode)
		}
	}

	if len(evicted) > 0 {
		st.mu.Lock()
		for _, code := range evicted {
			delete(st.sessions, code)
		}
		st.mu.Unlock()
	}
	return evicted
}

func (st *Store) expired(accessCode string) {
	st.mu.RLock()
	handler := st.onExpire
	st.mu.RUnlock()
	if handler != nil {
		handler(accessCode)
	}
}
