package live

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"collaboard/internal/model"
)

// PostMeetingPath is the redirect hint broadcast with meeting_ended.
const PostMeetingPath = "/post-meeting"

// participant is the registry entry for one attendee. Entries are never
// deleted; disconnects only flip the status so answer history survives.
type participant struct {
	id          string
	displayName string
	status      model.ConnectionStatus
	joinedAt    time.Time
	answers     map[int]string
}

// Session is the authoritative state of one live meeting. Every mutating
// method runs under the session's own lock and emits its outbound events
// to the sink before unlocking, so observers see events in mutation
// order. Sessions are independent: two sessions never share a lock.
type Session struct {
	accessCode      string
	meetingID       string
	hostID          string
	questions       []string
	durationSeconds int
	createdAt       time.Time
	sink            Sink
	expire          func()

	mu           sync.Mutex
	state        model.SessionState
	currentIndex int
	startedAt    time.Time
	endedAt      time.Time
	roster       map[string]*participant
	answerCount  int
	timer        *time.Timer
}

func newSession(accessCode, meetingID, hostID string, questions []string, durationSeconds int, sink Sink) *Session {
	return &Session{
		accessCode:      accessCode,
		meetingID:       meetingID,
		hostID:          hostID,
		questions:       questions,
		durationSeconds: durationSeconds,
		createdAt:       time.Now(),
		sink:            sink,
		state:           model.SessionNotStarted,
		currentIndex:    -1,
		roster:          make(map[string]*participant),
	}
}

// AccessCode returns the session's public access code.
func (s *Session) AccessCode() string { return s.accessCode }

// MeetingID returns the meeting this session was opened for.
func (s *Session) MeetingID() string { return s.meetingID }

// HostID returns the identity authorized to drive this session.
func (s *Session) HostID() string { return s.hostID }

// Start transitions the session to InProgress and arms the countdown
// timer. Only the host may start; a second start fails with
// ErrAlreadyStarted and leaves the state untouched.
func (s *Session) Start(actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionEnded {
		return ErrSessionClosed
	}
	if actorID != s.hostID {
		return ErrNotAuthorized
	}
	if s.state != model.SessionNotStarted {
		return ErrAlreadyStarted
	}

	s.state = model.SessionInProgress
	s.currentIndex = 0
	s.startedAt = time.Now()
	if s.expire != nil {
		s.timer = time.AfterFunc(time.Duration(s.durationSeconds)*time.Second, s.expire)
	}

	s.emit(Event{
		Kind:     EventMeetingStarted,
		HostOnly: true,
		Payload:  MeetingStartedPayload{Questions: s.questions, AccessCode: s.accessCode},
	})
	s.emit(Event{
		Kind:    EventQuestionChanged,
		Payload: QuestionChangedPayload{Index: 0, Question: s.questions[0]},
	})
	return nil
}

// Advance moves to the next question. The index only ever grows; at the
// last question Advance fails with ErrNoMoreQuestions and the host is
// expected to end the meeting instead.
func (s *Session) Advance(actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionEnded {
		return ErrSessionClosed
	}
	if actorID != s.hostID {
		return ErrNotAuthorized
	}
	if s.state != model.SessionInProgress {
		return ErrNotStarted
	}
	if s.currentIndex >= len(s.questions)-1 {
		return ErrNoMoreQuestions
	}

	s.currentIndex++
	s.emit(Event{
		Kind:    EventQuestionChanged,
		Payload: QuestionChangedPayload{Index: s.currentIndex, Question: s.questions[s.currentIndex]},
	})
	return nil
}

// End moves the session to its terminal state, cancels the countdown and
// broadcasts meeting_ended. internal marks server-generated calls (timer
// expiry), which bypass the host check. Ending an already ended session
// fails with ErrSessionClosed and emits nothing.
func (s *Session) End(actorID string, internal bool) (*model.SessionArchive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionEnded {
		return nil, ErrSessionClosed
	}
	if !internal && actorID != s.hostID {
		return nil, ErrNotAuthorized
	}

	s.state = model.SessionEnded
	s.endedAt = time.Now()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	s.emit(Event{
		Kind:    EventMeetingEnded,
		Payload: MeetingEndedPayload{RedirectURL: PostMeetingPath},
	})

	return &model.SessionArchive{
		AccessCode:       s.accessCode,
		MeetingID:        s.meetingID,
		HostID:           s.hostID,
		StartedAt:        s.startedAt,
		EndedAt:          s.endedAt,
		ParticipantCount: len(s.roster),
		AnswerCount:      s.answerCount,
	}, nil
}

// Join adds a participant to the roster, or reactivates an existing entry
// when the ID is already known: that is how a reconnect is told apart
// from a new attendee. Display name collisions among distinct attendees
// are deduplicated with a numeric suffix. The joining participant alone
// receives a resync frame so it never depends on cached client state.
func (s *Session) Join(participantID, displayName string) (*model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionEnded {
		return nil, ErrSessionClosed
	}

	p, ok := s.roster[participantID]
	if ok {
		p.status = model.StatusConnected
	} else {
		p = &participant{
			id:          participantID,
			displayName: s.dedupeName(displayName),
			status:      model.StatusConnected,
			joinedAt:    time.Now(),
			answers:     make(map[int]string),
		}
		s.roster[participantID] = p
	}

	view := p.view()
	s.emit(Event{
		Kind:    EventParticipantJoined,
		Payload: ParticipantJoinedPayload{Participant: view},
	})
	s.emit(Event{
		Kind:          EventResync,
		ParticipantID: participantID,
		Payload:       s.resyncLocked(p),
	})
	return &view, nil
}

// Leave marks the participant disconnected. Answer history is kept.
func (s *Session) Leave(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.roster[participantID]
	if !ok {
		return ErrNotFound
	}
	if p.status == model.StatusDisconnected {
		return nil
	}
	p.status = model.StatusDisconnected

	// The terminal broadcast already told everyone the session is over.
	if s.state != model.SessionEnded {
		s.emit(Event{
			Kind:    EventParticipantLeft,
			Payload: ParticipantLeftPayload{ParticipantID: participantID},
		})
	}
	return nil
}

// SubmitAnswer records one answer for the current question. An index the
// host has moved past is rejected as stale, and at most one answer per
// participant per question is kept: the first write wins.
func (s *Session) SubmitAnswer(participantID string, questionIndex int, text string) (*model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionEnded {
		return nil, ErrSessionClosed
	}
	if s.state != model.SessionInProgress {
		return nil, ErrNotStarted
	}
	p, ok := s.roster[participantID]
	if !ok {
		return nil, ErrNotFound
	}
	if questionIndex != s.currentIndex {
		return nil, ErrStaleQuestion
	}
	if _, exists := p.answers[questionIndex]; exists {
		return nil, ErrDuplicateAnswer
	}

	p.answers[questionIndex] = text
	s.answerCount++

	answered, connected := s.progressLocked(questionIndex)
	s.emit(Event{
		Kind:     EventAnswerSubmitted,
		HostOnly: true,
		Payload: AnswerSubmittedPayload{
			ParticipantID: participantID,
			QuestionIndex: questionIndex,
			Answered:      answered,
			Connected:     connected,
		},
	})

	return &model.Answer{
		AccessCode:    s.accessCode,
		MeetingID:     s.meetingID,
		ParticipantID: participantID,
		QuestionIndex: questionIndex,
		Text:          text,
		SubmittedAt:   time.Now(),
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentIndex returns the current question index, -1 before start.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

// ConnectedCount counts participants whose socket is currently open.
func (s *Session) ConnectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.roster {
		if p.status == model.StatusConnected {
			n++
		}
	}
	return n
}

// Roster returns a stable-ordered copy of the participant list.
func (s *Session) Roster() []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Participant, 0, len(s.roster))
	for _, p := range s.roster {
		out = append(out, p.view())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Meta builds the Redis mirror record for this session.
func (s *Session) Meta() *model.SessionMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &model.SessionMeta{
		AccessCode:       s.accessCode,
		MeetingID:        s.meetingID,
		HostID:           s.hostID,
		State:            s.state,
		QuestionCount:    len(s.questions),
		ParticipantCount: len(s.roster),
		CreatedAt:        s.createdAt,
	}
}

// endedBefore reports whether the session ended and has been terminal for
// longer than ttl. Used by the eviction sweep.
func (s *Session) endedBefore(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == model.SessionEnded && s.endedAt.Before(cutoff)
}

func (s *Session) emit(ev Event) {
	if s.sink != nil {
		s.sink.Emit(s.accessCode, ev)
	}
}

func (s *Session) resyncLocked(p *participant) ResyncPayload {
	answered := make([]int, 0, len(p.answers))
	for idx := range p.answers {
		answered = append(answered, idx)
	}
	sort.Ints(answered)

	payload := ResyncPayload{
		State:    s.state,
		Index:    s.currentIndex,
		Answered: answered,
	}
	if s.state == model.SessionInProgress {
		payload.Question = s.questions[s.currentIndex]
	}
	return payload
}

func (s *Session) progressLocked(questionIndex int) (answered, connected int) {
	for _, p := range s.roster {
		if _, ok := p.answers[questionIndex]; ok {
			answered++
		}
		if p.status == model.StatusConnected {
			connected++
		}
	}
	return answered, connected
}

func (s *Session) dedupeName(name string) string {
	count := 0
	for _, p := range s.roster {
		if p.displayName == name || hasNumberSuffix(p.displayName, name) {
			count++
		}
	}
	if count == 0 {
		return name
	}
	return fmt.Sprintf("%s(%d)", name, count)
}

func hasNumberSuffix(candidate, base string) bool {
	if len(candidate) <= len(base)+2 {
		return false
	}
	return candidate[:len(base)+1] == base+"(" && candidate[len(candidate)-1] == ')'
}

func (p *participant) view() model.Participant {
	return model.Participant{
		ID:          p.id,
		DisplayName: p.displayName,
		Status:      p.status,
		JoinedAt:    p.joinedAt,
	}
}
