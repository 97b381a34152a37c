package service

import (
	"collaboard/internal/cache"
	"collaboard/internal/live"
	"collaboard/internal/model"
	"collaboard/internal/repository"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxDisplayNameLen = 30
	persistTimeout    = 5 * time.Second
)

// persistJob is one queued MongoDB write. Persistence is asynchronous:
// the in-memory mutation and its broadcast never wait on Mongo.
type persistJob struct {
	answer  *model.Answer
	archive *model.SessionArchive
}

// SessionService is the single funnel for the live session protocol.
// Every inbound action, the countdown expiry included, goes through one
// of its methods, gets validated against the session's state machine
// under that session's lock, and fans out as broadcasts through the hub.
type SessionService struct {
	store       *live.Store
	meetingRepo repository.MeetingRepo
	answerRepo  repository.AnswerRepo
	archiveRepo repository.ArchiveRepo
	cache       cache.SessionCache
	authSvc     *AuthService
	broadcaster Broadcaster
	persistCh   chan persistJob
}

// NewSessionService creates the session service and installs itself as
// the store's countdown-expiry handler.
func NewSessionService(
	store *live.Store,
	meetingRepo repository.MeetingRepo,
	answerRepo repository.AnswerRepo,
	archiveRepo repository.ArchiveRepo,
	sessionCache cache.SessionCache,
	authSvc *AuthService,
) *SessionService {
	s := &SessionService{
		store:       store,
		meetingRepo: meetingRepo,
		answerRepo:  answerRepo,
		archiveRepo: archiveRepo,
		cache:       sessionCache,
		authSvc:     authSvc,
		persistCh:   make(chan persistJob, 256),
	}
	store.SetExpiryHandler(s.expireSession)
	return s
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// OpenSession creates a live NotStarted session for a meeting and
// returns its metadata, access code included. The code is checked for
// uniqueness against both the in-memory store and the Redis mirror.
func (s *SessionService) OpenSession(ctx context.Context, meetingID, hostID string) (*model.SessionMeta, error) {
	meeting, err := s.meetingRepo.GetByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	if meeting == nil || meeting.HostID != hostID {
		return nil, live.ErrNotFound
	}

	questions := meeting.QuestionTexts()

	var sess *live.Session
	for attempts := 0; attempts < 10; attempts++ {
		code, err := live.GenerateAccessCode()
		if err != nil {
			return nil, err
		}

		taken, err := s.cache.Exists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check access code: %w", err)
		}
		if taken {
			continue
		}

		sess, err = s.store.Create(code, meetingID, hostID, questions, meeting.DurationSeconds)
		if err == live.ErrCodeConflict {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	if sess == nil {
		return nil, fmt.Errorf("failed to allocate a unique access code")
	}

	meta := sess.Meta()
	if err := s.cache.SetMeta(ctx, meta); err != nil {
		s.store.Remove(sess.AccessCode())
		return nil, fmt.Errorf("failed to cache session: %w", err)
	}

	log.Printf("Opened session %s for meeting %s", sess.AccessCode(), meetingID)
	return meta, nil
}

// SessionForMeeting resolves the live session opened for a meeting,
// verifying the caller is its host. Used by the host WebSocket endpoint,
// which is addressed by meeting ID rather than access code.
func (s *SessionService) SessionForMeeting(meetingID, hostID string) (*model.SessionMeta, error) {
	sess, err := s.store.FindByMeeting(meetingID)
	if err != nil {
		return nil, err
	}
	if sess.HostID() != hostID {
		return nil, live.ErrNotAuthorized
	}
	return sess.Meta(), nil
}

// GetSessionMeta returns live metadata for an access code, preferring
// the authoritative store and falling back to the Redis mirror.
func (s *SessionService) GetSessionMeta(ctx context.Context, accessCode string) (*model.SessionMeta, error) {
	if sess, err := s.store.Get(accessCode); err == nil {
		return sess.Meta(), nil
	}
	meta, err := s.cache.GetMeta(ctx, accessCode)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, live.ErrNotFound
	}
	return meta, nil
}

// Roster returns the participant list for the host's live view.
func (s *SessionService) Roster(accessCode string) ([]model.Participant, error) {
	sess, err := s.store.Get(accessCode)
	if err != nil {
		return nil, err
	}
	return sess.Roster(), nil
}

// RegisterParticipant issues a participant identity and session-scoped
// token for an access code. The roster entry itself is created when the
// participant's socket connects.
func (s *SessionService) RegisterParticipant(ctx context.Context, accessCode, displayName string) (*model.JoinResponse, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || len(displayName) > maxDisplayNameLen {
		return nil, fmt.Errorf("%w: display name must be 1-%d characters", live.ErrInvalidConfig, maxDisplayNameLen)
	}

	sess, err := s.store.Get(accessCode)
	if err != nil {
		return nil, err
	}
	if sess.State() == model.SessionEnded {
		return nil, live.ErrSessionClosed
	}

	participantID := "p_" + uuid.New().String()[:8]
	token, err := s.authSvc.GenerateParticipantToken(accessCode, participantID, displayName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.JoinResponse{
		ParticipantID: participantID,
		DisplayName:   displayName,
		Token:         token,
		Meta:          sess.Meta(),
	}, nil
}

// Connect adds the participant to the session roster, or reactivates the
// existing entry on reconnect. The joining socket receives a resync
// frame; everyone else sees participant_joined.
func (s *SessionService) Connect(accessCode, participantID, displayName string) (*model.Participant, error) {
	sess, err := s.store.Get(accessCode)
	if err != nil {
		return nil, err
	}
	p, err := sess.Join(participantID, displayName)
	if err != nil {
		return nil, err
	}
	s.mirrorMeta(sess)
	return p, nil
}

// Disconnect marks the participant's roster entry disconnected. Answer
// history is retained for the rest of the session's lifetime.
func (s *SessionService) Disconnect(accessCode, participantID string) {
	sess, err := s.store.Get(accessCode)
	if err != nil {
		return
	}
	if err := sess.Leave(participantID); err != nil && err != live.ErrNotFound {
		log.Printf("Failed to disconnect participant %s from %s: %v", participantID, accessCode, err)
	}
}

// StartMeeting starts the session and its countdown.
func (s *SessionService) StartMeeting(accessCode, actorID string) error {
	sess, err := s.store.Get(accessCode)
	if err != nil {
		return err
	}
	if err := sess.Start(actorID); err != nil {
		return err
	}
	s.mirrorMeta(sess)
	log.Printf("Session %s started by %s", accessCode, actorID)
	return nil
}

// NextQuestion advances to the next question.
func (s *SessionService) NextQuestion(accessCode, actorID string) error {
	sess, err := s.store.Get(accessCode)
	if err != nil {
		return err
	}
	return sess.Advance(actorID)
}

// EndMeeting ends the session on the host's request.
func (s *SessionService) EndMeeting(accessCode, actorID string) error {
	return s.end(accessCode, actorID, false)
}

// SubmitAnswer records a participant's answer for the current question
// and queues the accepted answer for persistence.
func (s *SessionService) SubmitAnswer(accessCode, participantID string, questionIndex int, text string) error {
	sess, err := s.store.Get(accessCode)
	if err != nil {
		return err
	}

	answer, err := sess.SubmitAnswer(participantID, questionIndex, text)
	if err != nil {
		return err
	}

	answer.ID = uuid.New().String()
	s.enqueue(persistJob{answer: answer})
	return nil
}

// ListAnswers returns the persisted answers for a session, for the
// host's post-meeting summary.
func (s *SessionService) ListAnswers(ctx context.Context, accessCode string) ([]*model.Answer, error) {
	return s.answerRepo.ListByAccessCode(ctx, accessCode)
}

// GetArchive returns the end-of-session record, if the session ended.
func (s *SessionService) GetArchive(ctx context.Context, accessCode string) (*model.SessionArchive, error) {
	return s.archiveRepo.GetByAccessCode(ctx, accessCode)
}

// RunPersister drains the persistence queue until ctx is cancelled.
// Mongo failures are logged and dropped; they never reach the protocol.
func (s *SessionService) RunPersister(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.persistCh:
			s.persist(job)
		}
	}
}

// RunSweeper periodically evicts sessions that ended more than ttl ago,
// together with their Redis mirrors. Sessions in progress are never
// evicted.
func (s *SessionService) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := s.store.EvictEnded(ttl)
			for _, code := range evicted {
				cleanupCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
				if err := s.cache.Delete(cleanupCtx, code); err != nil {
					log.Printf("Failed to delete cached session %s: %v", code, err)
				}
				cancel()
			}
			if len(evicted) > 0 {
				log.Printf("Evicted %d ended sessions", len(evicted))
			}
		}
	}
}

// expireSession is the countdown-expiry handler installed on the store.
// It funnels through the same serialized end path as a host end.
func (s *SessionService) expireSession(accessCode string) {
	if err := s.end(accessCode, "", true); err != nil {
		// A host end racing the timer loses gracefully here.
		if err != live.ErrSessionClosed && err != live.ErrNotFound {
			log.Printf("Failed to expire session %s: %v", accessCode, err)
		}
		return
	}
	log.Printf("Session %s ended by countdown expiry", accessCode)
}

func (s *SessionService) end(accessCode, actorID string, internal bool) error {
	sess, err := s.store.Get(accessCode)
	if err != nil {
		return err
	}

	archive, err := sess.End(actorID, internal)
	if err != nil {
		return err
	}

	archive.ID = uuid.New().String()
	s.enqueue(persistJob{archive: archive})
	s.mirrorMeta(sess)

	// The session is terminal, so no further events can be generated for
	// it; closing after End keeps meeting_ended ahead of the close.
	if s.broadcaster != nil {
		s.broadcaster.CloseSession(accessCode)
	}
	return nil
}

func (s *SessionService) enqueue(job persistJob) {
	select {
	case s.persistCh <- job:
	default:
		log.Printf("Persistence queue full, dropping write")
	}
}

func (s *SessionService) persist(job persistJob) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	switch {
	case job.answer != nil:
		if err := s.answerRepo.Insert(ctx, job.answer); err != nil {
			log.Printf("Failed to persist answer %s: %v", job.answer.ID, err)
		}
	case job.archive != nil:
		if err := s.archiveRepo.Insert(ctx, job.archive); err != nil {
			log.Printf("Failed to persist session archive %s: %v", job.archive.AccessCode, err)
		}
	}
}

// mirrorMeta writes a fresh snapshot of the authoritative session into
// the Redis mirror. Always a whole-record write: a read-modify-update
// here could race another mirror write and resurrect stale state.
func (s *SessionService) mirrorMeta(sess *live.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.cache.SetMeta(ctx, sess.Meta()); err != nil {
		log.Printf("Failed to mirror session %s: %v", sess.AccessCode(), err)
	}
}
