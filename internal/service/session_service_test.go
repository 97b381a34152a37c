package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"collaboard/internal/live"
	"collaboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	accessCode string
	target     string // "host", "session", or a participant ID
	kind       string
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	frames []frame
	closed []string
}

func (b *fakeBroadcaster) BroadcastToHost(accessCode, msgType string, payload interface{}) {
	b.record(frame{accessCode: accessCode, target: "host", kind: msgType})
}

func (b *fakeBroadcaster) BroadcastToParticipant(accessCode, participantID, msgType string, payload interface{}) {
	b.record(frame{accessCode: accessCode, target: participantID, kind: msgType})
}

func (b *fakeBroadcaster) BroadcastToSession(accessCode, msgType string, payload interface{}) {
	b.record(frame{accessCode: accessCode, target: "session", kind: msgType})
}

func (b *fakeBroadcaster) CloseSession(accessCode string) {
	b.mu.Lock()
	b.closed = append(b.closed, accessCode)
	b.mu.Unlock()
}

func (b *fakeBroadcaster) record(f frame) {
	b.mu.Lock()
	b.frames = append(b.frames, f)
	b.mu.Unlock()
}

func (b *fakeBroadcaster) snapshot() []frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]frame, len(b.frames))
	copy(out, b.frames)
	return out
}

func (b *fakeBroadcaster) closedCodes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.closed))
	copy(out, b.closed)
	return out
}

type memMeetingRepo struct {
	mu       sync.Mutex
	meetings map[string]*model.Meeting
}

func newMemMeetingRepo() *memMeetingRepo {
	return &memMeetingRepo{meetings: make(map[string]*model.Meeting)}
}

func (r *memMeetingRepo) Create(ctx context.Context, meeting *model.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	meeting.CreatedAt = time.Now()
	meeting.UpdatedAt = meeting.CreatedAt
	r.meetings[meeting.ID] = meeting
	return nil
}

func (r *memMeetingRepo) GetByID(ctx context.Context, id string) (*model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meetings[id], nil
}

func (r *memMeetingRepo) ListByHost(ctx context.Context, hostID string) ([]*model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Meeting, 0)
	for _, m := range r.meetings {
		if m.HostID == hostID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMeetingRepo) Update(ctx context.Context, meeting *model.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	meeting.UpdatedAt = time.Now()
	r.meetings[meeting.ID] = meeting
	return nil
}

func (r *memMeetingRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.meetings, id)
	return nil
}

type memAnswerRepo struct {
	mu      sync.Mutex
	answers []*model.Answer
}

func (r *memAnswerRepo) Insert(ctx context.Context, answer *model.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, answer)
	return nil
}

func (r *memAnswerRepo) ListByAccessCode(ctx context.Context, accessCode string) ([]*model.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Answer, 0)
	for _, a := range r.answers {
		if a.AccessCode == accessCode {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAnswerRepo) ListByQuestion(ctx context.Context, accessCode string, questionIndex int) ([]*model.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Answer, 0)
	for _, a := range r.answers {
		if a.AccessCode == accessCode && a.QuestionIndex == questionIndex {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAnswerRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.answers)
}

type memArchiveRepo struct {
	mu       sync.Mutex
	archives []*model.SessionArchive
}

func (r *memArchiveRepo) Insert(ctx context.Context, archive *model.SessionArchive) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archives = append(r.archives, archive)
	return nil
}

func (r *memArchiveRepo) GetByAccessCode(ctx context.Context, accessCode string) (*model.SessionArchive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.archives {
		if a.AccessCode == accessCode {
			return a, nil
		}
	}
	return nil, nil
}

func (r *memArchiveRepo) ListByMeeting(ctx context.Context, meetingID string) ([]*model.SessionArchive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.SessionArchive, 0)
	for _, a := range r.archives {
		if a.MeetingID == meetingID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memArchiveRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.archives)
}

type memSessionCache struct {
	mu         sync.Mutex
	metas      map[string]*model.SessionMeta
	setMetaErr error
}

func newMemSessionCache() *memSessionCache {
	return &memSessionCache{metas: make(map[string]*model.SessionMeta)}
}

func (c *memSessionCache) SetMeta(ctx context.Context, meta *model.SessionMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setMetaErr != nil {
		return c.setMetaErr
	}
	cp := *meta
	c.metas[meta.AccessCode] = &cp
	return nil
}

func (c *memSessionCache) GetMeta(ctx context.Context, accessCode string) (*model.SessionMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[accessCode]
	if !ok {
		return nil, nil
	}
	cp := *meta
	return &cp, nil
}

func (c *memSessionCache) Exists(ctx context.Context, accessCode string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.metas[accessCode]
	return ok, nil
}

func (c *memSessionCache) Delete(ctx context.Context, accessCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metas, accessCode)
	return nil
}

type sessionFixture struct {
	svc         *SessionService
	broadcaster *fakeBroadcaster
	meetingRepo *memMeetingRepo
	answerRepo  *memAnswerRepo
	archiveRepo *memArchiveRepo
	cache       *memSessionCache
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		broadcaster: &fakeBroadcaster{},
		meetingRepo: newMemMeetingRepo(),
		answerRepo:  &memAnswerRepo{},
		archiveRepo: &memArchiveRepo{},
		cache:       newMemSessionCache(),
	}
	store := live.NewStore(NewEventSink(f.broadcaster))
	authSvc := NewAuthService("host", "secret", "test-jwt-secret")
	f.svc = NewSessionService(store, f.meetingRepo, f.answerRepo, f.archiveRepo, f.cache, authSvc)
	f.svc.SetBroadcaster(f.broadcaster)
	return f
}

func (f *sessionFixture) seedMeeting(t *testing.T, id, hostID string, durationSeconds int, questions ...string) {
	t.Helper()
	qs := make([]model.Question, len(questions))
	for i, q := range questions {
		qs[i] = model.Question{Position: i, Text: q}
	}
	err := f.meetingRepo.Create(context.Background(), &model.Meeting{
		ID:              id,
		HostID:          hostID,
		Title:           "Weekly sync",
		DurationSeconds: durationSeconds,
		Questions:       qs,
	})
	require.NoError(t, err)
}

func (f *sessionFixture) openSession(t *testing.T, meetingID, hostID string) *model.SessionMeta {
	t.Helper()
	meta, err := f.svc.OpenSession(context.Background(), meetingID, hostID)
	require.NoError(t, err)
	return meta
}

func (f *sessionFixture) startPersister(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go f.svc.RunPersister(ctx)
}

func TestOpenSession(t *testing.T) {
	f := newSessionFixture(t)
	f.seedMeeting(t, "m1", "host-1", 60, "Q1", "Q2")

	meta := f.openSession(t, "m1", "host-1")
	assert.Len(t, meta.AccessCode, live.AccessCodeLen)
	assert.Equal(t, "m1", meta.MeetingID)
	assert.Equal(t, "host-1", meta.HostID)
	assert.Equal(t, model.SessionNotStarted, meta.State)
	assert.Equal(t, 2, meta.QuestionCount)

	cached, err := f.cache.GetMeta(context.Background(), meta.AccessCode)
	require.NoError(t, err)
	require.NotNil(t, cached, "open must mirror the session into the cache")
	assert.Equal(t, meta.MeetingID, cached.MeetingID)
}

func TestOpenSessionUnknownMeeting(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.OpenSession(context.Background(), "nope", "host-1")
	assert.ErrorIs(t, err, live.ErrNotFound)
}

func TestOpenSessionWrongHost(t *testing.T) {
	f := newSessionFixture(t)
	f.seedMeeting(t, "m1", "host-1", 60, "Q1")

	// Meeting ownership is not disclosed: a foreign host sees not_found.
	_, err := f.svc.OpenSession(context.Background(), "m1", "host-2")
	assert.ErrorIs(t, err, live.ErrNotFound)
}

func TestOpenSessionCacheFailureRollsBack(t *testing.T) {
	f := newSessionFixture(t)
	f.seedMeeting(t, "m1", "host-1", 60, "Q1")
	f.cache.setMetaErr = errors.New("redis down")

	_, err := f.svc.OpenSession(context.Background(), "m1", "host-1")
	require.Error(t, err)

	// The in-memory session must not leak when the mirror write fails.
	_, err = f.svc.SessionForMeeting("m1", "host-1")
	assert.ErrorIs(t, err, live.ErrNotFound)
}

func TestSessionForMeeting(t *testing.T) {
	f := newSessionFixture(t)
	f.seedMeeting(t, "m1", "host-1", 60, "Q1")
	meta := f.openSession(t, "m1", "host-1")

	got, err := f.svc.SessionForMeeting("m1", "host-1")
	require.NoError(t, err)
	assert.Equal(t, meta.AccessCode, got.AccessCode)

	_, err = f.svc.SessionForMeeting("m1", "host-2")
	assert.ErrorIs(t, err, live.ErrNotAuthorized)

	_, err = f.svc.SessionForMeeting("m2", "host-1")
	assert.ErrorIs(t, err, live.ErrNotFound)
}

func TestGetSessionMetaCacheFallback(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	// Only the mirror knows this code, e.g. after a restart.
	require.NoError(t, f.cache.SetMeta(ctx, &model.SessionMeta{
		AccessCode: "55556666",
		MeetingID:  "m1",
		State:      model.SessionEnded,
	}))

	meta, err := f.svc.GetSessionMeta(ctx, "55556666")
	require.NoError(t, err)
	assert.Equal(t, model.SessionEnded, meta.State)

	_, err = f.svc.GetSessionMeta(ctx, "00000000")
	assert.ErrorIs(t, err, live.ErrNotFound)
}

func TestRegisterParticipant(t *testing.T) {
	f := newSessionFixture(t)
	f.seedMeeting(t, "m1", "host-1", 60, "Q1")
	meta := f.openSession(t, "m1", "host-1")

	resp, err := f.svc.RegisterParticipant(context.Background(), meta.AccessCode, "  Alice  ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", resp.DisplayName)
	assert.NotEmpty(t, resp.ParticipantID)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, meta.AccessCode, resp.Meta.AccessCode)

	// Registration issues an identity but does not touch the roster.
	roster, err := f.svc.Roster(meta.AccessCode)
	require.NoError(t, err)
	assert.Empty(t, roster)
}

func TestRegisterParticipantValidation(t *testing.T) {
	f := newSessionFixture(t)
	f.seedMeeting(t, "m1", "host-1", 60, "Q1")
	meta := f.openSession(t, "m1", "host-1")
	ctx := context.Background()

	_, err := f.svc.RegisterParticipant(ctx, meta.AccessCode, "   ")
	assert.ErrorIs(t, err, live.ErrInvalidConfig)

	_, err = f.svc.RegisterParticipant(ctx, meta.AccessCode, "this display name is far far too long to accept")
	assert.ErrorIs(t, err, live.ErrInvalidConfig)

	_, err = f.svc.RegisterParticipant(ctx, "00000000", "Alice")
	assert.ErrorIs(t, err, live.ErrNotFound)

	require.NoError(t, f.svc.EndMeeting(meta.AccessCode, "host-1"))
	_, err = f.svc.RegisterParticipant(ctx, meta.AccessCode, "Alice")
	assert.ErrorIs(t, err, live.ErrSessionClosed)
}

func TestSessionFlow(t *testing.T) {
	f := newSessionFixture(t)
	f.startPersister(t)
	f.seedMeeting(t, "m1", "host-1", 60, "Q1", "Q2")
	meta := f.openSession(t, "m1", "host-1")
	code := meta.AccessCode

	require.NoError(t, f.svc.StartMeeting(code, "host-1"))

	p, err := f.svc.Connect(code, "p_alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConnected, p.Status)

	require.NoError(t, f.svc.SubmitAnswer(code, "p_alice", 0, "answer one"))
	require.NoError(t, f.svc.NextQuestion(code, "host-1"))

	err = f.svc.SubmitAnswer(code, "p_alice", 0, "late")
	assert.ErrorIs(t, err, live.ErrStaleQuestion)

	require.NoError(t, f.svc.SubmitAnswer(code, "p_alice", 1, "answer two"))
	require.NoError(t, f.svc.EndMeeting(code, "host-1"))

	err = f.svc.SubmitAnswer(code, "p_alice", 1, "after end")
	assert.ErrorIs(t, err, live.ErrSessionClosed)

	frames := f.broadcaster.snapshot()
	require.Len(t, frames, 8)

	wantKinds := []string{
		live.EventMeetingStarted,
		live.EventQuestionChanged,
		live.EventParticipantJoined,
		live.EventResync,
		live.EventAnswerSubmitted,
		live.EventQuestionChanged,
		live.EventAnswerSubmitted,
		live.EventMeetingEnded,
	}
	wantTargets := []string{
		"host",
		"session",
		"session",
		"p_alice",
		"host",
		"session",
		"host",
		"session",
	}
	for i, fr := range frames {
		assert.Equal(t, wantKinds[i], fr.kind, "frame %d kind", i)
		assert.Equal(t, wantTargets[i], fr.target, "frame %d target", i)
		assert.Equal(t, code, fr.accessCode, "frame %d access code", i)
	}

	assert.Equal(t, []string{code}, f.broadcaster.closedCodes())

	mirrored, err := f.cache.GetMeta(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, model.SessionEnded, mirrored.State)

	require.Eventually(t, func() bool {
		return f.answerRepo.count() == 2 && f.archiveRepo.count() == 1
	}, 2*time.Second, 10*time.Millisecond, "persister should flush answers and the archive")

	answers, err := f.svc.ListAnswers(context.Background(), code)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "answer one", answers[0].Text)

	archive, err := f.svc.GetArchive(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, archive)
	assert.Equal(t, 1, archive.ParticipantCount)
	assert.Equal(t, 2, archive.AnswerCount)
}

func TestDisconnect(t *testing.T) {
	f := newSessionFixture(t)
	f.seedMeeting(t, "m1", "host-1", 60, "Q1")
	meta := f.openSession(t, "m1", "host-1")

	_, err := f.svc.Connect(meta.AccessCode, "p1", "Alice")
	require.NoError(t, err)

	f.svc.Disconnect(meta.AccessCode, "p1")

	roster, err := f.svc.Roster(meta.AccessCode)
	require.NoError(t, err)
	require.Len(t, roster, 1, "disconnect keeps the roster entry")
	assert.Equal(t, model.StatusDisconnected, roster[0].Status)

	frames := f.broadcaster.snapshot()
	last := frames[len(frames)-1]
	assert.Equal(t, live.EventParticipantLeft, last.kind)

	// Unknown sessions and participants are tolerated silently.
	f.svc.Disconnect("00000000", "p1")
	f.svc.Disconnect(meta.AccessCode, "ghost")
}

func TestCountdownEndsSession(t *testing.T) {
	f := newSessionFixture(t)
	f.startPersister(t)
	f.seedMeeting(t, "m1", "host-1", 1, "Q1")
	meta := f.openSession(t, "m1", "host-1")
	code := meta.AccessCode

	require.NoError(t, f.svc.StartMeeting(code, "host-1"))

	require.Eventually(t, func() bool {
		got, err := f.svc.GetSessionMeta(context.Background(), code)
		return err == nil && got.State == model.SessionEnded
	}, 3*time.Second, 20*time.Millisecond, "countdown should end the session")

	assert.Equal(t, []string{code}, f.broadcaster.closedCodes())

	require.Eventually(t, func() bool {
		return f.archiveRepo.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A late host end loses the race without an error surfacing anywhere
	// other than the expected rejection.
	err := f.svc.EndMeeting(code, "host-1")
	assert.ErrorIs(t, err, live.ErrSessionClosed)
}

func TestSweeperEvictsEndedSessions(t *testing.T) {
	f := newSessionFixture(t)
	f.seedMeeting(t, "m1", "host-1", 60, "Q1")
	meta := f.openSession(t, "m1", "host-1")
	code := meta.AccessCode

	require.NoError(t, f.svc.StartMeeting(code, "host-1"))
	require.NoError(t, f.svc.EndMeeting(code, "host-1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.svc.RunSweeper(ctx, 10*time.Millisecond, 0)

	require.Eventually(t, func() bool {
		if _, err := f.svc.Roster(code); !errors.Is(err, live.ErrNotFound) {
			return false
		}
		cached, err := f.cache.GetMeta(context.Background(), code)
		return err == nil && cached == nil
	}, 2*time.Second, 10*time.Millisecond, "sweeper should drop the session and its mirror")
}
