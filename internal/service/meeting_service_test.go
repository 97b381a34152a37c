package service

import (
	"context"
	"strings"
	"testing"

	"collaboard/internal/live"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMeetingService() (*MeetingService, *memMeetingRepo) {
	repo := newMemMeetingRepo()
	return NewMeetingService(repo), repo
}

func TestCreateMeeting(t *testing.T) {
	svc, _ := newMeetingService()

	meeting, err := svc.CreateMeeting(context.Background(), "host-1", "Retro", "Sprint retro", 600, []string{"What went well?", "What didn't?"})
	require.NoError(t, err)
	assert.NotEmpty(t, meeting.ID)
	assert.Equal(t, "host-1", meeting.HostID)
	require.Len(t, meeting.Questions, 2)
	assert.Equal(t, 0, meeting.Questions[0].Position)
	assert.Equal(t, 1, meeting.Questions[1].Position)
	assert.False(t, meeting.CreatedAt.IsZero())
}

func TestCreateMeetingValidation(t *testing.T) {
	svc, _ := newMeetingService()
	ctx := context.Background()

	tests := []struct {
		name        string
		title       string
		description string
		duration    int
		questions   []string
	}{
		{"empty title", "  ", "desc", 600, []string{"Q1"}},
		{"title too long", strings.Repeat("t", 41), "desc", 600, []string{"Q1"}},
		{"description too long", "Retro", strings.Repeat("d", 301), 600, []string{"Q1"}},
		{"no questions", "Retro", "desc", 600, nil},
		{"bad duration", "Retro", "desc", 0, []string{"Q1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateMeeting(ctx, "host-1", tt.title, tt.description, tt.duration, tt.questions)
			assert.ErrorIs(t, err, live.ErrInvalidConfig)
		})
	}

	// Description is optional.
	_, err := svc.CreateMeeting(ctx, "host-1", "Retro", "", 600, []string{"Q1"})
	assert.NoError(t, err)
}

func TestGetMeetingOwnership(t *testing.T) {
	svc, _ := newMeetingService()
	ctx := context.Background()

	created, err := svc.CreateMeeting(ctx, "host-1", "Retro", "", 600, []string{"Q1"})
	require.NoError(t, err)

	got, err := svc.GetMeeting(ctx, created.ID, "host-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	// Another host cannot see the meeting at all.
	got, err = svc.GetMeeting(ctx, created.ID, "host-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateMeeting(t *testing.T) {
	svc, _ := newMeetingService()
	ctx := context.Background()

	created, err := svc.CreateMeeting(ctx, "host-1", "Retro", "", 600, []string{"Q1"})
	require.NoError(t, err)

	updated, err := svc.UpdateMeeting(ctx, created.ID, "host-1", "Retro v2", "new desc", 300, []string{"Q1", "Q2"})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Retro v2", updated.Title)
	assert.Len(t, updated.Questions, 2)

	missing, err := svc.UpdateMeeting(ctx, "nope", "host-1", "Retro", "", 600, []string{"Q1"})
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.UpdateMeeting(ctx, created.ID, "host-1", "", "", 600, []string{"Q1"})
	assert.ErrorIs(t, err, live.ErrInvalidConfig)
}

func TestDeleteMeeting(t *testing.T) {
	svc, _ := newMeetingService()
	ctx := context.Background()

	created, err := svc.CreateMeeting(ctx, "host-1", "Retro", "", 600, []string{"Q1"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteMeeting(ctx, created.ID, "host-2"), live.ErrNotFound)
	require.NoError(t, svc.DeleteMeeting(ctx, created.ID, "host-1"))
	assert.ErrorIs(t, svc.DeleteMeeting(ctx, created.ID, "host-1"), live.ErrNotFound)
}
