package service

import (
	"collaboard/internal/live"
	"collaboard/internal/model"
	"collaboard/internal/repository"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	maxTitleLen       = 40
	maxDescriptionLen = 300
)

// MeetingService handles meeting setup: the records a host prepares
// before opening a live session.
type MeetingService struct {
	meetingRepo repository.MeetingRepo
}

// NewMeetingService creates a new meeting service
func NewMeetingService(meetingRepo repository.MeetingRepo) *MeetingService {
	return &MeetingService{meetingRepo: meetingRepo}
}

// CreateMeeting validates and persists a new meeting. The question list
// is fixed here; live sessions never mutate it.
func (s *MeetingService) CreateMeeting(ctx context.Context, hostID, title, description string, durationSeconds int, questions []string) (*model.Meeting, error) {
	if err := validateMeetingFields(title, description); err != nil {
		return nil, err
	}
	if err := live.ValidateConfig(questions, durationSeconds); err != nil {
		return nil, err
	}

	meeting := &model.Meeting{
		ID:              uuid.New().String(),
		HostID:          hostID,
		Title:           title,
		Description:     description,
		DurationSeconds: durationSeconds,
		Questions:       make([]model.Question, len(questions)),
	}
	for i, q := range questions {
		meeting.Questions[i] = model.Question{Position: i, Text: q}
	}

	if err := s.meetingRepo.Create(ctx, meeting); err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}
	return meeting, nil
}

// GetMeeting retrieves a meeting owned by hostID.
func (s *MeetingService) GetMeeting(ctx context.Context, id, hostID string) (*model.Meeting, error) {
	meeting, err := s.meetingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	if meeting == nil || meeting.HostID != hostID {
		return nil, nil
	}
	return meeting, nil
}

// ListMeetings returns all meetings owned by hostID, newest first.
func (s *MeetingService) ListMeetings(ctx context.Context, hostID string) ([]*model.Meeting, error) {
	return s.meetingRepo.ListByHost(ctx, hostID)
}

// UpdateMeeting replaces a meeting's editable fields after revalidation.
func (s *MeetingService) UpdateMeeting(ctx context.Context, id, hostID, title, description string, durationSeconds int, questions []string) (*model.Meeting, error) {
	meeting, err := s.GetMeeting(ctx, id, hostID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, nil
	}

	if err := validateMeetingFields(title, description); err != nil {
		return nil, err
	}
	if err := live.ValidateConfig(questions, durationSeconds); err != nil {
		return nil, err
	}

	meeting.Title = title
	meeting.Description = description
	meeting.DurationSeconds = durationSeconds
	meeting.Questions = make([]model.Question, len(questions))
	for i, q := range questions {
		meeting.Questions[i] = model.Question{Position: i, Text: q}
	}

	if err := s.meetingRepo.Update(ctx, meeting); err != nil {
		return nil, fmt.Errorf("failed to update meeting: %w", err)
	}
	return meeting, nil
}

// DeleteMeeting removes a meeting owned by hostID.
func (s *MeetingService) DeleteMeeting(ctx context.Context, id, hostID string) error {
	meeting, err := s.GetMeeting(ctx, id, hostID)
	if err != nil {
		return err
	}
	if meeting == nil {
		return live.ErrNotFound
	}
	return s.meetingRepo.Delete(ctx, id)
}

func validateMeetingFields(title, description string) error {
	if strings.TrimSpace(title) == "" || len(title) > maxTitleLen {
		return fmt.Errorf("%w: title must be 1-%d characters", live.ErrInvalidConfig, maxTitleLen)
	}
	if len(description) > maxDescriptionLen {
		return fmt.Errorf("%w: description must be at most %d characters", live.ErrInvalidConfig, maxDescriptionLen)
	}
	return nil
}
