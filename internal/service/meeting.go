package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"meetscribe/internal/model"
	"meetscribe/internal/repository"
	"meetscribe/internal/storage"
)

// CreateMeetingInput is the payload for creating a meeting record directly,
// without going through the upload pipeline.
type CreateMeetingInput struct {
	Title        string    `json:"title"`
	Date         time.Time `json:"date"`
	Tags         []string  `json:"tags"`
	Participants []string  `json:"participants"`
}

// UpdateMeetingInput carries a partial update. Nil fields are untouched;
// non-nil Tags/Participants replace the full association set.
type UpdateMeetingInput struct {
	Title        *string              `json:"title"`
	Date         *time.Time           `json:"date"`
	Status       *model.MeetingStatus `json:"status"`
	Tags         []string             `json:"tags"`
	Participants []string             `json:"participants"`
}

// SummaryInput is the payload for creating or editing a meeting summary.
type SummaryInput struct {
	Transcript  string   `json:"transcript"`
	KeyPoints   []string `json:"keyPoints"`
	Decisions   []string `json:"decisions"`
	ActionItems []string `json:"actionItems"`
}

// MeetingService defines the use cases for managing meeting records. Every
// operation is scoped to the owning user.
type MeetingService interface {
	Create(ctx context.Context, userID string, in CreateMeetingInput) (*model.Meeting, error)
	Get(ctx context.Context, id, userID string) (*model.Meeting, error)
	List(ctx context.Context, userID string) ([]model.Meeting, error)
	Update(ctx context.Context, id, userID string, in UpdateMeetingInput) (*model.Meeting, error)
	Delete(ctx context.Context, id, userID string) error
	CreateSummary(ctx context.Context, meetingID, userID string, in SummaryInput) (*model.Meeting, error)
	UpdateSummary(ctx context.Context, meetingID, userID string, in SummaryInput) (*model.Meeting, error)
}

type meetingService struct {
	repo  repository.MeetingRepository
	store storage.BlobStore
}

// NewMeetingService constructs a MeetingService.
func NewMeetingService(repo repository.MeetingRepository, store storage.BlobStore) MeetingService {
	return &meetingService{repo: repo, store: store}
}

func (s *meetingService) Create(ctx context.Context, userID string, in CreateMeetingInput) (*model.Meeting, error) {
	if userID == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	now := time.Now().UTC()
	meeting := &model.Meeting{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     strings.TrimSpace(in.Title),
		Date:      date,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, name := range in.Tags {
		meeting.Tags = append(meeting.Tags, model.Tag{Name: name})
	}
	for _, name := range in.Participants {
		meeting.Participants = append(meeting.Participants, model.Participant{Name: name})
	}

	// The repository connects the associations in the same transaction as
	// the insert, so no bare meeting row survives a partial create.
	created, err := s.repo.Create(ctx, meeting)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *meetingService) Get(ctx context.Context, id, userID string) (*model.Meeting, error) {
	if id == "" || userID == "" {
		return nil, ErrIDRequired
	}
	meeting, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return meeting, nil
}

func (s *meetingService) List(ctx context.Context, userID string) ([]model.Meeting, error) {
	if userID == "" {
		return nil, ErrIDRequired
	}
	return s.repo.List(ctx, userID)
}

func (s *meetingService) Update(ctx context.Context, id, userID string, in UpdateMeetingInput) (*model.Meeting, error) {
	if id == "" || userID == "" {
		return nil, ErrIDRequired
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *in.Status)
		}
		current, err := s.repo.FindByID(ctx, id, userID)
		if err != nil {
			return nil, mapRepoErr(err)
		}
		// The state machine moves forward only; restating the current
		// status is a no-op, not a transition.
		if current.Status != *in.Status && !current.Status.CanTransitionTo(*in.Status) {
			return nil, fmt.Errorf("%w: cannot move status from %q to %q", ErrInvalidInput, current.Status, *in.Status)
		}
	}
	meeting, err := s.repo.Update(ctx, id, userID, repository.MeetingUpdate{
		Title:        in.Title,
		Date:         in.Date,
		Status:       in.Status,
		Tags:         in.Tags,
		Participants: in.Participants,
	})
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return meeting, nil
}

// Delete removes the stored audio object first, then the meeting row. A
// meeting that never finished its upload has no object to remove.
func (s *meetingService) Delete(ctx context.Context, id, userID string) error {
	if id == "" || userID == "" {
		return ErrIDRequired
	}
	meeting, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return mapRepoErr(err)
	}
	if key := objectKeyFromURL(meeting.AudioURL); key != "" {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete audio object: %w", err)
		}
	}
	return mapRepoErr(s.repo.Delete(ctx, id, userID))
}

func (s *meetingService) CreateSummary(ctx context.Context, meetingID, userID string, in SummaryInput) (*model.Meeting, error) {
	return s.saveSummary(ctx, meetingID, userID, in, s.repo.CreateSummary)
}

func (s *meetingService) UpdateSummary(ctx context.Context, meetingID, userID string, in SummaryInput) (*model.Meeting, error) {
	return s.saveSummary(ctx, meetingID, userID, in, s.repo.UpdateSummary)
}

func (s *meetingService) saveSummary(ctx context.Context, meetingID, userID string, in SummaryInput, save func(context.Context, string, repository.SummaryContent) (*model.Summary, error)) (*model.Meeting, error) {
	if meetingID == "" || userID == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(in.Transcript) == "" {
		return nil, fmt.Errorf("%w: transcript is required", ErrInvalidInput)
	}
	// Ownership check before touching the summary row.
	if _, err := s.repo.FindByID(ctx, meetingID, userID); err != nil {
		return nil, mapRepoErr(err)
	}
	_, err := save(ctx, meetingID, repository.SummaryContent{
		Transcript:  in.Transcript,
		KeyPoints:   in.KeyPoints,
		Decisions:   in.Decisions,
		ActionItems: in.ActionItems,
	})
	if err != nil {
		return nil, mapRepoErr(err)
	}
	meeting, err := s.repo.FindByID(ctx, meetingID, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return meeting, nil
}

func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, repository.ErrUniqueViolation):
		return ErrConflict
	default:
		return err
	}
}

// objectKeyFromURL recovers the storage key from a stored audio URL. The
// key is the path portion without its leading slash; bare keys pass
// through unchanged.
func objectKeyFromURL(audioURL string) string {
	if audioURL == "" {
		return ""
	}
	u, err := url.Parse(audioURL)
	if err != nil || u.Host == "" {
		return strings.TrimPrefix(audioURL, "/")
	}
	return strings.TrimPrefix(u.Path, "/")
}
