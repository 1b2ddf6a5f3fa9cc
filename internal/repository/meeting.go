package repository

import (
	"context"
	"errors"
	"time"

	"meetscribe/internal/model"
)

// ErrNoRows is returned when a lookup matches nothing, including the case
// where the row exists but is owned by a different user.
var ErrNoRows = errors.New("repository: no rows")

// ErrUniqueViolation is returned when an insert collides with a unique
// constraint, e.g. creating a second summary for the same meeting.
var ErrUniqueViolation = errors.New("repository: unique violation")

// MeetingUpdate carries a partial meeting update. Nil pointer fields are
// left untouched. Tags and Participants, when non-nil, replace the entire
// association set for that field (wholesale replace, not a diff).
type MeetingUpdate struct {
	Title        *string
	AudioURL     *string
	Duration     *int
	FileSize     *int64
	Date         *time.Time
	Status       *model.MeetingStatus
	Tags         []string
	Participants []string
}

// SummaryContent is the editable portion of a summary. Slices are stored
// as given; callers normalize nil to empty before persisting.
type SummaryContent struct {
	Transcript  string
	KeyPoints   []string
	Decisions   []string
	ActionItems []string
}

// Completion is the atomic final write of a successful pipeline run:
// meeting fields, summary row, and tag/participant associations land in
// one transaction together with the flip to completed.
type Completion struct {
	Title        string
	Duration     int
	Summary      SummaryContent
	Tags         []string
	Participants []string
}

// MeetingRepository defines data access for meetings and their summary,
// tag, and participant subtrees using SQL queries only. No business logic
// here, strictly persistence operations.
type MeetingRepository interface {
	// Create inserts a new meeting row and returns the stored record.
	Create(ctx context.Context, m *model.Meeting) (*model.Meeting, error)

	// FindByID returns one meeting owned by userID, hydrated with its
	// summary, tags, and participants. Returns ErrNoRows when the meeting
	// does not exist or belongs to someone else.
	FindByID(ctx context.Context, id, userID string) (*model.Meeting, error)

	// List returns all meetings owned by userID, hydrated, newest first.
	List(ctx context.Context, userID string) ([]model.Meeting, error)

	// Update applies a partial update scoped to userID and returns the
	// hydrated result.
	Update(ctx context.Context, id, userID string, u MeetingUpdate) (*model.Meeting, error)

	// SetStatus records a pipeline status transition.
	SetStatus(ctx context.Context, id string, status model.MeetingStatus) error

	// SetAudio records the durable storage reference for the meeting.
	SetAudio(ctx context.Context, id, audioURL string) error

	// CreateSummary inserts the summary row for a meeting. Returns
	// ErrUniqueViolation if one already exists.
	CreateSummary(ctx context.Context, meetingID string, c SummaryContent) (*model.Summary, error)

	// UpdateSummary replaces the editable summary sections in place.
	// Returns ErrNoRows when no summary exists for the meeting.
	UpdateSummary(ctx context.Context, meetingID string, c SummaryContent) (*model.Summary, error)

	// Complete finalizes a successful pipeline run in one transaction:
	// status flips to completed, the summary is upserted, and the
	// tag/participant sets are connected via upsert-by-name.
	Complete(ctx context.Context, id string, c Completion) (*model.Meeting, error)

	// Delete removes a meeting owned by userID. Summary rows and
	// association rows cascade; shared tag/participant rows survive.
	// Returns ErrNoRows when nothing was deleted.
	Delete(ctx context.Context, id, userID string) error
}
