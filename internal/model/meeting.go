package model

import "time"

// MeetingStatus tracks a meeting through the processing pipeline.
type MeetingStatus string

const (
	StatusPending      MeetingStatus = "pending"
	StatusProcessing   MeetingStatus = "processing"
	StatusTranscribing MeetingStatus = "transcribing"
	StatusSummarizing  MeetingStatus = "summarizing"
	StatusCompleted    MeetingStatus = "completed"
	StatusFailed       MeetingStatus = "failed"
)

// statusRank orders the forward-only pipeline states. failed is reachable
// from any non-terminal state and is handled separately in CanTransitionTo.
var statusRank = map[MeetingStatus]int{
	StatusPending:      0,
	StatusProcessing:   1,
	StatusTranscribing: 2,
	StatusSummarizing:  3,
	StatusCompleted:    4,
}

// Valid reports whether s is a known status value.
func (s MeetingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusTranscribing, StatusSummarizing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether a pipeline run ends in this status.
func (s MeetingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only state machine. Any non-terminal state may move to failed.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Meeting is the root entity for one uploaded recording and its derived
// summary. It is a pure domain model shared across layers; persistence
// specifics stay in the repository.
type Meeting struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Title        string        `json:"title"`
	AudioURL     string        `json:"audio_url"`
	Duration     int           `json:"duration"`
	FileSize     int64         `json:"file_size"`
	Date         time.Time     `json:"date"`
	Status       MeetingStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Summary      *Summary      `json:"summary,omitempty"`
	Tags         []Tag         `json:"tags"`
	Participants []Participant `json:"participants"`
}

// Summary holds the derived content of one meeting. Exactly one summary
// may exist per meeting; the repository enforces this with a unique
// constraint on meeting_id.
type Summary struct {
	ID          string    `json:"id"`
	MeetingID   string    `json:"meeting_id"`
	Transcript  string    `json:"transcript"`
	KeyPoints   []string  `json:"key_points"`
	Decisions   []string  `json:"decisions"`
	ActionItems []string  `json:"action_items"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tag is a shared label keyed by exact name. Tag rows outlive the
// meetings that reference them.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Participant is a shared person entity keyed by exact name, with the
// same lifetime semantics as Tag.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
