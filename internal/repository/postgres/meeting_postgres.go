package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"meetscribe/internal/model"
	"meetscribe/internal/repository"
)

// MeetingPostgres is a PostgreSQL implementation of repository.MeetingRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type MeetingPostgres struct {
	db *sql.DB
}

// NewMeetingPostgres creates a new MeetingPostgres repository.
func NewMeetingPostgres(db *sql.DB) *MeetingPostgres {
	return &MeetingPostgres{db: db}
}

var _ repository.MeetingRepository = (*MeetingPostgres)(nil)

const meetingColumns = `id, user_id, title, audio_url, duration, file_size, date, status, created_at, updated_at`

// translateErr maps driver-level errors onto the repository sentinels.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", repository.ErrUniqueViolation, pgErr.ConstraintName)
	}
	return err
}

func scanMeeting(row interface{ Scan(...any) error }) (*model.Meeting, error) {
	var m model.Meeting
	if err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Title,
		&m.AudioURL,
		&m.Duration,
		&m.FileSize,
		&m.Date,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new meeting row and returns the stored record. Initial
// tag and participant sets, when present on m, are connected inside the
// same transaction as the insert.
func (r *MeetingPostgres) Create(ctx context.Context, m *model.Meeting) (*model.Meeting, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO meetings (id, user_id, title, audio_url, duration, file_size, date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + meetingColumns
	row := tx.QueryRowContext(ctx, q,
		m.ID,
		m.UserID,
		m.Title,
		m.AudioURL,
		m.Duration,
		m.FileSize,
		m.Date,
		m.Status,
	)
	out, err := scanMeeting(row)
	if err != nil {
		return nil, translateErr(err)
	}

	tagNames := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		tagNames = append(tagNames, t.Name)
	}
	participantNames := make([]string, 0, len(m.Participants))
	for _, p := range m.Participants {
		participantNames = append(participantNames, p.Name)
	}
	if len(tagNames) > 0 {
		if err := replaceAssociations(ctx, tx, assocTags, out.ID, tagNames); err != nil {
			return nil, translateErr(err)
		}
	}
	if len(participantNames) > 0 {
		if err := replaceAssociations(ctx, tx, assocParticipants, out.ID, participantNames); err != nil {
			return nil, translateErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if len(tagNames) > 0 || len(participantNames) > 0 {
		if err := r.hydrate(ctx, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	out.Tags = []model.Tag{}
	out.Participants = []model.Participant{}
	return out, nil
}

// FindByID fetches a single meeting owned by userID, hydrated with summary,
// tags, and participants.
func (r *MeetingPostgres) FindByID(ctx context.Context, id, userID string) (*model.Meeting, error) {
	const q = `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1 AND user_id = $2`
	m, err := scanMeeting(r.db.QueryRowContext(ctx, q, id, userID))
	if err != nil {
		return nil, translateErr(err)
	}
	if err := r.hydrate(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns all meetings owned by userID, newest first, hydrated.
func (r *MeetingPostgres) List(ctx context.Context, userID string) ([]model.Meeting, error) {
	const q = `SELECT ` + meetingColumns + ` FROM meetings WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range items {
		if err := r.hydrate(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Update applies a partial update. Association fields, when present,
// replace the whole set: existing rows are cleared first, then the new
// names are connected.
func (r *MeetingPostgres) Update(ctx context.Context, id, userID string, u repository.MeetingUpdate) (*model.Meeting, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sets := []string{"updated_at = now()"}
	args := []any{id, userID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.AudioURL != nil {
		add("audio_url", *u.AudioURL)
	}
	if u.Duration != nil {
		add("duration", *u.Duration)
	}
	if u.FileSize != nil {
		add("file_size", *u.FileSize)
	}
	if u.Date != nil {
		add("date", *u.Date)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}

	q := fmt.Sprintf(`UPDATE meetings SET %s WHERE id = $1 AND user_id = $2 RETURNING %s`,
		strings.Join(sets, ", "), meetingColumns)
	m, err := scanMeeting(tx.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, translateErr(err)
	}

	if u.Tags != nil {
		if err := replaceAssociations(ctx, tx, assocTags, id, u.Tags); err != nil {
			return nil, translateErr(err)
		}
	}
	if u.Participants != nil {
		if err := replaceAssociations(ctx, tx, assocParticipants, id, u.Participants); err != nil {
			return nil, translateErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetStatus records a pipeline status transition.
func (r *MeetingPostgres) SetStatus(ctx context.Context, id string, status model.MeetingStatus) error {
	const q = `UPDATE meetings SET status = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNoRows
	}
	return nil
}

// SetAudio records the durable storage reference for the meeting.
func (r *MeetingPostgres) SetAudio(ctx context.Context, id, audioURL string) error {
	const q = `UPDATE meetings SET audio_url = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, audioURL)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNoRows
	}
	return nil
}

const summaryColumns = `id, meeting_id, transcript, key_points, decisions, action_items, created_at, updated_at`

func scanSummary(row interface{ Scan(...any) error }) (*model.Summary, error) {
	var (
		s                                 model.Summary
		keyPoints, decisions, actionItems []byte
	)
	if err := row.Scan(
		&s.ID,
		&s.MeetingID,
		&s.Transcript,
		&keyPoints,
		&decisions,
		&actionItems,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		raw []byte
		dst *[]string
	}{
		{keyPoints, &s.KeyPoints},
		{decisions, &s.Decisions},
		{actionItems, &s.ActionItems},
	} {
		*pair.dst = []string{}
		if len(pair.raw) > 0 {
			if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
				return nil, fmt.Errorf("decode summary section: %w", err)
			}
		}
	}
	return &s, nil
}

func marshalSection(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

// CreateSummary inserts the summary row for a meeting. The unique
// constraint on meeting_id enforces the 1:1 invariant.
func (r *MeetingPostgres) CreateSummary(ctx context.Context, meetingID string, c repository.SummaryContent) (*model.Summary, error) {
	return createSummary(ctx, r.db, meetingID, c)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func createSummary(ctx context.Context, q rowQuerier, meetingID string, c repository.SummaryContent) (*model.Summary, error) {
	keyPoints, err := marshalSection(c.KeyPoints)
	if err != nil {
		return nil, err
	}
	decisions, err := marshalSection(c.Decisions)
	if err != nil {
		return nil, err
	}
	actionItems, err := marshalSection(c.ActionItems)
	if err != nil {
		return nil, err
	}

	const stmt = `
		INSERT INTO summaries (id, meeting_id, transcript, key_points, decisions, action_items)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + summaryColumns
	row := q.QueryRowContext(ctx, stmt,
		uuid.NewString(),
		meetingID,
		c.Transcript,
		keyPoints,
		decisions,
		actionItems,
	)
	s, err := scanSummary(row)
	if err != nil {
		return nil, translateErr(err)
	}
	return s, nil
}

// UpdateSummary replaces the editable summary sections in place.
func (r *MeetingPostgres) UpdateSummary(ctx context.Context, meetingID string, c repository.SummaryContent) (*model.Summary, error) {
	keyPoints, err := marshalSection(c.KeyPoints)
	if err != nil {
		return nil, err
	}
	decisions, err := marshalSection(c.Decisions)
	if err != nil {
		return nil, err
	}
	actionItems, err := marshalSection(c.ActionItems)
	if err != nil {
		return nil, err
	}

	const stmt = `
		UPDATE summaries
		SET transcript = $2, key_points = $3, decisions = $4, action_items = $5, updated_at = now()
		WHERE meeting_id = $1
		RETURNING ` + summaryColumns
	row := r.db.QueryRowContext(ctx, stmt, meetingID, c.Transcript, keyPoints, decisions, actionItems)
	s, err := scanSummary(row)
	if err != nil {
		return nil, translateErr(err)
	}
	return s, nil
}

type assocTables struct {
	entity  string
	join    string
	joinCol string
}

var (
	assocTags         = assocTables{entity: "tags", join: "meeting_tags", joinCol: "tag_id"}
	assocParticipants = assocTables{entity: "participants", join: "meeting_participants", joinCol: "participant_id"}
)

// replaceAssociations clears the association set for one meeting and
// reconnects the given names, creating missing entity rows on the fly.
// The upsert is race-tolerant: concurrent inserts of the same name land
// on the unique constraint and resolve via ON CONFLICT.
func replaceAssociations(ctx context.Context, tx *sql.Tx, t assocTables, meetingID string, names []string) error {
	clearStmt := fmt.Sprintf(`DELETE FROM %s WHERE meeting_id = $1`, t.join)
	if _, err := tx.ExecContext(ctx, clearStmt, meetingID); err != nil {
		return err
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %s (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, t.entity)
	connect := fmt.Sprintf(`
		INSERT INTO %s (meeting_id, %s) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, t.join, t.joinCol)

	for _, name := range names {
		var entityID string
		if err := tx.QueryRowContext(ctx, upsert, uuid.NewString(), name).Scan(&entityID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, connect, meetingID, entityID); err != nil {
			return err
		}
	}
	return nil
}

// Complete finalizes a successful pipeline run atomically. A reader never
// observes status completed without the summary row being visible too.
func (r *MeetingPostgres) Complete(ctx context.Context, id string, c repository.Completion) (*model.Meeting, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const q = `
		UPDATE meetings
		SET title = $2, duration = $3, status = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + meetingColumns
	m, err := scanMeeting(tx.QueryRowContext(ctx, q, id, c.Title, c.Duration, model.StatusCompleted))
	if err != nil {
		return nil, translateErr(err)
	}

	if _, err := createSummary(ctx, tx, id, c.Summary); err != nil {
		return nil, err
	}
	if err := replaceAssociations(ctx, tx, assocTags, id, c.Tags); err != nil {
		return nil, translateErr(err)
	}
	if err := replaceAssociations(ctx, tx, assocParticipants, id, c.Participants); err != nil {
		return nil, translateErr(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a meeting owned by userID. Summary and association rows
// cascade at the schema level; tag/participant rows are shared and stay.
func (r *MeetingPostgres) Delete(ctx context.Context, id, userID string) error {
	const q = `DELETE FROM meetings WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNoRows
	}
	return nil
}

// hydrate loads the summary, tag, and participant subtrees for a meeting.
func (r *MeetingPostgres) hydrate(ctx context.Context, m *model.Meeting) error {
	const qSummary = `SELECT ` + summaryColumns + ` FROM summaries WHERE meeting_id = $1`
	s, err := scanSummary(r.db.QueryRowContext(ctx, qSummary, m.ID))
	switch {
	case err == nil:
		m.Summary = s
	case errors.Is(err, sql.ErrNoRows):
		m.Summary = nil
	default:
		return err
	}

	const qTags = `
		SELECT t.id, t.name FROM tags t
		JOIN meeting_tags mt ON mt.tag_id = t.id
		WHERE mt.meeting_id = $1
		ORDER BY t.name`
	m.Tags = []model.Tag{}
	rows, err := r.db.QueryContext(ctx, qTags, m.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return err
		}
		m.Tags = append(m.Tags, t)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	const qParticipants = `
		SELECT p.id, p.name FROM participants p
		JOIN meeting_participants mp ON mp.participant_id = p.id
		WHERE mp.meeting_id = $1
		ORDER BY p.name`
	m.Participants = []model.Participant{}
	prows, err := r.db.QueryContext(ctx, qParticipants, m.ID)
	if err != nil {
		return err
	}
	defer prows.Close()
	for prows.Next() {
		var p model.Participant
		if err := prows.Scan(&p.ID, &p.Name); err != nil {
			return err
		}
		m.Participants = append(m.Participants, p)
	}
	return prows.Err()
}
