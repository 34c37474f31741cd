package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hoffkamp/bureau/internal/model"
)

type NoteStore struct {
	db *sql.DB
}

func NewNoteStore(db *sql.DB) *NoteStore {
	return &NoteStore{db: db}
}

const noteCols = `id, owner_id, title, content, color, color_full_card, pinned, priority_level,
	follow_up_at, archived, deleted_at, purge_after,
	linked_task_id, linked_task_info, linked_decision_id, linked_decision_info,
	linked_meeting_id, linked_meeting_info, created_at, updated_at`

func scanNote(scanner interface{ Scan(...any) error }) (*model.Note, error) {
	var n model.Note
	var color, taskInfo, decisionInfo, meetingInfo sql.NullString
	var followUpAt, deletedAt, purgeAfter sql.NullTime
	var taskID, decisionID, meetingID sql.NullInt64
	var fullCard, pinned, archived int

	err := scanner.Scan(
		&n.ID, &n.OwnerID, &n.Title, &n.Content, &color, &fullCard, &pinned, &n.PriorityLevel,
		&followUpAt, &archived, &deletedAt, &purgeAfter,
		&taskID, &taskInfo, &decisionID, &decisionInfo,
		&meetingID, &meetingInfo, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.ColorFullCard = fullCard != 0
	n.Pinned = pinned != 0
	n.Archived = archived != 0
	if color.Valid {
		n.Color = &color.String
	}
	if followUpAt.Valid {
		n.FollowUpAt = &followUpAt.Time
	}
	if deletedAt.Valid {
		n.DeletedAt = &deletedAt.Time
	}
	if purgeAfter.Valid {
		n.PurgeAfter = &purgeAfter.Time
	}
	if taskID.Valid {
		n.LinkedTaskID = &taskID.Int64
	}
	if taskInfo.Valid {
		n.LinkedTaskInfo = &taskInfo.String
	}
	if decisionID.Valid {
		n.LinkedDecisionID = &decisionID.Int64
	}
	if decisionInfo.Valid {
		n.LinkedDecisionInfo = &decisionInfo.String
	}
	if meetingID.Valid {
		n.LinkedMeetingID = &meetingID.Int64
	}
	if meetingInfo.Valid {
		n.LinkedMeetingInfo = &meetingInfo.String
	}
	return &n, nil
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *NoteStore) Create(n model.Note) (*model.Note, error) {
	result, err := s.db.Exec(
		`INSERT INTO notes (owner_id, title, content, color, color_full_card, pinned, priority_level,
			follow_up_at, archived, linked_task_id, linked_task_info, linked_decision_id,
			linked_decision_info, linked_meeting_id, linked_meeting_info)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.OwnerID, n.Title, n.Content, nullStr(n.Color), boolInt(n.ColorFullCard),
		boolInt(n.Pinned), n.PriorityLevel, nullTime(n.FollowUpAt), boolInt(n.Archived),
		nullInt(n.LinkedTaskID), nullStr(n.LinkedTaskInfo),
		nullInt(n.LinkedDecisionID), nullStr(n.LinkedDecisionInfo),
		nullInt(n.LinkedMeetingID), nullStr(n.LinkedMeetingInfo),
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetByID returns the note regardless of soft-delete state; callers that
// need the visible set use the List methods instead.
func (s *NoteStore) GetByID(id int64) (*model.Note, error) {
	row := s.db.QueryRow(`SELECT `+noteCols+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// ListByOwner returns the owner's notes, excluding soft-deleted ones.
func (s *NoteStore) ListByOwner(ownerID int64, includeArchived bool) ([]model.Note, error) {
	query := `SELECT ` + noteCols + ` FROM notes WHERE owner_id = ? AND deleted_at IS NULL`
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list notes by owner: %w", err)
	}
	return collectNotes(rows)
}

// ListDeleted returns the owner's soft-deleted notes awaiting purge,
// most recently deleted first.
func (s *NoteStore) ListDeleted(ownerID int64) ([]model.Note, error) {
	rows, err := s.db.Query(
		`SELECT `+noteCols+` FROM notes
		 WHERE owner_id = ? AND deleted_at IS NOT NULL
		 ORDER BY deleted_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list deleted notes: %w", err)
	}
	return collectNotes(rows)
}

// ListByOwners returns active notes belonging to any of the given owners.
// Used to resolve global shares; archived notes are never shared out.
func (s *NoteStore) ListByOwners(ownerIDs []int64) ([]model.Note, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ownerIDs)), ",")
	args := make([]any, len(ownerIDs))
	for i, id := range ownerIDs {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT `+noteCols+` FROM notes
		 WHERE owner_id IN (`+placeholders+`) AND deleted_at IS NULL AND archived = 0
		 ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes by owners: %w", err)
	}
	return collectNotes(rows)
}

// ListByIDs returns active notes matching the given ids.
func (s *NoteStore) ListByIDs(ids []int64) ([]model.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT `+noteCols+` FROM notes
		 WHERE id IN (`+placeholders+`) AND deleted_at IS NULL AND archived = 0`, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes by ids: %w", err)
	}
	return collectNotes(rows)
}

func collectNotes(rows *sql.Rows) ([]model.Note, error) {
	defer rows.Close()
	var notes []model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// Update applies the patch on behalf of actorID and returns the number of
// rows affected. The WHERE clause enforces permissions: content-only
// patches are allowed for the owner and for grantees holding an edit
// share; every other patch is owner-only. Zero rows affected means the
// actor lacks permission or the note is gone.
func (s *NoteStore) Update(id, actorID int64, patch model.NotePatch) (int64, error) {
	if patch.IsZero() {
		return 0, fmt.Errorf("empty patch")
	}

	var set []string
	var args []any
	add := func(clause string, vals ...any) {
		set = append(set, clause)
		args = append(args, vals...)
	}

	if patch.Title != nil {
		add("title = ?", *patch.Title)
	}
	if patch.Content != nil {
		add("content = ?", *patch.Content)
	}
	if patch.Pinned != nil {
		add("pinned = ?", boolInt(*patch.Pinned))
	}
	if patch.PriorityLevel != nil {
		add("priority_level = ?", *patch.PriorityLevel)
	}
	if patch.ColorFullCard != nil {
		add("color_full_card = ?", boolInt(*patch.ColorFullCard))
	}
	if patch.Archived != nil {
		add("archived = ?", boolInt(*patch.Archived))
	}
	if patch.SetColor {
		add("color = ?", nullStr(patch.Color))
	}
	if patch.SetFollowUp {
		add("follow_up_at = ?, follow_up_notified = 0", nullTime(patch.FollowUpAt))
	}
	if patch.SetDeleted {
		add("deleted_at = ?", nullTime(patch.DeletedAt))
		add("purge_after = ?", nullTime(patch.PurgeAfter))
	}
	if patch.ClearTaskLink {
		set = append(set, "linked_task_id = NULL")
	}
	if patch.ClearDecisionLink {
		set = append(set, "linked_decision_id = NULL")
	}
	if patch.ClearMeetingLink {
		set = append(set, "linked_meeting_id = NULL")
	}
	set = append(set, "updated_at = datetime('now')")

	query := `UPDATE notes SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	args = append(args, id)

	if patch.ContentOnly() {
		query += ` AND deleted_at IS NULL AND (owner_id = ? OR EXISTS (
			SELECT 1 FROM note_shares
			WHERE note_id = notes.id AND grantee_id = ? AND permission = 'edit'))`
		args = append(args, actorID, actorID)
	} else if patch.SetDeleted && patch.DeletedAt == nil {
		// Restoring a soft-deleted note: the deleted_at guard must not apply.
		query += ` AND owner_id = ?`
		args = append(args, actorID)
	} else {
		query += ` AND deleted_at IS NULL AND owner_id = ?`
		args = append(args, actorID)
	}

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("update note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// PurgeExpired permanently removes soft-deleted notes whose purge deadline
// has passed. Returns the number of notes purged.
func (s *NoteStore) PurgeExpired() (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM notes WHERE deleted_at IS NOT NULL AND purge_after <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("purge notes: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// DueFollowUps returns active notes whose follow-up date has passed and
// that have not been push-notified yet.
func (s *NoteStore) DueFollowUps(now time.Time) ([]model.Note, error) {
	rows, err := s.db.Query(
		`SELECT `+noteCols+` FROM notes
		 WHERE follow_up_at IS NOT NULL AND follow_up_at <= ? AND follow_up_notified = 0
		   AND deleted_at IS NULL AND archived = 0
		 ORDER BY follow_up_at`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list due follow-ups: %w", err)
	}
	return collectNotes(rows)
}

// MarkFollowUpNotified records that a due reminder was sent.
func (s *NoteStore) MarkFollowUpNotified(id int64) error {
	_, err := s.db.Exec(`UPDATE notes SET follow_up_notified = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark follow-up notified: %w", err)
	}
	return nil
}
