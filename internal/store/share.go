package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/hoffkamp/bureau/internal/model"
)

type ShareStore struct {
	db *sql.DB
}

func NewShareStore(db *sql.DB) *ShareStore {
	return &ShareStore{db: db}
}

func scanNoteShare(scanner interface{ Scan(...any) error }) (*model.NoteShare, error) {
	var sh model.NoteShare
	err := scanner.Scan(&sh.ID, &sh.NoteID, &sh.GranteeID, &sh.Permission, &sh.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

const noteShareCols = `id, note_id, grantee_id, permission, created_at`

// CreateNoteShare grants a user access to a single note. Upserts so that
// re-sharing with a different permission replaces the old grant.
func (s *ShareStore) CreateNoteShare(noteID, granteeID int64, permission string) (*model.NoteShare, error) {
	_, err := s.db.Exec(
		`INSERT INTO note_shares (note_id, grantee_id, permission) VALUES (?, ?, ?)
		 ON CONFLICT(note_id, grantee_id) DO UPDATE SET permission = excluded.permission`,
		noteID, granteeID, permission,
	)
	if err != nil {
		return nil, fmt.Errorf("insert note share: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT `+noteShareCols+` FROM note_shares WHERE note_id = ? AND grantee_id = ?`,
		noteID, granteeID,
	)
	sh, err := scanNoteShare(row)
	if err != nil {
		return nil, fmt.Errorf("get note share: %w", err)
	}
	return sh, nil
}

func (s *ShareStore) DeleteNoteShare(noteID, granteeID int64) error {
	_, err := s.db.Exec(`DELETE FROM note_shares WHERE note_id = ? AND grantee_id = ?`, noteID, granteeID)
	if err != nil {
		return fmt.Errorf("delete note share: %w", err)
	}
	return nil
}

// SharesForGrantee returns all individual shares granted to the user.
func (s *ShareStore) SharesForGrantee(granteeID int64) ([]model.NoteShare, error) {
	rows, err := s.db.Query(
		`SELECT `+noteShareCols+` FROM note_shares WHERE grantee_id = ? ORDER BY created_at`, granteeID)
	if err != nil {
		return nil, fmt.Errorf("list shares for grantee: %w", err)
	}
	return collectNoteShares(rows)
}

// SharesForNotes returns all individual shares on the given notes, for
// annotating owned notes with their grantee list.
func (s *ShareStore) SharesForNotes(noteIDs []int64) ([]model.NoteShare, error) {
	if len(noteIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(noteIDs)), ",")
	args := make([]any, len(noteIDs))
	for i, id := range noteIDs {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT `+noteShareCols+` FROM note_shares WHERE note_id IN (`+placeholders+`) ORDER BY created_at`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list shares for notes: %w", err)
	}
	return collectNoteShares(rows)
}

func collectNoteShares(rows *sql.Rows) ([]model.NoteShare, error) {
	defer rows.Close()
	var shares []model.NoteShare
	for rows.Next() {
		sh, err := scanNoteShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note share: %w", err)
		}
		shares = append(shares, *sh)
	}
	return shares, rows.Err()
}

// CreateGlobalShare makes all of the granter's notes visible to the grantee.
func (s *ShareStore) CreateGlobalShare(granterID, granteeID int64) (*model.GlobalShare, error) {
	_, err := s.db.Exec(
		`INSERT INTO global_shares (granter_id, grantee_id) VALUES (?, ?)
		 ON CONFLICT(granter_id, grantee_id) DO NOTHING`,
		granterID, granteeID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert global share: %w", err)
	}

	var gs model.GlobalShare
	row := s.db.QueryRow(
		`SELECT id, granter_id, grantee_id, created_at FROM global_shares
		 WHERE granter_id = ? AND grantee_id = ?`, granterID, granteeID)
	if err := row.Scan(&gs.ID, &gs.GranterID, &gs.GranteeID, &gs.CreatedAt); err != nil {
		return nil, fmt.Errorf("get global share: %w", err)
	}
	return &gs, nil
}

func (s *ShareStore) DeleteGlobalShare(granterID, granteeID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM global_shares WHERE granter_id = ? AND grantee_id = ?`, granterID, granteeID)
	if err != nil {
		return fmt.Errorf("delete global share: %w", err)
	}
	return nil
}

// GlobalGranters returns the ids of users who globally shared their notes
// with the given grantee.
func (s *ShareStore) GlobalGranters(granteeID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT granter_id FROM global_shares WHERE grantee_id = ?`, granteeID)
	if err != nil {
		return nil, fmt.Errorf("list global granters: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan granter id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GlobalSharesByGranter lists the standing grants a user has handed out.
func (s *ShareStore) GlobalSharesByGranter(granterID int64) ([]model.GlobalShare, error) {
	rows, err := s.db.Query(
		`SELECT id, granter_id, grantee_id, created_at FROM global_shares
		 WHERE granter_id = ? ORDER BY created_at`, granterID)
	if err != nil {
		return nil, fmt.Errorf("list global shares: %w", err)
	}
	defer rows.Close()

	var shares []model.GlobalShare
	for rows.Next() {
		var gs model.GlobalShare
		if err := rows.Scan(&gs.ID, &gs.GranterID, &gs.GranteeID, &gs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan global share: %w", err)
		}
		shares = append(shares, gs)
	}
	return shares, rows.Err()
}
