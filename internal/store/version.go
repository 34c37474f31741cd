package store

import (
	"database/sql"
	"fmt"

	"github.com/hoffkamp/bureau/internal/model"
)

type VersionStore struct {
	db *sql.DB
}

func NewVersionStore(db *sql.DB) *VersionStore {
	return &VersionStore{db: db}
}

const versionCols = `id, note_id, title, content, author_id, created_at`

func scanVersion(scanner interface{ Scan(...any) error }) (*model.NoteVersion, error) {
	var v model.NoteVersion
	err := scanner.Scan(&v.ID, &v.NoteID, &v.Title, &v.Content, &v.AuthorID, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *VersionStore) Insert(v model.NoteVersion) (*model.NoteVersion, error) {
	result, err := s.db.Exec(
		`INSERT INTO note_versions (note_id, title, content, author_id) VALUES (?, ?, ?, ?)`,
		v.NoteID, v.Title, v.Content, v.AuthorID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *VersionStore) GetByID(id int64) (*model.NoteVersion, error) {
	row := s.db.QueryRow(`SELECT `+versionCols+` FROM note_versions WHERE id = ?`, id)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// ListByNote returns all snapshots of a note, newest first.
func (s *VersionStore) ListByNote(noteID int64) ([]model.NoteVersion, error) {
	rows, err := s.db.Query(
		`SELECT `+versionCols+` FROM note_versions WHERE note_id = ? ORDER BY created_at DESC, id DESC`,
		noteID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []model.NoteVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}
