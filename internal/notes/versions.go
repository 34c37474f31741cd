package notes

import (
	"fmt"

	"github.com/hoffkamp/bureau/internal/model"
)

// VersionManager snapshots notes before content edits and restores
// historical snapshots. History only ever grows: a restore first snapshots
// the pre-restore state, so no content is lost.
type VersionManager struct {
	persist Persistence
}

func NewVersionManager(persist Persistence) *VersionManager {
	return &VersionManager{persist: persist}
}

// Snapshot persists an immutable copy of the note's current title and
// content, attributed to the acting user.
func (m *VersionManager) Snapshot(n model.Note, authorID int64) error {
	_, err := m.persist.InsertVersion(model.NoteVersion{
		NoteID:   n.ID,
		Title:    n.Title,
		Content:  n.Content,
		AuthorID: authorID,
	})
	if err != nil {
		return fmt.Errorf("snapshot note %d: %w", n.ID, err)
	}
	return nil
}

// List returns the note's snapshots, newest first.
func (m *VersionManager) List(noteID int64) ([]model.NoteVersion, error) {
	return m.persist.VersionsByNote(noteID)
}

// Find returns the snapshot with the given id, or ErrNotFound.
func (m *VersionManager) Find(noteID, versionID int64) (model.NoteVersion, error) {
	versions, err := m.persist.VersionsByNote(noteID)
	if err != nil {
		return model.NoteVersion{}, err
	}
	for _, v := range versions {
		if v.ID == versionID {
			return v, nil
		}
	}
	return model.NoteVersion{}, ErrNotFound
}
