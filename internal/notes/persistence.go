package notes

import "github.com/hoffkamp/bureau/internal/model"

// Persistence is the remote store the engine reconciles against. The
// SQLite stores satisfy it in production; tests inject a fake with
// controllable failures.
//
// UpdateNote returns the number of rows affected. Zero rows with a nil
// error means the remote rejected the write (permission or missing row);
// a non-nil error that is not a recognized rejection is treated as
// transient.
type Persistence interface {
	NotesByOwner(ownerID int64, includeArchived bool) ([]model.Note, error)
	NotesByOwners(ownerIDs []int64) ([]model.Note, error)
	NotesByIDs(ids []int64) ([]model.Note, error)
	NoteByID(id int64) (*model.Note, error)
	UpdateNote(id, actorID int64, patch model.NotePatch) (int64, error)

	InsertVersion(v model.NoteVersion) (*model.NoteVersion, error)
	VersionsByNote(noteID int64) ([]model.NoteVersion, error)

	SharesForGrantee(granteeID int64) ([]model.NoteShare, error)
	SharesForNotes(noteIDs []int64) ([]model.NoteShare, error)
	GlobalGranters(granteeID int64) ([]int64, error)
	ResolveProfiles(userIDs []int64) (map[int64]model.Profile, error)
}
