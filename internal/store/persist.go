package store

import (
	"database/sql"

	"github.com/hoffkamp/bureau/internal/model"
)

// Persist bundles the note-related stores behind the single surface the
// sync engine reconciles against.
type Persist struct {
	notes    *NoteStore
	shares   *ShareStore
	versions *VersionStore
	users    *UserStore
}

func NewPersist(db *sql.DB) *Persist {
	return &Persist{
		notes:    NewNoteStore(db),
		shares:   NewShareStore(db),
		versions: NewVersionStore(db),
		users:    NewUserStore(db),
	}
}

func (p *Persist) NotesByOwner(ownerID int64, includeArchived bool) ([]model.Note, error) {
	return p.notes.ListByOwner(ownerID, includeArchived)
}

func (p *Persist) NotesByOwners(ownerIDs []int64) ([]model.Note, error) {
	return p.notes.ListByOwners(ownerIDs)
}

func (p *Persist) NotesByIDs(ids []int64) ([]model.Note, error) {
	return p.notes.ListByIDs(ids)
}

func (p *Persist) NoteByID(id int64) (*model.Note, error) {
	return p.notes.GetByID(id)
}

func (p *Persist) UpdateNote(id, actorID int64, patch model.NotePatch) (int64, error) {
	return p.notes.Update(id, actorID, patch)
}

func (p *Persist) InsertVersion(v model.NoteVersion) (*model.NoteVersion, error) {
	return p.versions.Insert(v)
}

func (p *Persist) VersionsByNote(noteID int64) ([]model.NoteVersion, error) {
	return p.versions.ListByNote(noteID)
}

func (p *Persist) SharesForGrantee(granteeID int64) ([]model.NoteShare, error) {
	return p.shares.SharesForGrantee(granteeID)
}

func (p *Persist) SharesForNotes(noteIDs []int64) ([]model.NoteShare, error) {
	return p.shares.SharesForNotes(noteIDs)
}

func (p *Persist) GlobalGranters(granteeID int64) ([]int64, error) {
	return p.shares.GlobalGranters(granteeID)
}

func (p *Persist) ResolveProfiles(userIDs []int64) (map[int64]model.Profile, error) {
	return p.users.ProfilesByIDs(userIDs)
}
