package notes

import (
	"errors"
	"sync"
	"time"

	"github.com/hoffkamp/bureau/internal/model"
)

// fakePersist is an in-memory Persistence with injectable failures.
type fakePersist struct {
	mu       sync.Mutex
	notes    map[int64]model.Note
	versions []model.NoteVersion
	nextVID  int64

	shares   []model.NoteShare
	granters map[int64][]int64
	profiles map[int64]model.Profile

	// Failure injection for UpdateNote. updateErr takes priority; if
	// rejectUpdate is set, UpdateNote reports zero rows affected.
	updateErr    error
	rejectUpdate bool
	// fetchErrs is consumed one per NoteByID call, letting tests fail the
	// first reconciliation attempts and succeed later.
	fetchErrs []error
	// listErr fails every bulk read.
	listErr error

	updateCalls int
	fetchCalls  int
}

func newFakePersist(notes ...model.Note) *fakePersist {
	f := &fakePersist{
		notes:    make(map[int64]model.Note),
		granters: make(map[int64][]int64),
		profiles: make(map[int64]model.Profile),
	}
	for _, n := range notes {
		f.notes[n.ID] = n
	}
	return f
}

func (f *fakePersist) NotesByOwner(ownerID int64, includeArchived bool) ([]model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Note
	for _, n := range f.notes {
		if n.OwnerID != ownerID || n.DeletedAt != nil {
			continue
		}
		if n.Archived && !includeArchived {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakePersist) NotesByOwners(ownerIDs []int64) ([]model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Note
	for _, n := range f.notes {
		if n.DeletedAt != nil || n.Archived {
			continue
		}
		for _, id := range ownerIDs {
			if n.OwnerID == id {
				out = append(out, n)
				break
			}
		}
	}
	return out, nil
}

func (f *fakePersist) NotesByIDs(ids []int64) ([]model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Note
	for _, id := range ids {
		if n, ok := f.notes[id]; ok && n.DeletedAt == nil && !n.Archived {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakePersist) NoteByID(id int64) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	n, ok := f.notes[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (f *fakePersist) UpdateNote(id, actorID int64, patch model.NotePatch) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	if f.rejectUpdate {
		return 0, nil
	}
	n, ok := f.notes[id]
	if !ok {
		return 0, nil
	}
	if !patch.ContentOnly() && n.OwnerID != actorID {
		return 0, nil
	}
	patch.Apply(&n)
	f.notes[id] = n
	return 1, nil
}

func (f *fakePersist) InsertVersion(v model.NoteVersion) (*model.NoteVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextVID++
	v.ID = f.nextVID
	v.CreatedAt = time.Now().UTC()
	f.versions = append(f.versions, v)
	return &v, nil
}

func (f *fakePersist) VersionsByNote(noteID int64) ([]model.NoteVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.NoteVersion
	// Newest first, matching the SQL ordering.
	for i := len(f.versions) - 1; i >= 0; i-- {
		if f.versions[i].NoteID == noteID {
			out = append(out, f.versions[i])
		}
	}
	return out, nil
}

func (f *fakePersist) SharesForGrantee(granteeID int64) ([]model.NoteShare, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.NoteShare
	for _, sh := range f.shares {
		if sh.GranteeID == granteeID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (f *fakePersist) SharesForNotes(noteIDs []int64) ([]model.NoteShare, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.NoteShare
	for _, sh := range f.shares {
		for _, id := range noteIDs {
			if sh.NoteID == id {
				out = append(out, sh)
				break
			}
		}
	}
	return out, nil
}

func (f *fakePersist) GlobalGranters(granteeID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granters[granteeID], nil
}

func (f *fakePersist) ResolveProfiles(userIDs []int64) (map[int64]model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]model.Profile)
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakePersist) note(id int64) model.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes[id]
}

var errNetwork = errors.New("connection reset")

// runImmediately replaces timer scheduling so reconciliation runs inline.
func runImmediately(d time.Duration, fn func()) *time.Timer {
	fn()
	return time.NewTimer(0)
}
