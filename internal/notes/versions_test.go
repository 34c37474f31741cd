package notes

import (
	"errors"
	"testing"

	"github.com/hoffkamp/bureau/internal/model"
)

func TestUpdateContentSnapshotsFirst(t *testing.T) {
	n := mkNote(1, 0, false, testNow)
	n.Title = "draft"
	n.Content = "first thoughts"
	persist := newFakePersist(n)
	eng := newTestEngine(t, persist, 1)

	res, err := eng.UpdateContent(1, "draft", "second thoughts")
	if err != nil {
		t.Fatalf("update content: %v", err)
	}
	if !res.Applied {
		t.Fatalf("result = %+v, want applied", res)
	}

	versions, err := eng.Versions(1)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("version count = %d, want 1", len(versions))
	}
	// The snapshot holds the pre-edit state, not the new one.
	if versions[0].Content != "first thoughts" {
		t.Errorf("snapshot content = %q, want pre-edit state", versions[0].Content)
	}
	if versions[0].AuthorID != 1 {
		t.Errorf("snapshot author = %d, want 1", versions[0].AuthorID)
	}
}

func TestUpdateContentValidation(t *testing.T) {
	persist := newFakePersist(mkNote(1, 0, false, testNow))
	eng := newTestEngine(t, persist, 1)

	if _, err := eng.UpdateContent(1, "   ", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(persist.versions) != 0 {
		t.Error("a rejected edit must not leave a snapshot behind")
	}
}

func TestUpdateContentByEditGrantee(t *testing.T) {
	n := foreignNote(1, 2)
	n.Content = "owner's text"
	persist := newFakePersist(n)
	persist.shares = []model.NoteShare{
		{NoteID: 1, GranteeID: 1, Permission: model.PermissionEdit},
	}
	eng := newTestEngine(t, persist, 1)

	if _, err := eng.UpdateContent(1, "t", "grantee's text"); err != nil {
		t.Fatalf("edit grantee update: %v", err)
	}
	if got := persist.note(1).Content; got != "grantee's text" {
		t.Errorf("remote content = %q, want grantee's text", got)
	}
	// The snapshot attributes the edit to the grantee.
	if persist.versions[0].AuthorID != 1 {
		t.Errorf("snapshot author = %d, want grantee 1", persist.versions[0].AuthorID)
	}
}

func TestUpdateContentByViewGrantee(t *testing.T) {
	persist := newFakePersist(foreignNote(1, 2))
	persist.shares = []model.NoteShare{
		{NoteID: 1, GranteeID: 1, Permission: model.PermissionView},
	}
	eng := newTestEngine(t, persist, 1)

	if _, err := eng.UpdateContent(1, "t", "c"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestRestoreVersionGrowsHistory(t *testing.T) {
	n := mkNote(1, 0, false, testNow)
	n.Title = "v1"
	n.Content = "one"
	persist := newFakePersist(n)
	eng := newTestEngine(t, persist, 1)

	if _, err := eng.UpdateContent(1, "v2", "two"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	versions, _ := eng.Versions(1)
	if len(versions) != 1 {
		t.Fatalf("version count = %d, want 1", len(versions))
	}
	v1 := versions[0]

	res, err := eng.RestoreVersion(1, v1.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if res.Note.Title != "v1" || res.Note.Content != "one" {
		t.Errorf("restored note = %q/%q, want v1/one", res.Note.Title, res.Note.Content)
	}

	// The restore snapshotted the pre-restore state: history grew to 2,
	// newest holding "two".
	versions, _ = eng.Versions(1)
	if len(versions) != 2 {
		t.Fatalf("version count = %d, want 2", len(versions))
	}
	if versions[0].Content != "two" {
		t.Errorf("newest snapshot = %q, want pre-restore state", versions[0].Content)
	}
}

func TestRestoreVersionUnknown(t *testing.T) {
	persist := newFakePersist(mkNote(1, 0, false, testNow))
	eng := newTestEngine(t, persist, 1)

	if _, err := eng.RestoreVersion(1, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRestoreVersionWrongNote(t *testing.T) {
	a := mkNote(1, 0, false, testNow)
	b := mkNote(2, 0, false, testNow)
	persist := newFakePersist(a, b)
	eng := newTestEngine(t, persist, 1)

	if _, err := eng.UpdateContent(2, "b", "other note"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	versions, _ := eng.Versions(2)

	// A snapshot id from another note must not be restorable here.
	if _, err := eng.RestoreVersion(1, versions[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
