package notes

import (
	"log/slog"
	"testing"
	"time"

	"github.com/hoffkamp/bureau/internal/model"
)

func newTestManager(persist *fakePersist) (*Manager, *int) {
	builds := 0
	m := NewManager(func(userID int64) (*Engine, error) {
		builds++
		eng := NewEngine(userID, model.Preferences{}, persist, slog.New(slog.DiscardHandler))
		eng.now = func() time.Time { return testNow }
		eng.exec.afterFunc = runImmediately
		eng.exec.reconcileDelay = 0
		return eng, nil
	})
	return m, &builds
}

func TestManagerBuildsLazilyAndCaches(t *testing.T) {
	persist := newFakePersist(mkNote(1, 0, false, testNow))
	m, builds := newTestManager(persist)

	eng, err := m.Engine(1)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if len(eng.Notes()) != 1 {
		t.Errorf("notes = %d, want 1 after initial load", len(eng.Notes()))
	}

	again, err := m.Engine(1)
	if err != nil {
		t.Fatalf("engine again: %v", err)
	}
	if again != eng {
		t.Error("second access built a new engine")
	}
	if *builds != 1 {
		t.Errorf("factory ran %d times, want 1", *builds)
	}
}

func TestManagerFailedLoadNotCached(t *testing.T) {
	persist := newFakePersist(mkNote(1, 0, false, testNow))
	persist.listErr = errNetwork
	m, _ := newTestManager(persist)

	if _, err := m.Engine(1); err == nil {
		t.Fatal("expected error while store unreachable")
	}

	persist.listErr = nil
	eng, err := m.Engine(1)
	if err != nil {
		t.Fatalf("engine after recovery: %v", err)
	}
	if len(eng.Notes()) != 1 {
		t.Errorf("notes = %d, want 1 after recovery", len(eng.Notes()))
	}
}

func TestManagerNotifyChangeSkipsActor(t *testing.T) {
	persist := newFakePersist(model.Note{ID: 1, OwnerID: 1, Title: "draft", CreatedAt: testNow})
	persist.granters[2] = []int64{1}
	m, _ := newTestManager(persist)

	owner, err := m.Engine(1)
	if err != nil {
		t.Fatalf("owner engine: %v", err)
	}
	watcher, err := m.Engine(2)
	if err != nil {
		t.Fatalf("watcher engine: %v", err)
	}

	persist.mu.Lock()
	n := persist.notes[1]
	n.Title = "final"
	persist.notes[1] = n
	persist.mu.Unlock()

	m.NotifyChange(1, 1)

	if got, _ := watcher.Note(1); got.Title != "final" {
		t.Errorf("watcher title = %q, want reloaded %q", got.Title, "final")
	}
	// The actor keeps its local (optimistic) view untouched.
	if got, _ := owner.Note(1); got.Title != "draft" {
		t.Errorf("actor title = %q, want untouched %q", got.Title, "draft")
	}
}

func TestManagerDropForcesRebuild(t *testing.T) {
	persist := newFakePersist(mkNote(1, 0, false, testNow))
	m, builds := newTestManager(persist)

	if _, err := m.Engine(1); err != nil {
		t.Fatalf("engine: %v", err)
	}
	m.Drop(1)
	if _, err := m.Engine(1); err != nil {
		t.Fatalf("engine after drop: %v", err)
	}
	if *builds != 2 {
		t.Errorf("factory ran %d times, want 2 after drop", *builds)
	}
}
