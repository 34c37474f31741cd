package notes

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hoffkamp/bureau/internal/model"
)

// Kinds of external work items a note can link to.
const (
	LinkTask     = "task"
	LinkDecision = "decision"
	LinkMeeting  = "meeting"
)

// How long a soft-deleted note lingers before permanent purge.
const purgeWindow = 30 * 24 * time.Hour

// Engine is the note organization and synchronization engine for one
// acting user. It holds the visible collection, applies every mutation
// optimistically, and reconciles with the remote store.
type Engine struct {
	userID  int64
	prefs   model.Preferences
	coll    *Collection
	exec    *Executor
	persist Persistence

	resolver *SharingResolver
	versions *VersionManager

	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(userID int64, prefs model.Preferences, persist Persistence, logger *slog.Logger) *Engine {
	coll := NewCollection()
	return &Engine{
		userID:   userID,
		prefs:    prefs,
		coll:     coll,
		exec:     NewExecutor(coll, persist, logger),
		persist:  persist,
		resolver: NewSharingResolver(persist, userID),
		versions: NewVersionManager(persist),
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe registers a listener notified after every collection change.
func (e *Engine) Subscribe(fn func()) func() {
	return e.coll.Subscribe(fn)
}

// Reload resolves the visible set (sharing overlay included) and replaces
// the collection wholesale. This is the coarse invalidation path used at
// startup and on remote change notifications.
func (e *Engine) Reload() error {
	visible, err := e.resolver.Visible(e.prefs.ShowArchived)
	if err != nil {
		return fmt.Errorf("reload visible set: %w", err)
	}
	e.coll.Replace(visible)
	return nil
}

// HandleRemoteChange reacts to a change notification keyed by owner id.
// Changes to the acting user's own notes or to any owner currently
// contributing to the visible set trigger a full reload.
func (e *Engine) HandleRemoteChange(ownerID int64) {
	if ownerID != e.userID && !e.watchesOwner(ownerID) {
		return
	}
	if err := e.Reload(); err != nil {
		e.logger.Error("reload after remote change", "owner_id", ownerID, "error", err)
	}
}

func (e *Engine) watchesOwner(ownerID int64) bool {
	for _, n := range e.coll.All() {
		if n.OwnerID == ownerID {
			return true
		}
	}
	return false
}

// Groups returns the current grouped structure for rendering. Grouping is
// always recomputed from canonical note fields, never cached.
func (e *Engine) Groups() Grouped {
	return BuildGroups(e.coll.All(), e.now())
}

// Notes returns a snapshot of the visible collection.
func (e *Engine) Notes() []model.Note {
	return e.coll.All()
}

// Note returns a single visible note.
func (e *Engine) Note(id int64) (model.Note, bool) {
	return e.coll.Get(id)
}

// requireOwned rejects structural mutations on notes the acting user does
// not own before any optimistic write happens.
func (e *Engine) requireOwned(noteID int64) (model.Note, error) {
	n, ok := e.coll.Get(noteID)
	if !ok {
		return model.Note{}, ErrNotFound
	}
	if n.OwnerID != e.userID {
		return model.Note{}, ErrPermissionDenied
	}
	return n, nil
}

// SetPriority assigns the note to a priority tier. Level 0 clears the
// priority.
func (e *Engine) SetPriority(noteID int64, level int) (Result, error) {
	if level < 0 {
		return Result{}, fmt.Errorf("%w: priority level must be >= 0", ErrValidation)
	}
	if _, err := e.requireOwned(noteID); err != nil {
		return Result{}, err
	}
	return e.exec.Apply(noteID, e.userID, model.NotePatch{PriorityLevel: &level})
}

// SetFollowUp schedules (or clears, with nil) the note's follow-up date.
func (e *Engine) SetFollowUp(noteID int64, at *time.Time) (Result, error) {
	if _, err := e.requireOwned(noteID); err != nil {
		return Result{}, err
	}
	return e.exec.Apply(noteID, e.userID, model.NotePatch{SetFollowUp: true, FollowUpAt: at})
}

// SetPinned pins or unpins the note within its group.
func (e *Engine) SetPinned(noteID int64, pinned bool) (Result, error) {
	if _, err := e.requireOwned(noteID); err != nil {
		return Result{}, err
	}
	return e.exec.Apply(noteID, e.userID, model.NotePatch{Pinned: &pinned})
}

// SetColor sets or clears the note's color tag.
func (e *Engine) SetColor(noteID int64, color *string) (Result, error) {
	if _, err := e.requireOwned(noteID); err != nil {
		return Result{}, err
	}
	return e.exec.Apply(noteID, e.userID, model.NotePatch{SetColor: true, Color: color})
}

// SetColorMode toggles whether the color tints the whole card or only an
// edge. The toggle is UI-exclusive, so it runs behind the per-note
// single-flight guard: rapid repeated input collapses to one write.
func (e *Engine) SetColorMode(noteID int64, fullCard bool) (Result, error) {
	if _, err := e.requireOwned(noteID); err != nil {
		return Result{}, err
	}
	return e.exec.ApplyExclusive(noteID, e.userID, model.NotePatch{ColorFullCard: &fullCard})
}

// Archive moves the note out of the organizer without deleting it.
func (e *Engine) Archive(noteID int64, archived bool) (Result, error) {
	if _, err := e.requireOwned(noteID); err != nil {
		return Result{}, err
	}
	return e.exec.Apply(noteID, e.userID, model.NotePatch{Archived: &archived})
}

// SoftDelete marks the note deleted and schedules it for permanent purge.
// The note leaves every group immediately but stays recoverable until the
// purge deadline.
func (e *Engine) SoftDelete(noteID int64) (Result, error) {
	if _, err := e.requireOwned(noteID); err != nil {
		return Result{}, err
	}
	now := e.now().UTC()
	purge := now.Add(purgeWindow)
	return e.exec.Apply(noteID, e.userID, model.NotePatch{
		SetDeleted: true,
		DeletedAt:  &now,
		PurgeAfter: &purge,
	})
}

// UpdateContent edits the note's title and content, snapshotting the
// current state first so the edit can be undone from history. Grantees
// holding an edit share may edit content; everything else is owner-only.
func (e *Engine) UpdateContent(noteID int64, title, content string) (Result, error) {
	if strings.TrimSpace(title) == "" && strings.TrimSpace(content) == "" {
		return Result{}, fmt.Errorf("%w: note needs a title or content", ErrValidation)
	}

	n, ok := e.coll.Get(noteID)
	if !ok {
		return Result{}, ErrNotFound
	}
	if n.OwnerID != e.userID && !n.CanEdit {
		return Result{}, ErrPermissionDenied
	}

	if err := e.versions.Snapshot(n, e.userID); err != nil {
		return Result{}, err
	}
	return e.exec.Apply(noteID, e.userID, model.NotePatch{Title: &title, Content: &content})
}

// Versions lists the note's snapshots, newest first.
func (e *Engine) Versions(noteID int64) ([]model.NoteVersion, error) {
	return e.versions.List(noteID)
}

// RestoreVersion overwrites the note's title and content with a
// historical snapshot. The pre-restore state is snapshotted first, so
// restore is never destructive and history only grows.
func (e *Engine) RestoreVersion(noteID, versionID int64) (Result, error) {
	n, ok := e.coll.Get(noteID)
	if !ok {
		return Result{}, ErrNotFound
	}
	if n.OwnerID != e.userID && !n.CanEdit {
		return Result{}, ErrPermissionDenied
	}

	v, err := e.versions.Find(noteID, versionID)
	if err != nil {
		return Result{}, err
	}

	if err := e.versions.Snapshot(n, e.userID); err != nil {
		return Result{}, err
	}
	return e.exec.Apply(noteID, e.userID, model.NotePatch{Title: &v.Title, Content: &v.Content})
}

// ClearDeadLink removes a link whose target work item no longer exists.
// The retained info string keeps the card's context; the cleanup is
// silent because a vanished link target is not the user's error.
func (e *Engine) ClearDeadLink(noteID int64, kind string) {
	var patch model.NotePatch
	switch kind {
	case LinkTask:
		patch.ClearTaskLink = true
	case LinkDecision:
		patch.ClearDecisionLink = true
	case LinkMeeting:
		patch.ClearMeetingLink = true
	default:
		return
	}
	if _, err := e.exec.Apply(noteID, e.userID, patch); err != nil {
		e.logger.Warn("dead link cleanup failed", "note_id", noteID, "kind", kind, "error", err)
	}
}

// Flush waits for scheduled reconciliations. Used on teardown and in tests.
func (e *Engine) Flush() {
	e.exec.Flush()
}

// Preferences returns the view preferences the engine was built with.
func (e *Engine) Preferences() model.Preferences {
	return e.prefs
}
