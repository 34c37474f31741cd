package notes

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/hoffkamp/bureau/internal/model"
)

const (
	defaultReconcileDelay = 2 * time.Second
	defaultCooldown       = 750 * time.Millisecond
	reconcileBaseBackoff  = 500 * time.Millisecond
	reconcileMaxRetries   = 4
)

// Result tags the outcome of an optimistic mutation. Exactly one of the
// flag combinations holds: Applied (committed or pending reconciliation),
// RolledBack (remote rejected, local state restored), or Noop (guard or
// same-tier drop absorbed the action).
type Result struct {
	Applied    bool       `json:"applied"`
	RolledBack bool       `json:"rolled_back"`
	Reconcile  bool       `json:"reconcile"`
	Noop       bool       `json:"noop"`
	Note       model.Note `json:"note"`
}

// Executor applies patches to the collection optimistically and reconciles
// them with the remote store.
type Executor struct {
	coll    *Collection
	persist Persistence
	logger  *slog.Logger

	guard          *singleFlight
	reconcileDelay time.Duration

	// afterFunc is swappable so tests can run reconciliation inline.
	afterFunc func(d time.Duration, fn func()) *time.Timer
	pending   sync.WaitGroup
}

func NewExecutor(coll *Collection, persist Persistence, logger *slog.Logger) *Executor {
	return &Executor{
		coll:           coll,
		persist:        persist,
		logger:         logger,
		guard:          newSingleFlight(defaultCooldown),
		reconcileDelay: defaultReconcileDelay,
		afterFunc:      time.AfterFunc,
	}
}

// Apply updates the collection synchronously with the patch, then issues
// the remote write on behalf of actorID.
//
// Zero rows affected means the remote rejected the write: the local patch
// is rolled back to its pre-mutation value and ErrPermissionDenied is
// returned. A failed request with no authoritative answer is NOT rolled
// back (the write may have landed); instead a short-delayed fetch adopts
// whatever the remote returns.
func (e *Executor) Apply(noteID, actorID int64, patch model.NotePatch) (Result, error) {
	if patch.IsZero() {
		return Result{Noop: true}, nil
	}

	prev, ok := e.coll.ApplyPatch(noteID, patch)
	if !ok {
		return Result{}, ErrNotFound
	}

	affected, err := e.persist.UpdateNote(noteID, actorID, patch)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrValidation) {
			e.rollback(noteID, patch, prev)
			return e.result(noteID, Result{RolledBack: true}), err
		}
		e.logger.Warn("remote write failed, scheduling reconciliation",
			"note_id", noteID, "error", err)
		e.scheduleReconcile(noteID)
		return e.result(noteID, Result{Applied: true, Reconcile: true}), nil
	}
	if affected == 0 {
		e.rollback(noteID, patch, prev)
		return e.result(noteID, Result{RolledBack: true}), ErrPermissionDenied
	}

	return e.result(noteID, Result{Applied: true}), nil
}

// ApplyExclusive is Apply behind the per-note single-flight guard, for
// mutations toggling a UI-exclusive mode. A second invocation while the
// first is Pending or CoolingDown is a no-op.
func (e *Executor) ApplyExclusive(noteID, actorID int64, patch model.NotePatch) (Result, error) {
	if !e.guard.tryAcquire(noteID) {
		return Result{Noop: true}, nil
	}
	defer e.guard.release(noteID)
	return e.Apply(noteID, actorID, patch)
}

func (e *Executor) rollback(noteID int64, patch model.NotePatch, prev model.Note) {
	e.coll.ApplyPatch(noteID, patch.Inverse(prev))
}

func (e *Executor) result(noteID int64, r Result) Result {
	if n, ok := e.coll.Get(noteID); ok {
		r.Note = n
	}
	return r
}

func (e *Executor) scheduleReconcile(noteID int64) {
	e.pending.Add(1)
	e.afterFunc(e.reconcileDelay, func() {
		defer e.pending.Done()
		e.reconcile(noteID)
	})
}

// reconcile fetches authoritative state for the note and adopts it,
// retrying with backoff while the remote stays unreachable.
func (e *Executor) reconcile(noteID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var note *model.Note
	backoff := retry.WithMaxRetries(reconcileMaxRetries, retry.NewFibonacci(reconcileBaseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		n, err := e.persist.NoteByID(noteID)
		if err != nil {
			return retry.RetryableError(err)
		}
		note = n
		return nil
	})
	if err != nil {
		e.logger.Error("reconciliation fetch failed, keeping optimistic state",
			"note_id", noteID, "error", err)
		return
	}

	if note == nil {
		e.coll.Remove(noteID)
		return
	}
	e.coll.Set(*note)
}

// Flush blocks until all scheduled reconciliations have run. Used by
// tests and graceful shutdown.
func (e *Executor) Flush() {
	e.pending.Wait()
}
