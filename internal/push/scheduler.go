package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hoffkamp/bureau/internal/model"
	"github.com/hoffkamp/bureau/internal/store"
)

// Scheduler periodically checks for due follow-up reminders and pushes them
// to the note owner's devices. Each reminder fires once; rescheduling the
// follow-up date arms it again.
type Scheduler struct {
	mu       sync.RWMutex
	service  *Service
	push     *store.PushStore
	notes    *store.NoteStore
	logger   *slog.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a follow-up reminder scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, noteStore *store.NoteStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		notes:    noteStore,
		logger:   logger.With("component", "push_scheduler"),
		interval: 60 * time.Second,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	due, err := s.notes.DueFollowUps(now)
	if err != nil {
		s.logger.Error("list due follow-ups", "error", err)
		return
	}

	for _, n := range due {
		s.remind(n)
	}
}

func (s *Scheduler) remind(n model.Note) {
	subs, err := s.push.ListByUser(n.OwnerID)
	if err != nil {
		s.logger.Error("list subscriptions", "user_id", n.OwnerID, "error", err)
		return
	}

	title := n.Title
	if title == "" {
		title = "Untitled note"
	}
	payload := Payload{
		Title: "Follow-up due",
		Body:  title,
		URL:   fmt.Sprintf("/notes/%d", n.ID),
		Tag:   fmt.Sprintf("follow-up-%d", n.ID),
	}

	for _, sub := range subs {
		if err := s.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := s.push.DeleteByEndpoint(sub.Endpoint); err != nil {
					s.logger.Error("drop expired subscription", "error", err)
				}
				continue
			}
			s.logger.Error("send follow-up reminder", "note_id", n.ID, "error", err)
		}
	}

	// Mark even when the user has no registered devices, so a later
	// subscription does not trigger a flood of stale reminders.
	if err := s.notes.MarkFollowUpNotified(n.ID); err != nil {
		s.logger.Error("mark follow-up notified", "note_id", n.ID, "error", err)
	}
}
