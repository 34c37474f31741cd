package notes

import (
	"sort"
	"time"

	"github.com/hoffkamp/bureau/internal/model"
)

// PriorityGroup is one rendered tier of notes. Level 0 is "no priority".
type PriorityGroup struct {
	Level int          `json:"level"`
	Notes []model.Note `json:"notes"`
}

// Grouped is the full ordered structure handed to the rendering layer.
type Grouped struct {
	Priority  []PriorityGroup `json:"priority_groups"`
	Due       []model.Note    `json:"due_follow_ups"`
	Scheduled []model.Note    `json:"scheduled_follow_ups"`
}

// BuildGroups partitions the visible note set into due follow-ups,
// scheduled follow-ups, and priority tiers. A note with a follow-up date
// is grouped by follow-up regardless of its priority level, so no note
// ever appears in two groups. Archived and soft-deleted notes are skipped
// entirely.
func BuildGroups(visible []model.Note, now time.Time) Grouped {
	var g Grouped
	var unscheduled []model.Note
	eod := endOfDay(now)

	for _, n := range visible {
		if n.Archived || n.DeletedAt != nil {
			continue
		}
		switch {
		case n.FollowUpAt == nil:
			unscheduled = append(unscheduled, n)
		case !n.FollowUpAt.After(eod):
			g.Due = append(g.Due, n)
		default:
			g.Scheduled = append(g.Scheduled, n)
		}
	}

	sortFollowUps(g.Due)
	sortFollowUps(g.Scheduled)

	byLevel := make(map[int][]model.Note)
	maxLevel := 0
	for _, n := range unscheduled {
		byLevel[n.PriorityLevel] = append(byLevel[n.PriorityLevel], n)
		if n.PriorityLevel > maxLevel {
			maxLevel = n.PriorityLevel
		}
	}

	// Highest tier first, empty tiers omitted, "no priority" last.
	for level := maxLevel; level >= 1; level-- {
		ns := byLevel[level]
		if len(ns) == 0 {
			continue
		}
		sortByPinnedThenNewest(ns)
		g.Priority = append(g.Priority, PriorityGroup{Level: level, Notes: ns})
	}
	if ns := byLevel[0]; len(ns) > 0 {
		sortByPinnedThenNewest(ns)
		g.Priority = append(g.Priority, PriorityGroup{Level: 0, Notes: ns})
	}

	return g
}

// endOfDay returns the last instant of the calendar day containing t,
// in t's location. Follow-ups up to and including today count as due.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func sortByPinnedThenNewest(ns []model.Note) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].Pinned != ns[j].Pinned {
			return ns[i].Pinned
		}
		return ns[i].CreatedAt.After(ns[j].CreatedAt)
	})
}

func sortFollowUps(ns []model.Note) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].Pinned != ns[j].Pinned {
			return ns[i].Pinned
		}
		if !ns[i].FollowUpAt.Equal(*ns[j].FollowUpAt) {
			return ns[i].FollowUpAt.Before(*ns[j].FollowUpAt)
		}
		return ns[i].CreatedAt.After(ns[j].CreatedAt)
	})
}
