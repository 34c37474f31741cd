package model

import "time"

// NotePatch is a partial update to a note. Non-nullable columns use a nil
// pointer to mean "unchanged". Nullable columns carry an explicit Set flag
// so that clearing a value is distinguishable from leaving it alone.
type NotePatch struct {
	Title         *string
	Content       *string
	Pinned        *bool
	PriorityLevel *int
	ColorFullCard *bool
	Archived      *bool

	SetColor bool
	Color    *string

	SetFollowUp bool
	FollowUpAt  *time.Time

	SetDeleted bool
	DeletedAt  *time.Time
	PurgeAfter *time.Time

	ClearTaskLink     bool
	ClearDecisionLink bool
	ClearMeetingLink  bool
}

// IsZero reports whether the patch changes nothing.
func (p NotePatch) IsZero() bool {
	return p == NotePatch{}
}

// ContentOnly reports whether the patch touches only title and content.
// Content-only patches may be applied by edit-permission grantees;
// everything else is reserved for the note's owner.
func (p NotePatch) ContentOnly() bool {
	q := p
	q.Title = nil
	q.Content = nil
	return q == NotePatch{} && (p.Title != nil || p.Content != nil)
}

// Apply writes the patch onto the note in place.
func (p NotePatch) Apply(n *Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Pinned != nil {
		n.Pinned = *p.Pinned
	}
	if p.PriorityLevel != nil {
		n.PriorityLevel = *p.PriorityLevel
	}
	if p.ColorFullCard != nil {
		n.ColorFullCard = *p.ColorFullCard
	}
	if p.Archived != nil {
		n.Archived = *p.Archived
	}
	if p.SetColor {
		n.Color = p.Color
	}
	if p.SetFollowUp {
		n.FollowUpAt = p.FollowUpAt
	}
	if p.SetDeleted {
		n.DeletedAt = p.DeletedAt
		n.PurgeAfter = p.PurgeAfter
	}
	if p.ClearTaskLink {
		n.LinkedTaskID = nil
	}
	if p.ClearDecisionLink {
		n.LinkedDecisionID = nil
	}
	if p.ClearMeetingLink {
		n.LinkedMeetingID = nil
	}
}

// Inverse returns a patch that undoes this patch, given the note state
// captured before it was applied. Only the fields this patch touched are
// present in the inverse, so concurrent changes to other fields survive a
// rollback.
func (p NotePatch) Inverse(prev Note) NotePatch {
	var inv NotePatch
	if p.Title != nil {
		t := prev.Title
		inv.Title = &t
	}
	if p.Content != nil {
		c := prev.Content
		inv.Content = &c
	}
	if p.Pinned != nil {
		v := prev.Pinned
		inv.Pinned = &v
	}
	if p.PriorityLevel != nil {
		v := prev.PriorityLevel
		inv.PriorityLevel = &v
	}
	if p.ColorFullCard != nil {
		v := prev.ColorFullCard
		inv.ColorFullCard = &v
	}
	if p.Archived != nil {
		v := prev.Archived
		inv.Archived = &v
	}
	if p.SetColor {
		inv.SetColor = true
		inv.Color = prev.Color
	}
	if p.SetFollowUp {
		inv.SetFollowUp = true
		inv.FollowUpAt = prev.FollowUpAt
	}
	if p.SetDeleted {
		inv.SetDeleted = true
		inv.DeletedAt = prev.DeletedAt
		inv.PurgeAfter = prev.PurgeAfter
	}
	return inv
}
