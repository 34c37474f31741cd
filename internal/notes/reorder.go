package notes

import (
	"fmt"
	"strconv"
	"strings"
)

// Group ids as used by the rendering layer and drag events.
const (
	GroupDue       = "due"
	GroupScheduled = "scheduled"
)

// PriorityGroupID returns the drag group id for a priority tier.
func PriorityGroupID(level int) string {
	return fmt.Sprintf("priority-%d", level)
}

// parsePriorityGroup extracts the numeric tier from a "priority-N" group
// id. Follow-up groups are not valid drop targets for tier reassignment.
func parsePriorityGroup(groupID string) (int, error) {
	rest, ok := strings.CutPrefix(groupID, "priority-")
	if !ok {
		return 0, fmt.Errorf("%w: group %q is not a priority tier", ErrValidation, groupID)
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 0 {
		return 0, fmt.Errorf("%w: invalid priority tier %q", ErrValidation, groupID)
	}
	return level, nil
}

// Reorder interprets a drag-end event as a priority-tier reassignment.
//
// Dropping a note on its own tier changes nothing: within-tier order is
// date-derived, not manual, and the caller gets a Noop result to surface
// that as an informational message. Dragging a note the acting user does
// not own is rejected before any optimistic write.
func (e *Engine) Reorder(noteID int64, fromGroup, toGroup string) (Result, error) {
	n, ok := e.coll.Get(noteID)
	if !ok {
		return Result{}, ErrNotFound
	}
	if n.OwnerID != e.userID {
		return Result{}, fmt.Errorf("%w: only own notes can be reordered", ErrPermissionDenied)
	}
	if fromGroup == toGroup {
		return Result{Noop: true, Note: n}, nil
	}

	level, err := parsePriorityGroup(toGroup)
	if err != nil {
		return Result{}, err
	}
	return e.SetPriority(noteID, level)
}
