package model

import "time"

type Note struct {
	ID            int64      `json:"id"`
	OwnerID       int64      `json:"owner_id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Color         *string    `json:"color"`
	ColorFullCard bool       `json:"color_full_card"`
	Pinned        bool       `json:"pinned"`
	PriorityLevel int        `json:"priority_level"`
	FollowUpAt    *time.Time `json:"follow_up_at"`
	Archived      bool       `json:"archived"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	PurgeAfter    *time.Time `json:"purge_after,omitempty"`

	// Links to external work items. The info string is captured when the
	// link is created and survives deletion of the link target.
	LinkedTaskID       *int64  `json:"linked_task_id"`
	LinkedTaskInfo     *string `json:"linked_task_info"`
	LinkedDecisionID   *int64  `json:"linked_decision_id"`
	LinkedDecisionInfo *string `json:"linked_decision_info"`
	LinkedMeetingID    *int64  `json:"linked_meeting_id"`
	LinkedMeetingInfo  *string `json:"linked_meeting_info"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Derived fields, populated by the sharing resolver. Never persisted.
	IsShared   bool      `json:"is_shared"`
	CanEdit    bool      `json:"can_edit"`
	Owner      *Profile  `json:"owner,omitempty"`
	ShareCount int       `json:"share_count"`
	SharedWith []Profile `json:"shared_with,omitempty"`
}

// NoteVersion is an immutable snapshot of a note's title and content,
// taken before every content edit and before a restore.
type NoteVersion struct {
	ID        int64     `json:"id"`
	NoteID    int64     `json:"note_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
