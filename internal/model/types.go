package model

import "time"

// Fields is the attribute set of a record. The schema is entity-specific
// (project, skill entry, social link, ...) and opaque to the reconciler;
// values round-trip through the store's JSON column untouched except for
// store-side normalization.
type Fields map[string]interface{}

// Clone returns a shallow copy of the field set.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Record is a single entity in a reconciled collection.
type Record struct {
	Identity  Identity   `json:"id"`
	Fields    Fields     `json:"fields"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// MessageStatus is the triage lifecycle state of a contact message.
type MessageStatus string

const (
	StatusUnread   MessageStatus = "unread"
	StatusRead     MessageStatus = "read"
	StatusReplied  MessageStatus = "replied"
	StatusArchived MessageStatus = "archived"
)

// Valid reports whether s is a known status.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusUnread, StatusRead, StatusReplied, StatusArchived:
		return true
	}
	return false
}

// MessagePriority is set at creation and mutable only via explicit admin edit.
type MessagePriority string

const (
	PriorityLow    MessagePriority = "low"
	PriorityNormal MessagePriority = "normal"
	PriorityHigh   MessagePriority = "high"
	PriorityUrgent MessagePriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p MessagePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Message is an inbound contact-form submission under triage.
//
// Status and IsRead are tracked independently: a message can be replied and
// read at the same time, and markUnread flips IsRead without touching Status.
// ReadAt, RepliedAt and ArchivedAt are set once, on the first transition into
// the corresponding status, and never cleared.
type Message struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Subject    string          `json:"subject"`
	Body       string          `json:"body"`
	Status     MessageStatus   `json:"status"`
	IsRead     bool            `json:"isRead"`
	Priority   MessagePriority `json:"priority"`
	AdminNotes *string         `json:"adminNotes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	ReadAt     *time.Time      `json:"readAt,omitempty"`
	RepliedAt  *time.Time      `json:"repliedAt,omitempty"`
	ArchivedAt *time.Time      `json:"archivedAt,omitempty"`
}

// MessagePatch describes a partial update to a message. Nil fields are left
// unchanged. The timestamp fields are applied set-once by the store: an
// already-populated read_at/replied_at/archived_at column wins over the patch.
type MessagePatch struct {
	Status     *MessageStatus
	IsRead     *bool
	Priority   *MessagePriority
	AdminNotes *string
	ReadAt     *time.Time
	RepliedAt  *time.Time
	ArchivedAt *time.Time
}

// IsZero reports whether the patch changes nothing.
func (p MessagePatch) IsZero() bool {
	return p.Status == nil && p.IsRead == nil && p.Priority == nil &&
		p.AdminNotes == nil && p.ReadAt == nil && p.RepliedAt == nil && p.ArchivedAt == nil
}

// BulkAction is a multi-select triage action applied per-id.
type BulkAction string

const (
	BulkMarkRead   BulkAction = "markRead"
	BulkMarkUnread BulkAction = "markUnread"
	BulkArchive    BulkAction = "archive"
	BulkDelete     BulkAction = "delete"
)

// Valid reports whether a is a known bulk action.
func (a BulkAction) Valid() bool {
	switch a {
	case BulkMarkRead, BulkMarkUnread, BulkArchive, BulkDelete:
		return true
	}
	return false
}

// MessageStats are read-only aggregates recomputed on every fetch over the
// full unfiltered message set, never over the filtered view.
type MessageStats struct {
	Total    int `json:"total"`
	Unread   int `json:"unread"`
	Today    int `json:"today"`
	ThisWeek int `json:"thisWeek"`
}

// ComputeStats projects aggregates from the full message set.
func ComputeStats(msgs []*Message, now time.Time) MessageStats {
	var st MessageStats
	st.Total = len(msgs)
	weekCutoff := now.AddDate(0, 0, -7)
	for _, m := range msgs {
		if !m.IsRead {
			st.Unread++
		}
		if sameDay(m.CreatedAt, now) {
			st.Today++
		}
		if m.CreatedAt.After(weekCutoff) {
			st.ThisWeek++
		}
	}
	return st
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
