package model

import (
	"strings"
	"time"
)

// TabFilter selects messages by read/status dimension. Exactly one tab is
// active at a time.
type TabFilter string

const (
	TabAll      TabFilter = "all"
	TabUnread   TabFilter = "unread"
	TabRead     TabFilter = "read"
	TabReplied  TabFilter = "replied"
	TabArchived TabFilter = "archived"
)

// Valid reports whether t is a known tab.
func (t TabFilter) Valid() bool {
	switch t {
	case TabAll, TabUnread, TabRead, TabReplied, TabArchived:
		return true
	}
	return false
}

// DateFilter constrains messages by creation time relative to "now".
type DateFilter string

const (
	DateAll       DateFilter = "all"
	DateToday     DateFilter = "today"
	DateYesterday DateFilter = "yesterday"
	DateThisWeek  DateFilter = "thisWeek"
	DateThisMonth DateFilter = "thisMonth"
)

// Valid reports whether d is a known date filter.
func (d DateFilter) Valid() bool {
	switch d {
	case DateAll, DateToday, DateYesterday, DateThisWeek, DateThisMonth:
		return true
	}
	return false
}

// MessageFilter is the active inbox view. All four dimensions combine with
// logical AND. Zero values mean "no constraint" on that dimension.
type MessageFilter struct {
	Tab      TabFilter
	Priority MessagePriority
	Date     DateFilter
	Search   string
}

// Matches reports whether m is included in the filtered view at time now.
func (f MessageFilter) Matches(m *Message, now time.Time) bool {
	switch f.Tab {
	case "", TabAll:
	case TabUnread:
		if m.IsRead {
			return false
		}
	case TabRead:
		if !m.IsRead {
			return false
		}
	case TabReplied:
		if m.Status != StatusReplied {
			return false
		}
	case TabArchived:
		if m.Status != StatusArchived {
			return false
		}
	default:
		return false
	}

	if f.Priority != "" && f.Priority != "all" && m.Priority != f.Priority {
		return false
	}

	if !f.matchesDate(m.CreatedAt, now) {
		return false
	}

	if q := strings.TrimSpace(f.Search); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(m.Name), q) &&
			!strings.Contains(strings.ToLower(m.Email), q) &&
			!strings.Contains(strings.ToLower(m.Subject), q) &&
			!strings.Contains(strings.ToLower(m.Body), q) {
			return false
		}
	}
	return true
}

func (f MessageFilter) matchesDate(created, now time.Time) bool {
	switch f.Date {
	case "", DateAll:
		return true
	case DateToday:
		return sameDay(created, now)
	case DateYesterday:
		return sameDay(created, now.AddDate(0, 0, -1))
	case DateThisWeek:
		return !created.Before(startOfDay(now).AddDate(0, 0, -7))
	case DateThisMonth:
		return !created.Before(startOfMonth(now))
	}
	return false
}

// Filter returns the subset of msgs matching f, preserving order.
func (f MessageFilter) Filter(msgs []*Message, now time.Time) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if f.Matches(m, now) {
			out = append(out, m)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	lt := t.Local()
	y, m, d := lt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, lt.Location())
}

func startOfMonth(t time.Time) time.Time {
	lt := t.Local()
	y, m, _ := lt.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, lt.Location())
}
