package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foliolab/folio-backend/internal/events"
	"github.com/foliolab/folio-backend/internal/model"
	"github.com/foliolab/folio-backend/internal/store"
)

// Triage runs the contact-message inbox workflow: filtered views, read-state
// tracking, reply capture, and single or bulk status transitions. The engine
// holds no cached view; every read goes to the store, so aggregate counts
// always reflect server state after a mutation.
type Triage struct {
	store store.Store
	bus   *events.Bus
	now   func() time.Time
}

func NewTriage(s store.Store, bus *events.Bus) *Triage {
	return &Triage{store: s, bus: bus, now: time.Now}
}

// Inbox is the triage view handed to the presentation layer: the filtered
// message list plus aggregates computed over the full unfiltered set.
type Inbox struct {
	Messages []*model.Message   `json:"messages"`
	Stats    model.MessageStats `json:"stats"`
}

// List returns the filtered view and filter-independent aggregates.
func (t *Triage) List(ctx context.Context, f model.MessageFilter) (*Inbox, error) {
	all, err := t.store.Messages().List(ctx)
	if err != nil {
		return nil, err
	}
	now := t.now()
	out := &Inbox{
		Messages: f.Filter(all, now),
		Stats:    model.ComputeStats(all, now),
	}
	if out.Messages == nil {
		out.Messages = []*model.Message{}
	}
	return out, nil
}

// Submit stores an inbound contact-form submission. Status and read state are
// forced to the initial unread state regardless of what the caller sent.
func (t *Triage) Submit(ctx context.Context, m *model.Message) (*model.Message, error) {
	if m.Priority != "" && !m.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", model.ErrValidation, m.Priority)
	}
	in := *m
	in.Status = model.StatusUnread
	in.IsRead = false
	in.ReadAt, in.RepliedAt, in.ArchivedAt = nil, nil, nil
	out, err := t.store.Messages().Create(ctx, &in)
	if err != nil {
		return nil, err
	}
	t.bus.Publish(events.Event{Kind: events.KindMessageChanged, ID: out.ID})
	return out, nil
}

// Get returns a single message without side effects.
func (t *Triage) Get(ctx context.Context, id int64) (*model.Message, error) {
	return t.store.Messages().Get(ctx, id)
}

// Open is the detail-view read: the first open of an unread message fires the
// read transition exactly once; later opens return the message untouched.
func (t *Triage) Open(ctx context.Context, id int64) (*model.Message, error) {
	msg, err := t.store.Messages().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.IsRead {
		return msg, nil
	}
	return t.Transition(ctx, id, model.StatusRead, "")
}

// Transition moves a message to read, replied or archived. The corresponding
// timestamp is set once, on the first entry into that status; a non-empty
// reply overwrites adminNotes. On failure the message's prior state stands;
// nothing is applied optimistically.
func (t *Triage) Transition(ctx context.Context, id int64, target model.MessageStatus, reply string) (*model.Message, error) {
	patch, err := t.transitionPatch(target, reply)
	if err != nil {
		return nil, err
	}
	msg, err := t.store.Messages().Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	t.bus.Publish(events.Event{Kind: events.KindMessageChanged, ID: id})
	return msg, nil
}

// MarkUnread flips IsRead off without touching Status: a replied message
// stays replied. ReadAt is set-once and is deliberately left in place.
func (t *Triage) MarkUnread(ctx context.Context, id int64) (*model.Message, error) {
	unread := false
	msg, err := t.store.Messages().Update(ctx, id, model.MessagePatch{IsRead: &unread})
	if err != nil {
		return nil, err
	}
	t.bus.Publish(events.Event{Kind: events.KindMessageChanged, ID: id})
	return msg, nil
}

// SetPriority is the explicit admin edit, the only path that changes priority
// after creation.
func (t *Triage) SetPriority(ctx context.Context, id int64, p model.MessagePriority) (*model.Message, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", model.ErrValidation, p)
	}
	msg, err := t.store.Messages().Update(ctx, id, model.MessagePatch{Priority: &p})
	if err != nil {
		return nil, err
	}
	t.bus.Publish(events.Event{Kind: events.KindMessageChanged, ID: id})
	return msg, nil
}

// Delete permanently removes a message. Terminal and irreversible; on failure
// the caller keeps the message in its view.
func (t *Triage) Delete(ctx context.Context, id int64) error {
	if err := t.store.Messages().Delete(ctx, id); err != nil {
		return err
	}
	t.bus.Publish(events.Event{Kind: events.KindMessageDeleted, ID: id})
	return nil
}

// BulkError pairs one id of a bulk batch with its failure.
type BulkError struct {
	ID  int64
	Err error
}

func (e BulkError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    int64  `json:"id"`
		Error string `json:"error"`
	}{e.ID, e.Err.Error()})
}

// BulkResult reports which ids actually changed and which failed. Callers
// must inspect both: presentation is expected to render "N of M succeeded",
// not a bare boolean.
type BulkResult struct {
	Changed []int64     `json:"changed"`
	Errors  []BulkError `json:"errors"`
}

// BulkTransition applies one triage action to every id in the batch. Ids are
// attempted as one logical batch with per-id outcomes: a missing or rejected
// id never aborts the remainder. The error return is reserved for an invalid
// action; per-id failures land in the result.
func (t *Triage) BulkTransition(ctx context.Context, ids []int64, action model.BulkAction) (*BulkResult, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown bulk action %q", model.ErrValidation, action)
	}
	ids = dedupe(ids)
	res := &BulkResult{Changed: []int64{}}
	if len(ids) == 0 {
		return res, nil
	}

	var (
		changed []int64
		err     error
	)
	if action == model.BulkDelete {
		changed, err = t.store.Messages().BulkDelete(ctx, ids)
	} else {
		var msgs []*model.Message
		msgs, err = t.store.Messages().BulkUpdate(ctx, ids, t.bulkPatch(action))
		for _, m := range msgs {
			changed = append(changed, m.ID)
		}
	}
	if err != nil {
		// The whole batch statement failed; report the same error per id.
		for _, id := range ids {
			res.Errors = append(res.Errors, BulkError{ID: id, Err: err})
		}
		return res, nil
	}

	present := make(map[int64]bool, len(changed))
	for _, id := range changed {
		present[id] = true
	}
	kind := events.KindMessageChanged
	if action == model.BulkDelete {
		kind = events.KindMessageDeleted
	}
	for _, id := range ids {
		if present[id] {
			res.Changed = append(res.Changed, id)
			t.bus.Publish(events.Event{Kind: kind, ID: id})
			continue
		}
		res.Errors = append(res.Errors, BulkError{ID: id, Err: fmt.Errorf("message %d: %w", id, model.ErrNotFound)})
	}
	return res, nil
}

func (t *Triage) transitionPatch(target model.MessageStatus, reply string) (model.MessagePatch, error) {
	now := t.now().UTC()
	status := target
	switch target {
	case model.StatusRead:
		read := true
		return model.MessagePatch{Status: &status, IsRead: &read, ReadAt: &now}, nil
	case model.StatusReplied:
		p := model.MessagePatch{Status: &status, RepliedAt: &now}
		if reply != "" {
			p.AdminNotes = &reply
		}
		return p, nil
	case model.StatusArchived:
		return model.MessagePatch{Status: &status, ArchivedAt: &now}, nil
	}
	// unread is reachable only via MarkUnread, which leaves status alone.
	return model.MessagePatch{}, fmt.Errorf("%w: invalid transition target %q", model.ErrValidation, target)
}

func (t *Triage) bulkPatch(action model.BulkAction) model.MessagePatch {
	now := t.now().UTC()
	yes, no := true, false
	switch action {
	case model.BulkMarkRead:
		status := model.StatusRead
		return model.MessagePatch{Status: &status, IsRead: &yes, ReadAt: &now}
	case model.BulkMarkUnread:
		return model.MessagePatch{IsRead: &no}
	case model.BulkArchive:
		status := model.StatusArchived
		return model.MessagePatch{Status: &status, ArchivedAt: &now}
	}
	return model.MessagePatch{}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
