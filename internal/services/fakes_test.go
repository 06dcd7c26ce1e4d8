package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/foliolab/folio-backend/internal/model"
	"github.com/foliolab/folio-backend/internal/store"
)

// --- Fakes ---

// fakeStore is an in-memory store.Store. Reconcile dispatches writes
// concurrently, so all mutation paths take the mutex.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64

	records  map[string][]*model.Record
	messages map[int64]*model.Message

	// failCreate rejects record creates whose fields contain this key.
	failCreate string
	// failAll makes every message bulk statement fail outright.
	failAll bool

	createCalls int
	updateCalls int
	deleteCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:   100,
		records:  map[string][]*model.Record{},
		messages: map[int64]*model.Message{},
	}
}

func (f *fakeStore) Records() store.Records   { return &fakeRecords{f} }
func (f *fakeStore) Messages() store.Messages { return &fakeMessages{f} }

type fakeRecords struct{ p *fakeStore }

func (r *fakeRecords) Create(_ context.Context, collection string, fields model.Fields) (*model.Record, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	r.p.createCalls++
	if r.p.failCreate != "" {
		if _, ok := fields[r.p.failCreate]; ok {
			return nil, fmt.Errorf("store rejected create")
		}
	}
	r.p.nextID++
	now := time.Now().UTC()
	rec := &model.Record{
		Identity:  model.PersistentID(r.p.nextID),
		Fields:    fields.Clone(),
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	r.p.records[collection] = append(r.p.records[collection], rec)
	return rec, nil
}

func (r *fakeRecords) Update(_ context.Context, collection string, id int64, fields model.Fields) (*model.Record, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	r.p.updateCalls++
	for i, rec := range r.p.records[collection] {
		if rec.Identity.Value() == id {
			now := time.Now().UTC()
			upd := &model.Record{Identity: rec.Identity, Fields: fields.Clone(), CreatedAt: rec.CreatedAt, UpdatedAt: &now}
			r.p.records[collection][i] = upd
			return upd, nil
		}
	}
	return nil, fmt.Errorf("record %d: %w", id, model.ErrNotFound)
}

func (r *fakeRecords) Delete(_ context.Context, collection string, id int64) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	r.p.deleteCalls++
	list := r.p.records[collection]
	for i, rec := range list {
		if rec.Identity.Value() == id {
			r.p.records[collection] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("record %d: %w", id, model.ErrNotFound)
}

func (r *fakeRecords) List(_ context.Context, collection string) ([]*model.Record, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	return append([]*model.Record(nil), r.p.records[collection]...), nil
}

func (r *fakeRecords) BulkDelete(_ context.Context, collection string, ids []int64) ([]int64, error) {
	var deleted []int64
	for _, id := range ids {
		if err := r.Delete(context.Background(), collection, id); err == nil {
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

type fakeMessages struct{ p *fakeStore }

func (m *fakeMessages) Create(_ context.Context, in *model.Message) (*model.Message, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	m.p.nextID++
	out := *in
	out.ID = m.p.nextID
	if out.Status == "" {
		out.Status = model.StatusUnread
	}
	if out.Priority == "" {
		out.Priority = model.PriorityNormal
	}
	now := time.Now().UTC()
	out.CreatedAt = now
	m.p.messages[out.ID] = &out
	return copyMessage(&out), nil
}

func (m *fakeMessages) Get(_ context.Context, id int64) (*model.Message, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	msg, ok := m.p.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, model.ErrNotFound)
	}
	return copyMessage(msg), nil
}

func (m *fakeMessages) List(_ context.Context) ([]*model.Message, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	out := make([]*model.Message, 0, len(m.p.messages))
	for _, msg := range m.p.messages {
		out = append(out, copyMessage(msg))
	}
	return out, nil
}

func (m *fakeMessages) Update(_ context.Context, id int64, patch model.MessagePatch) (*model.Message, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	msg, ok := m.p.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, model.ErrNotFound)
	}
	applyPatch(msg, patch)
	return copyMessage(msg), nil
}

func (m *fakeMessages) Delete(_ context.Context, id int64) error {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	if _, ok := m.p.messages[id]; !ok {
		return fmt.Errorf("message %d: %w", id, model.ErrNotFound)
	}
	delete(m.p.messages, id)
	return nil
}

func (m *fakeMessages) BulkUpdate(_ context.Context, ids []int64, patch model.MessagePatch) ([]*model.Message, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	if m.p.failAll {
		return nil, fmt.Errorf("statement failed")
	}
	var out []*model.Message
	for _, id := range ids {
		if msg, ok := m.p.messages[id]; ok {
			applyPatch(msg, patch)
			out = append(out, copyMessage(msg))
		}
	}
	return out, nil
}

func (m *fakeMessages) BulkDelete(_ context.Context, ids []int64) ([]int64, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	if m.p.failAll {
		return nil, fmt.Errorf("statement failed")
	}
	var deleted []int64
	for _, id := range ids {
		if _, ok := m.p.messages[id]; ok {
			delete(m.p.messages, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// applyPatch mirrors the set-once timestamp behavior of the SQL drivers.
func applyPatch(msg *model.Message, patch model.MessagePatch) {
	if patch.Status != nil {
		msg.Status = *patch.Status
	}
	if patch.IsRead != nil {
		msg.IsRead = *patch.IsRead
	}
	if patch.Priority != nil {
		msg.Priority = *patch.Priority
	}
	if patch.AdminNotes != nil {
		msg.AdminNotes = patch.AdminNotes
	}
	if patch.ReadAt != nil && msg.ReadAt == nil {
		msg.ReadAt = patch.ReadAt
	}
	if patch.RepliedAt != nil && msg.RepliedAt == nil {
		msg.RepliedAt = patch.RepliedAt
	}
	if patch.ArchivedAt != nil && msg.ArchivedAt == nil {
		msg.ArchivedAt = patch.ArchivedAt
	}
}

func copyMessage(m *model.Message) *model.Message {
	out := *m
	return &out
}
