package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/foliolab/folio-backend/internal/model"
	"github.com/foliolab/folio-backend/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Unique collection name so reruns against a shared database stay isolated.
	collection := "projects-" + uuid.New().String()

	// Records: create
	r1, err := s.Records().Create(ctx, collection, model.Fields{"title": "Folio", "order": float64(0)})
	if err != nil {
		t.Fatalf("CreateRecord r1: %v", err)
	}
	if !r1.Identity.Persisted() {
		t.Fatalf("CreateRecord r1: identity not persistent: %v", r1.Identity)
	}
	r2, err := s.Records().Create(ctx, collection, model.Fields{"title": "Weekend hack", "order": float64(1)})
	if err != nil {
		t.Fatalf("CreateRecord r2: %v", err)
	}
	if r2.Identity.Value() == r1.Identity.Value() {
		t.Fatalf("CreateRecord: duplicate identity %v", r2.Identity)
	}

	// Records: update
	upd, err := s.Records().Update(ctx, collection, r1.Identity.Value(), model.Fields{"title": "Folio v2", "order": float64(0)})
	if err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if got := upd.Fields["title"]; got != "Folio v2" {
		t.Fatalf("UpdateRecord: title=%v", got)
	}

	// Records: update of a missing id reports not found
	if _, err := s.Records().Update(ctx, collection, 999_999, model.Fields{"title": "x"}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("UpdateRecord missing: err=%v, want ErrNotFound", err)
	}

	// Records: list preserves insertion order
	lst, err := s.Records().List(ctx, collection)
	if err != nil || len(lst) != 2 {
		t.Fatalf("ListRecords: n=%d err=%v", len(lst), err)
	}
	if lst[0].Identity.Value() != r1.Identity.Value() || lst[1].Identity.Value() != r2.Identity.Value() {
		t.Fatalf("ListRecords order: got [%v %v]", lst[0].Identity, lst[1].Identity)
	}

	// Records: delete
	if err := s.Records().Delete(ctx, collection, r2.Identity.Value()); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if err := s.Records().Delete(ctx, collection, r2.Identity.Value()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("DeleteRecord twice: err=%v, want ErrNotFound", err)
	}

	// Records: bulk delete reports only ids that existed
	r3, err := s.Records().Create(ctx, collection, model.Fields{"title": "CV"})
	if err != nil {
		t.Fatalf("CreateRecord r3: %v", err)
	}
	deleted, err := s.Records().BulkDelete(ctx, collection, []int64{r1.Identity.Value(), r3.Identity.Value(), 999_999})
	if err != nil {
		t.Fatalf("BulkDeleteRecords: %v", err)
	}
	if len(deleted) != 2 {
		t.Fatalf("BulkDeleteRecords: deleted=%v", deleted)
	}

	// Messages: create defaults
	m1, err := s.Messages().Create(ctx, &model.Message{
		Name:    "Ada",
		Email:   "ada@example.test",
		Subject: "Hire me " + uuid.New().String(),
		Body:    "I build compilers.",
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m1.Status != model.StatusUnread || m1.IsRead || m1.Priority != model.PriorityNormal {
		t.Fatalf("CreateMessage defaults: %+v", m1)
	}
	if m1.CreatedAt.IsZero() {
		t.Fatalf("CreateMessage: zero createdAt")
	}

	// Messages: creation time is store-assigned, caller value ignored
	backdated, err := s.Messages().Create(ctx, &model.Message{
		Name:      "Edsger",
		Email:     "edsger@example.test",
		Subject:   "Backdate attempt " + uuid.New().String(),
		Body:      "x",
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateMessage backdated: %v", err)
	}
	if time.Since(backdated.CreatedAt) > time.Minute {
		t.Fatalf("CreateMessage: caller-supplied createdAt was honored: %v", backdated.CreatedAt)
	}
	if _, err := s.Messages().BulkDelete(ctx, []int64{backdated.ID}); err != nil {
		t.Fatalf("cleanup backdated: %v", err)
	}

	// Messages: set-once read_at
	now := time.Now().UTC().Truncate(time.Second)
	read := model.StatusRead
	yes := true
	got, err := s.Messages().Update(ctx, m1.ID, model.MessagePatch{Status: &read, IsRead: &yes, ReadAt: &now})
	if err != nil {
		t.Fatalf("UpdateMessage read: %v", err)
	}
	if got.ReadAt == nil || !got.IsRead || got.Status != model.StatusRead {
		t.Fatalf("UpdateMessage read: %+v", got)
	}
	firstRead := *got.ReadAt
	later := now.Add(1 * time.Hour)
	got, err = s.Messages().Update(ctx, m1.ID, model.MessagePatch{Status: &read, IsRead: &yes, ReadAt: &later})
	if err != nil {
		t.Fatalf("UpdateMessage re-read: %v", err)
	}
	if got.ReadAt == nil || !got.ReadAt.Equal(firstRead) {
		t.Fatalf("UpdateMessage re-read: readAt moved from %v to %v", firstRead, got.ReadAt)
	}

	// Messages: bulk update skips missing ids silently
	no := false
	m2, err := s.Messages().Create(ctx, &model.Message{Name: "Grace", Email: "grace@example.test", Subject: "COBOL", Body: "hello"})
	if err != nil {
		t.Fatalf("CreateMessage m2: %v", err)
	}
	changed, err := s.Messages().BulkUpdate(ctx, []int64{m1.ID, m2.ID, 999_999}, model.MessagePatch{IsRead: &no})
	if err != nil {
		t.Fatalf("BulkUpdateMessages: %v", err)
	}
	if len(changed) != 2 {
		t.Fatalf("BulkUpdateMessages: changed=%d", len(changed))
	}
	for _, c := range changed {
		if c.IsRead {
			t.Fatalf("BulkUpdateMessages: message %d still read", c.ID)
		}
		if c.ID == m1.ID && c.Status != model.StatusRead {
			t.Fatalf("BulkUpdateMessages: markUnread moved status to %s", c.Status)
		}
	}

	// Messages: bulk delete reports only ids that existed
	gone, err := s.Messages().BulkDelete(ctx, []int64{m1.ID, 999_999})
	if err != nil {
		t.Fatalf("BulkDeleteMessages: %v", err)
	}
	if len(gone) != 1 || gone[0] != m1.ID {
		t.Fatalf("BulkDeleteMessages: gone=%v", gone)
	}
	if _, err := s.Messages().Get(ctx, m1.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetMessage after delete: err=%v, want ErrNotFound", err)
	}
}
