package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foliolab/folio-backend/internal/model"
)

func newTestTriage(t *testing.T) (*Triage, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	return NewTriage(fs, nil), fs
}

func submitMessage(t *testing.T, tr *Triage, subject string) *model.Message {
	t.Helper()
	msg, err := tr.Submit(context.Background(), &model.Message{
		Name:    "Ada",
		Email:   "ada@example.com",
		Subject: subject,
		Body:    "hello",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return msg
}

func TestSubmit_ForcesInitialState(t *testing.T) {
	tr, _ := newTestTriage(t)
	ts := time.Now()
	msg, err := tr.Submit(context.Background(), &model.Message{
		Name:    "Mallory",
		Email:   "m@example.com",
		Subject: "spoofed",
		Body:    "x",
		Status:  model.StatusReplied,
		IsRead:  true,
		ReadAt:  &ts,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if msg.Status != model.StatusUnread || msg.IsRead {
		t.Fatalf("submit kept caller state: status=%s isRead=%v", msg.Status, msg.IsRead)
	}
	if msg.ReadAt != nil || msg.RepliedAt != nil || msg.ArchivedAt != nil {
		t.Fatalf("submit kept caller timestamps")
	}
}

func TestSubmit_RejectsUnknownPriority(t *testing.T) {
	tr, _ := newTestTriage(t)
	_, err := tr.Submit(context.Background(), &model.Message{
		Name: "a", Email: "a@b.c", Subject: "s", Body: "b", Priority: "asap",
	})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestOpen_FiresReadTransitionOnce(t *testing.T) {
	tr, _ := newTestTriage(t)
	msg := submitMessage(t, tr, "first open")
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return t1 }

	opened, err := tr.Open(ctx, msg.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !opened.IsRead || opened.Status != model.StatusRead {
		t.Fatalf("first open did not mark read: %+v", opened)
	}
	if opened.ReadAt == nil || !opened.ReadAt.Equal(t1) {
		t.Fatalf("readAt = %v, want %v", opened.ReadAt, t1)
	}

	tr.now = func() time.Time { return t1.Add(time.Hour) }
	again, err := tr.Open(ctx, msg.ID)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if !again.ReadAt.Equal(t1) {
		t.Fatalf("second open moved readAt: %v", again.ReadAt)
	}
}

func TestTransition_RepliedCapturesReplyAndTimestampOnce(t *testing.T) {
	tr, _ := newTestTriage(t)
	msg := submitMessage(t, tr, "reply flow")
	ctx := context.Background()

	t1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return t1 }

	replied, err := tr.Transition(ctx, msg.ID, model.StatusReplied, "thanks, will do")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if replied.Status != model.StatusReplied {
		t.Fatalf("status = %s, want replied", replied.Status)
	}
	if replied.RepliedAt == nil || !replied.RepliedAt.Equal(t1) {
		t.Fatalf("repliedAt = %v, want %v", replied.RepliedAt, t1)
	}
	if replied.AdminNotes == nil || *replied.AdminNotes != "thanks, will do" {
		t.Fatalf("adminNotes = %v", replied.AdminNotes)
	}

	// Re-entering replied keeps the original timestamp but may update notes.
	tr.now = func() time.Time { return t1.Add(time.Hour) }
	again, err := tr.Transition(ctx, msg.ID, model.StatusReplied, "follow-up")
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if !again.RepliedAt.Equal(t1) {
		t.Fatalf("second reply moved repliedAt: %v", again.RepliedAt)
	}
	if *again.AdminNotes != "follow-up" {
		t.Fatalf("adminNotes not updated: %v", *again.AdminNotes)
	}
}

func TestTransition_RejectsUnread(t *testing.T) {
	tr, _ := newTestTriage(t)
	msg := submitMessage(t, tr, "bad target")
	_, err := tr.Transition(context.Background(), msg.ID, model.StatusUnread, "")
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestMarkUnread_KeepsStatusAndReadAt(t *testing.T) {
	tr, _ := newTestTriage(t)
	msg := submitMessage(t, tr, "unread flip")
	ctx := context.Background()

	if _, err := tr.Transition(ctx, msg.ID, model.StatusReplied, "done"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if _, err := tr.Open(ctx, msg.ID); err != nil {
		t.Fatalf("open: %v", err)
	}

	flipped, err := tr.MarkUnread(ctx, msg.ID)
	if err != nil {
		t.Fatalf("markUnread: %v", err)
	}
	if flipped.IsRead {
		t.Fatalf("still read after markUnread")
	}
	if flipped.Status != model.StatusReplied {
		t.Fatalf("markUnread changed status to %s", flipped.Status)
	}
	if flipped.ReadAt == nil {
		t.Fatalf("markUnread cleared readAt")
	}
}

func TestList_StatsIgnoreFilter(t *testing.T) {
	tr, _ := newTestTriage(t)
	ctx := context.Background()

	first := submitMessage(t, tr, "one")
	submitMessage(t, tr, "two")
	submitMessage(t, tr, "three")
	if _, err := tr.Open(ctx, first.ID); err != nil {
		t.Fatalf("open: %v", err)
	}

	inbox, err := tr.List(ctx, model.MessageFilter{Tab: model.TabUnread})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(inbox.Messages) != 2 {
		t.Fatalf("filtered view = %d messages, want 2", len(inbox.Messages))
	}
	if inbox.Stats.Total != 3 || inbox.Stats.Unread != 2 {
		t.Fatalf("stats = %+v, want total 3 unread 2", inbox.Stats)
	}
}

func TestList_EmptyViewIsNotNil(t *testing.T) {
	tr, _ := newTestTriage(t)
	inbox, err := tr.List(context.Background(), model.MessageFilter{Tab: model.TabArchived})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if inbox.Messages == nil {
		t.Fatalf("empty view should be [], not nil")
	}
}

func TestBulkTransition_PerIDOutcomes(t *testing.T) {
	tr, _ := newTestTriage(t)
	ctx := context.Background()

	a := submitMessage(t, tr, "a")
	b := submitMessage(t, tr, "b")

	res, err := tr.BulkTransition(ctx, []int64{a.ID, 9999, b.ID}, model.BulkMarkRead)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if len(res.Changed) != 2 {
		t.Fatalf("changed = %v, want 2 ids", res.Changed)
	}
	if len(res.Errors) != 1 || res.Errors[0].ID != 9999 {
		t.Fatalf("errors = %v, want one error for id 9999", res.Errors)
	}
	if !errors.Is(res.Errors[0].Err, model.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", res.Errors[0].Err)
	}

	got, err := tr.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsRead || got.Status != model.StatusRead {
		t.Fatalf("bulk markRead not applied: %+v", got)
	}
}

func TestBulkTransition_MarkUnreadKeepsStatus(t *testing.T) {
	tr, _ := newTestTriage(t)
	ctx := context.Background()

	a := submitMessage(t, tr, "a")
	if _, err := tr.Transition(ctx, a.ID, model.StatusArchived, ""); err != nil {
		t.Fatalf("archive: %v", err)
	}

	res, err := tr.BulkTransition(ctx, []int64{a.ID}, model.BulkMarkUnread)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors: %v", res.Errors)
	}
	got, err := tr.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusArchived {
		t.Fatalf("bulk markUnread changed status to %s", got.Status)
	}
	if got.IsRead {
		t.Fatalf("bulk markUnread left message read")
	}
}

func TestBulkTransition_StatementFailureReportedPerID(t *testing.T) {
	tr, fs := newTestTriage(t)
	a := submitMessage(t, tr, "a")
	b := submitMessage(t, tr, "b")
	fs.failAll = true

	res, err := tr.BulkTransition(context.Background(), []int64{a.ID, b.ID}, model.BulkArchive)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if len(res.Changed) != 0 {
		t.Fatalf("changed = %v, want none", res.Changed)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %v, want one per id", res.Errors)
	}
}

func TestBulkTransition_DeleteAndDedupe(t *testing.T) {
	tr, _ := newTestTriage(t)
	ctx := context.Background()

	a := submitMessage(t, tr, "a")
	res, err := tr.BulkTransition(ctx, []int64{a.ID, a.ID, a.ID}, model.BulkDelete)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if len(res.Changed) != 1 || res.Changed[0] != a.ID {
		t.Fatalf("changed = %v, want exactly [%d]", res.Changed, a.ID)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors: %v", res.Errors)
	}
	if _, err := tr.Get(ctx, a.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestBulkTransition_RejectsUnknownAction(t *testing.T) {
	tr, _ := newTestTriage(t)
	_, err := tr.BulkTransition(context.Background(), []int64{1}, "explode")
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestSetPriority(t *testing.T) {
	tr, _ := newTestTriage(t)
	ctx := context.Background()
	msg := submitMessage(t, tr, "prio")

	got, err := tr.SetPriority(ctx, msg.ID, model.PriorityUrgent)
	if err != nil {
		t.Fatalf("setPriority: %v", err)
	}
	if got.Priority != model.PriorityUrgent {
		t.Fatalf("priority = %s", got.Priority)
	}
	if _, err := tr.SetPriority(ctx, msg.ID, "whenever"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
