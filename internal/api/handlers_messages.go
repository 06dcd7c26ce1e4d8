package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	respond "github.com/foliolab/folio-backend/internal/api/respond"
	"github.com/foliolab/folio-backend/internal/api/validate"
	"github.com/foliolab/folio-backend/internal/model"
	"github.com/foliolab/folio-backend/internal/services"
)

// MessageHandler exposes the triage engine to the admin console plus the
// public contact-form endpoint that feeds it.
type MessageHandler struct {
	svc *services.Triage
}

func NewMessageHandler(svc *services.Triage) *MessageHandler { return &MessageHandler{svc: svc} }

// ListMessages GET /api/messages?tab=&priority=&date=&q=
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	inbox, err := h.svc.List(r.Context(), f)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": inbox.Messages,
		"stats":    inbox.Stats,
		"count":    len(inbox.Messages),
	})
}

// SubmitMessage POST /api/contact
func (h *MessageHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string                `json:"name"`
		Email    string                `json:"email"`
		Subject  string                `json:"subject"`
		Body     string                `json:"body"`
		Priority model.MessagePriority `json:"priority,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.ContactSubmission(req.Name, req.Email, req.Subject, req.Body); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	msg := &model.Message{Name: req.Name, Email: req.Email, Subject: req.Subject, Body: req.Body, Priority: req.Priority}
	out, err := h.svc.Submit(r.Context(), msg)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// OpenMessage POST /api/messages/{id}/open
//
// Detail view: the first open of an unread message marks it read; later
// opens return the message untouched.
func (h *MessageHandler) OpenMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	msg, err := h.svc.Open(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, msg)
}

// TransitionMessage POST /api/messages/{id}/transition
func (h *MessageHandler) TransitionMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	var req struct {
		Target model.MessageStatus `json:"target"`
		Reply  string              `json:"reply,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	msg, err := h.svc.Transition(r.Context(), id, req.Target, req.Reply)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, msg)
}

// MarkUnread POST /api/messages/{id}/unread
func (h *MessageHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	msg, err := h.svc.MarkUnread(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, msg)
}

// SetPriority PATCH /api/messages/{id}/priority
func (h *MessageHandler) SetPriority(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	var req struct {
		Priority model.MessagePriority `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	msg, err := h.svc.SetPriority(r.Context(), id, req.Priority)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, msg)
}

// BulkMessages POST /api/messages/bulk
func (h *MessageHandler) BulkMessages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs    []int64          `json:"ids"`
		Action model.BulkAction `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	res, err := h.svc.BulkTransition(r.Context(), req.IDs, req.Action)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if res.Errors == nil {
		res.Errors = []services.BulkError{}
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

// DeleteMessage DELETE /api/messages/{id}
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func messageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		respond.WriteBadRequest(w, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func parseFilter(r *http.Request) (model.MessageFilter, error) {
	q := r.URL.Query()
	f := model.MessageFilter{
		Tab:      model.TabAll,
		Priority: "all",
		Date:     model.DateAll,
		Search:   q.Get("q"),
	}
	if v := q.Get("tab"); v != "" {
		f.Tab = model.TabFilter(v)
		if !f.Tab.Valid() {
			return f, errInvalidFilter("tab", v)
		}
	}
	if v := q.Get("priority"); v != "" && v != "all" {
		f.Priority = model.MessagePriority(v)
		if !f.Priority.Valid() {
			return f, errInvalidFilter("priority", v)
		}
	}
	if v := q.Get("date"); v != "" {
		f.Date = model.DateFilter(v)
		if !f.Date.Valid() {
			return f, errInvalidFilter("date", v)
		}
	}
	return f, nil
}
