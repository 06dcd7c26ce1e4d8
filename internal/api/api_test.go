package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliolab/folio-backend/internal/model"
	sqlitestore "github.com/foliolab/folio-backend/internal/store/sqlite"
)

var apiServer *httptest.Server

func TestMain(m *testing.M) {
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		fmt.Printf("failed to open sqlite store: %v\n", err)
		os.Exit(1)
	}
	st := sqlitestore.New(db)
	apiServer = httptest.NewServer(NewRouter(zerolog.Nop(), st, nil))

	code := m.Run()

	apiServer.Close()
	_ = db.Close()
	os.Exit(code)
}

func postJSON(t *testing.T, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(apiServer.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func doJSON(t *testing.T, method, path string, payload interface{}) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, apiServer.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func submitContact(t *testing.T, subject string) model.Message {
	t.Helper()
	resp := postJSON(t, "/api/contact", map[string]interface{}{
		"name":    "Ada Lovelace",
		"email":   "ada@example.com",
		"subject": subject,
		"body":    "I would like to talk about your projects page.",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var msg model.Message
	decode(t, resp, &msg)
	return msg
}

func TestHealthEndpoint(t *testing.T) {
	resp, err := http.Get(apiServer.URL + "/api/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Contains(t, body, "status")
}

func TestContactSubmission(t *testing.T) {
	msg := submitContact(t, "hello from the contact form")
	assert.NotZero(t, msg.ID)
	assert.Equal(t, model.StatusUnread, msg.Status)
	assert.False(t, msg.IsRead)
	assert.Equal(t, model.PriorityNormal, msg.Priority)
	assert.Nil(t, msg.ReadAt)
}

func TestContactSubmission_Invalid(t *testing.T) {
	resp := postJSON(t, "/api/contact", map[string]interface{}{
		"name": "No Email", "email": "not-an-email", "subject": "s", "body": "b",
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOpenMarksReadOnce(t *testing.T) {
	msg := submitContact(t, "open once")

	resp := postJSON(t, fmt.Sprintf("/api/messages/%d/open", msg.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var opened model.Message
	decode(t, resp, &opened)
	require.True(t, opened.IsRead)
	require.NotNil(t, opened.ReadAt)
	firstRead := *opened.ReadAt

	resp = postJSON(t, fmt.Sprintf("/api/messages/%d/open", msg.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again model.Message
	decode(t, resp, &again)
	assert.True(t, again.ReadAt.Equal(firstRead))
}

func TestTransitionRepliedAndMarkUnread(t *testing.T) {
	msg := submitContact(t, "reply then unread")

	resp := postJSON(t, fmt.Sprintf("/api/messages/%d/transition", msg.ID), map[string]interface{}{
		"target": "replied",
		"reply":  "answered off-band",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var replied model.Message
	decode(t, resp, &replied)
	assert.Equal(t, model.StatusReplied, replied.Status)
	require.NotNil(t, replied.AdminNotes)
	assert.Equal(t, "answered off-band", *replied.AdminNotes)
	require.NotNil(t, replied.RepliedAt)

	resp = postJSON(t, fmt.Sprintf("/api/messages/%d/unread", msg.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unread model.Message
	decode(t, resp, &unread)
	assert.False(t, unread.IsRead)
	assert.Equal(t, model.StatusReplied, unread.Status)
}

func TestTransition_InvalidTarget(t *testing.T) {
	msg := submitContact(t, "bad transition")
	resp := postJSON(t, fmt.Sprintf("/api/messages/%d/transition", msg.ID), map[string]interface{}{
		"target": "unread",
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMessageNotFound(t *testing.T) {
	resp := postJSON(t, "/api/messages/999999/open", nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListMessages_FilterAndStats(t *testing.T) {
	a := submitContact(t, "zzfilter alpha")
	submitContact(t, "zzfilter beta")

	resp := postJSON(t, fmt.Sprintf("/api/messages/%d/open", a.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	var out struct {
		Messages []model.Message    `json:"messages"`
		Stats    model.MessageStats `json:"stats"`
		Count    int                `json:"count"`
	}
	resp, err := http.Get(apiServer.URL + "/api/messages?tab=unread&q=zzfilter")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &out)

	require.Len(t, out.Messages, 1)
	assert.Equal(t, "zzfilter beta", out.Messages[0].Subject)
	// Stats cover the whole unfiltered inbox, not the view.
	assert.GreaterOrEqual(t, out.Stats.Total, 2)
	assert.Greater(t, out.Stats.Total, out.Count)
}

func TestListMessages_UnknownFilterRejected(t *testing.T) {
	resp, err := http.Get(apiServer.URL + "/api/messages?tab=starred")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBulkMessages_PerIDOutcomes(t *testing.T) {
	a := submitContact(t, "bulk one")
	b := submitContact(t, "bulk two")

	resp := postJSON(t, "/api/messages/bulk", map[string]interface{}{
		"ids":    []int64{a.ID, b.ID, 424242},
		"action": "markRead",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res struct {
		Changed []int64 `json:"changed"`
		Errors  []struct {
			ID    int64  `json:"id"`
			Error string `json:"error"`
		} `json:"errors"`
	}
	decode(t, resp, &res)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, res.Changed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, int64(424242), res.Errors[0].ID)
}

func TestCollectionRoundTrip(t *testing.T) {
	temp := model.TemporaryIDFloor + 77

	resp := doJSON(t, http.MethodPut, "/api/collections/projects", map[string]interface{}{
		"records": []map[string]interface{}{
			{"id": temp, "fields": map[string]interface{}{"title": "Folio CMS", "displayOrder": 0}},
			{"fields": map[string]interface{}{"title": "Side project", "displayOrder": 1}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved struct {
		Merged []model.Record `json:"merged"`
		Errors []interface{}  `json:"errors"`
		Count  int            `json:"count"`
	}
	decode(t, resp, &saved)
	require.Equal(t, 2, saved.Count)
	assert.Empty(t, saved.Errors)
	for _, rec := range saved.Merged {
		assert.True(t, rec.Identity.Persisted(), "identity %v should be store-assigned", rec.Identity)
	}

	resp, err := http.Get(apiServer.URL + "/api/collections/projects")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed struct {
		Records []model.Record `json:"records"`
		Count   int            `json:"count"`
	}
	decode(t, resp, &listed)
	require.Equal(t, 2, listed.Count)

	resp = doJSON(t, http.MethodDelete,
		fmt.Sprintf("/api/collections/projects/records/%d", listed.Records[0].Identity.Value()), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get(apiServer.URL + "/api/collections/projects")
	require.NoError(t, err)
	decode(t, resp, &listed)
	assert.Equal(t, 1, listed.Count)
}

func TestCollection_NullRecordInBody(t *testing.T) {
	resp := doJSON(t, http.MethodPut, "/api/collections/projects", map[string]interface{}{
		"records": []interface{}{nil},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved struct {
		Merged []json.RawMessage `json:"merged"`
		Errors []struct {
			ID    *int64 `json:"id"`
			Error string `json:"error"`
		} `json:"errors"`
	}
	decode(t, resp, &saved)
	require.Len(t, saved.Errors, 1)
	assert.Nil(t, saved.Errors[0].ID)
	assert.Contains(t, saved.Errors[0].Error, "null")
}

func TestCollection_TemporaryDeleteIsNoOp(t *testing.T) {
	resp := doJSON(t, http.MethodDelete,
		fmt.Sprintf("/api/collections/projects/records/%d", model.TemporaryIDFloor+5), nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCollection_BadNameRejected(t *testing.T) {
	resp, err := http.Get(apiServer.URL + "/api/collections/Bad%3BName")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
