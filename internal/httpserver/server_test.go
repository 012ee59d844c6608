package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"support-bot/internal/logging"
	"support-bot/internal/reminder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fakeReminders struct {
	scheduled []reminder.Scheduled
	cancelled []int
}

func (f *fakeReminders) Scheduled() []reminder.Scheduled { return f.scheduled }

func (f *fakeReminders) Cancel(messageID int) bool {
	for _, s := range f.scheduled {
		if s.MessageID == messageID {
			f.cancelled = append(f.cancelled, messageID)
			return true
		}
	}
	return false
}

func serve(t *testing.T, srv *Server, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	srv := New(":0", logging.Discard(), nil, Dependencies{Database: ok}, "")

	rec := serve(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, rec.Body.String())

	rec = serve(t, srv, http.MethodPost, "/healthz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	srv := New(":0", logging.Discard(), nil, Dependencies{Database: ok, Redis: down}, "")

	rec := serve(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"database":"ok","redis":"connection refused"}}`, rec.Body.String())
}

func TestAdminRemindersDisabledWithoutToken(t *testing.T) {
	srv := New(":0", logging.Discard(), nil, Dependencies{Reminders: &fakeReminders{}}, "")
	rec := serve(t, srv, http.MethodGet, "/admin/reminders", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminReminders(t *testing.T) {
	fireAt := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	rems := &fakeReminders{scheduled: []reminder.Scheduled{{ChatID: -1001, MessageID: 42, FireAt: fireAt}}}
	srv := New(":0", logging.Discard(), nil, Dependencies{Reminders: rems}, "secret")

	rec := serve(t, srv, http.MethodGet, "/admin/reminders", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = serve(t, srv, http.MethodGet, "/admin/reminders", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, srv, http.MethodGet, "/admin/reminders", "secret")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Reminders []reminder.Scheduled `json:"reminders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Reminders, 1)
	assert.Equal(t, 42, body.Reminders[0].MessageID)
	assert.True(t, fireAt.Equal(body.Reminders[0].FireAt))

	rec = serve(t, srv, http.MethodGet, "/admin/reminders/cancel?message_id=42", "secret")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = serve(t, srv, http.MethodPost, "/admin/reminders/cancel?message_id=abc", "secret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serve(t, srv, http.MethodPost, "/admin/reminders/cancel?message_id=7", "secret")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, srv, http.MethodPost, "/admin/reminders/cancel?message_id=42", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{42}, rems.cancelled)
}
