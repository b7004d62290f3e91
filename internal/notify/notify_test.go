package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hakim/vulntriage/internal/jsonutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticesExpireAfterTTL(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var ns Notices
	first := ns.Push(KindSuccess, "saved", start)
	ns.Push(KindError, "failed", start.Add(2*time.Second))

	active := ns.Active(start.Add(3*time.Second), 3*time.Second)
	require.Len(t, active, 1)
	assert.Equal(t, "failed", active[0].Message)

	assert.True(t, first.Expired(start.Add(3*time.Second), 3*time.Second))
	assert.False(t, first.Expired(start.Add(time.Hour), 0))

	ns.Prune(start.Add(10*time.Second), 3*time.Second)
	assert.Empty(t, ns)
}

func TestNoticesDismiss(t *testing.T) {
	now := time.Now()
	var ns Notices
	a := ns.Push(KindInfo, "a", now)
	ns.Push(KindWarning, "b", now)

	assert.True(t, ns.Dismiss(a.ID))
	assert.False(t, ns.Dismiss(a.ID))
	require.Len(t, ns, 1)
	assert.Equal(t, "b", ns[0].Message)
	assert.NotEqual(t, a.ID, ns[0].ID)
}

func TestModalsEscapeClosesAll(t *testing.T) {
	var m Modals
	assert.False(t, m.IsOpen(ModalStatus))

	m.Open(ModalStatus)
	m.Open(ModalConfirmDelete)
	assert.Equal(t, []string{ModalConfirmDelete, ModalStatus}, m.OpenIDs())

	m.Close(ModalStatus)
	assert.False(t, m.IsOpen(ModalStatus))
	assert.True(t, m.IsOpen(ModalConfirmDelete))

	m.Escape()
	assert.Empty(t, m.OpenIDs())
}

func TestWebhookSend(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, jsonutil.Decode(r.Body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := &Webhook{URL: srv.URL}
	err := h.Send(context.Background(), Event{Action: ActionBatchUpdated, ReportID: 7, InstanceIDs: []int{1, 2}, Status: "fixed", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, ActionBatchUpdated, got.Action)
	assert.Equal(t, []int{1, 2}, got.InstanceIDs)
	assert.False(t, got.At.IsZero())
}

func TestWebhookNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := (&Webhook{URL: srv.URL}).Send(context.Background(), Event{Action: ActionReportDeleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookDisabled(t *testing.T) {
	var h *Webhook
	assert.NoError(t, h.Send(context.Background(), Event{}))
	assert.NoError(t, (&Webhook{}).Send(context.Background(), Event{}))
}
