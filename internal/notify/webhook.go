package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hakim/vulntriage/internal/jsonutil"
)

// Webhook posts triage events to an external URL.
type Webhook struct {
	URL    string // if empty, no notifications
	Client *http.Client
}

// Event is the JSON body posted to the webhook endpoint.
type Event struct {
	Action      string    `json:"action"`
	ReportID    int       `json:"report_id,omitempty"`
	InstanceIDs []int     `json:"instance_ids,omitempty"`
	Status      string    `json:"status,omitempty"`
	Count       int       `json:"count,omitempty"`
	Message     string    `json:"message,omitempty"`
	At          time.Time `json:"at"`
}

// Webhook actions.
const (
	ActionStatusUpdated = "status_updated"
	ActionBatchUpdated  = "batch_status_updated"
	ActionReportDeleted = "report_deleted"
	ActionNotesSaved    = "notes_saved"
	ActionImported      = "report_imported"
)

// Send posts ev to the webhook URL.
// Returns nil if URL is empty (no-op). Non-fatal: errors are returned but
// callers should treat them as warnings.
func (h *Webhook) Send(ctx context.Context, ev Event) error {
	if h == nil || h.URL == "" {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	body, err := jsonutil.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshaling payload: %w", err)
	}

	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: posting to %s: %w", h.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned non-2xx status %d", resp.StatusCode)
	}

	return nil
}
