// Package notify holds the user-facing feedback primitives: transient
// notices, modal open/close state, and the optional outgoing webhook.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the visual category of a notice
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Notice is a dismissible, auto-expiring message
type Notice struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the notice is older than ttl. A non-positive ttl
// never expires.
func (n Notice) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(n.CreatedAt) >= ttl
}

// Notices is an ordered list, oldest first
type Notices []Notice

// Push appends a new notice and returns it.
func (ns *Notices) Push(kind Kind, msg string, now time.Time) Notice {
	n := Notice{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   msg,
		CreatedAt: now,
	}
	*ns = append(*ns, n)
	return n
}

// Active returns the notices that have not expired.
func (ns Notices) Active(now time.Time, ttl time.Duration) Notices {
	out := Notices{}
	for _, n := range ns {
		if !n.Expired(now, ttl) {
			out = append(out, n)
		}
	}
	return out
}

// Prune drops expired notices in place.
func (ns *Notices) Prune(now time.Time, ttl time.Duration) {
	*ns = ns.Active(now, ttl)
}

// Dismiss removes the notice with id. It reports whether one was removed.
func (ns *Notices) Dismiss(id string) bool {
	for i, n := range *ns {
		if n.ID == id {
			*ns = append((*ns)[:i], (*ns)[i+1:]...)
			return true
		}
	}
	return false
}
