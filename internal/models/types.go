package models

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a vulnerability
type Severity string

const (
	SeverityHigh          Severity = "High"
	SeverityMedium        Severity = "Medium"
	SeverityLow           Severity = "Low"
	SeverityInformational Severity = "Informational"
)

// SeverityOrder is the fixed display order, most severe first.
var SeverityOrder = []Severity{
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInformational,
}

// Known reports whether s is one of the four recognised severities.
func (s Severity) Known() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow, SeverityInformational:
		return true
	}
	return false
}

// Rank returns the position of s in SeverityOrder, or len(SeverityOrder)
// for unknown values so they sort last.
func (s Severity) Rank() int {
	for i, sev := range SeverityOrder {
		if sev == s {
			return i
		}
	}
	return len(SeverityOrder)
}

// Emoji returns the marker shown next to the severity.
func (s Severity) Emoji() string {
	switch s {
	case SeverityHigh:
		return "🔴"
	case SeverityMedium:
		return "🟠"
	case SeverityLow:
		return "🟡"
	case SeverityInformational:
		return "🔵"
	default:
		return "⚪"
	}
}

// Class returns a stable lowercase token used for CSS classes and styles.
func (s Severity) Class() string {
	switch s {
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	case SeverityInformational:
		return "info"
	default:
		return "unknown"
	}
}

// Short is the compact badge label.
func (s Severity) Short() string {
	switch s {
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Med"
	case SeverityLow:
		return "Low"
	case SeverityInformational:
		return "Info"
	default:
		return "?"
	}
}

// Label is the display name; unknown severities render as "Unknown".
func (s Severity) Label() string {
	if s.Known() {
		return string(s)
	}
	return "Unknown"
}

// FixStatus is the triage state of an instance
type FixStatus string

const (
	StatusPending       FixStatus = "pending"
	StatusInProgress    FixStatus = "in_progress"
	StatusFixed         FixStatus = "fixed"
	StatusWontFix       FixStatus = "wont_fix"
	StatusFalsePositive FixStatus = "false_positive"
)

// FixStatuses lists every status in the order offered to users.
var FixStatuses = []FixStatus{
	StatusPending,
	StatusInProgress,
	StatusFixed,
	StatusWontFix,
	StatusFalsePositive,
}

// Known reports whether s is one of the five recognised statuses.
func (s FixStatus) Known() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusFixed, StatusWontFix, StatusFalsePositive:
		return true
	}
	return false
}

// Emoji returns the marker shown next to the status.
func (s FixStatus) Emoji() string {
	switch s {
	case StatusPending:
		return "⏳"
	case StatusInProgress:
		return "🔄"
	case StatusFixed:
		return "✅"
	case StatusWontFix:
		return "🚫"
	case StatusFalsePositive:
		return "❌"
	default:
		return "❓"
	}
}

// Label is the human readable status name. Unknown values keep their raw
// text so the user can still see what the backend sent.
func (s FixStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusFixed:
		return "Fixed"
	case StatusWontFix:
		return "Won't fix"
	case StatusFalsePositive:
		return "False positive"
	case "":
		return "unknown"
	default:
		return string(s)
	}
}

// ParseFixStatus converts user input into a FixStatus. Input is matched
// case-insensitively and may use dashes or spaces instead of underscores.
func ParseFixStatus(raw string) (FixStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	s := FixStatus(norm)
	if !s.Known() {
		return "", fmt.Errorf("unknown fix status %q", raw)
	}
	return s, nil
}
