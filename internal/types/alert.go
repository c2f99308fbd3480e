package types

import "time"

// Severity classifies how urgent an alert is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for threshold comparisons.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at or above the given minimum severity.
// Unknown severities compare as low.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Status tracks the lifecycle of an alert.
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Metadata keys written by the notification dispatcher when an alert
// is suppressed by the cooldown gate.
const (
	MetaSuppressedReason = "suppressed_reason"
	MetaSuppressedUntil  = "suppressed_until"
)

// Alert represents one notifiable event.
//
// Title, Message, Severity, Category and Timestamp are immutable after
// creation. Status, the acknowledged/resolved timestamps and the
// suppression entries in Metadata change only through the alert
// manager, under its lock.
type Alert struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Severity       Severity       `json:"severity"`
	Category       string         `json:"category"`
	Status         Status         `json:"status"`
	Timestamp      time.Time      `json:"timestamp"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Clone returns a snapshot copy of the alert, including a copied
// metadata map, so history entries do not alias the live record.
func (a *Alert) Clone() Alert {
	cp := *a
	if a.Metadata != nil {
		cp.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}
