package action

import (
	"sync"
	"time"
)

// Outcome classifies what the dispatcher did with a directive.
type Outcome string

const (
	// OutcomeDispatched records an immediate directive that mutated device state.
	OutcomeDispatched Outcome = "dispatched"

	// OutcomePending records a confirm-gated directive awaiting user approval.
	OutcomePending Outcome = "pending"

	// OutcomeConfirmed records a gated directive the user approved.
	OutcomeConfirmed Outcome = "confirmed"

	// OutcomeCancelled records a gated directive the user rejected.
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeIgnored records an unrecognised directive name.
	OutcomeIgnored Outcome = "ignored"

	// OutcomeDropped records a gated directive discarded because another
	// confirmation was already pending.
	OutcomeDropped Outcome = "dropped"
)

// Entry is one audit-log record.
type Entry struct {
	Directive string    `json:"directive"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
}

// defaultAuditLimit bounds audit retention when no limit is configured.
const defaultAuditLimit = 64

// AuditLog is an ordered, bounded, append-only record of directive outcomes.
// Oldest entries are evicted once the limit is reached. Safe for concurrent
// use.
type AuditLog struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
	now     func() time.Time
}

// NewAuditLog creates an AuditLog retaining at most limit entries.
// A non-positive limit selects the default of 64.
func NewAuditLog(limit int) *AuditLog {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	return &AuditLog{limit: limit, now: time.Now}
}

// Append records an outcome for directive.
func (l *AuditLog) Append(directive string, outcome Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry{
		Directive: directive,
		Outcome:   outcome,
		Timestamp: l.now(),
	})
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

// Entries returns a copy of the log, oldest first.
func (l *AuditLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
