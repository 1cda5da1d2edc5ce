// Package transcript folds streamed partial-text events into finalized
// conversational turns and keeps the append-only turn history.
package transcript

import (
	"strings"
	"time"
)

// Role identifies which party a turn belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one finalized utterance attributed to a single role. Immutable once
// produced by [Accumulator.Finalize].
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	StartedAt time.Time `json:"started_at"`
	Final     bool      `json:"final"`
}

// Accumulator concatenates partial-text fragments for one role until the
// remote signals the turn boundary. It has no boundary-detection logic of its
// own — only accumulate, snapshot, reset.
//
// Not safe for concurrent use; the session run loop is the single writer.
type Accumulator struct {
	role      Role
	buf       strings.Builder
	startedAt time.Time
	now       func() time.Time
}

// NewAccumulator creates an empty accumulator for role.
func NewAccumulator(role Role) *Accumulator {
	return &Accumulator{role: role, now: time.Now}
}

// Append adds a text fragment to the running buffer. The first fragment of a
// turn records the turn's start time.
func (a *Accumulator) Append(fragment string) {
	if a.buf.Len() == 0 {
		a.startedAt = a.now()
	}
	a.buf.WriteString(fragment)
}

// Finalize snapshots the buffer as a finalized Turn and clears it for the
// next turn. Finalizing an empty buffer yields a Turn with empty text, which
// callers should treat as "nothing to report".
func (a *Accumulator) Finalize() Turn {
	turn := Turn{
		Role:      a.role,
		Text:      a.buf.String(),
		StartedAt: a.startedAt,
		Final:     true,
	}
	a.buf.Reset()
	a.startedAt = time.Time{}
	return turn
}
