package transcript

import "sync"

// defaultHistoryLimit bounds retained turns when no limit is configured.
const defaultHistoryLimit = 256

// History is the append-only list of finalized turns, most recent last.
// Retention is bounded; oldest turns are evicted past the limit. Safe for
// concurrent use.
type History struct {
	mu    sync.Mutex
	limit int
	turns []Turn
}

// NewHistory creates a History retaining at most limit turns. A non-positive
// limit selects the default of 256.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &History{limit: limit}
}

// Append records a finalized turn. Turns with empty text are skipped.
func (h *History) Append(turn Turn) {
	if turn.Text == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	if len(h.turns) > h.limit {
		h.turns = h.turns[len(h.turns)-h.limit:]
	}
}

// Turns returns a copy of the history, oldest first.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}
