// Package playback schedules decoded audio buffers for gapless output.
//
// Buffers arrive at unpredictable wall-clock times relative to each other;
// the scheduler keeps a cursor on the output timeline so that each buffer
// starts exactly where the previous one ends while arrivals keep pace, and
// resyncs to the current clock time (dropping the gap, never overlapping)
// when arrivals lag.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/droidvox/droidvox/pkg/audio"
)

// Handle identifies one scheduled playback that can be halted. Stop must
// tolerate playbacks that already finished or never started.
type Handle interface {
	Stop()
}

// Output abstracts the audio output device and its clock.
//
// Now is the current position on the output timeline; PlayAt schedules buf to
// begin at the given position. PlayAt may fail when the underlying device is
// already closed — the scheduler treats that as a stop race and swallows it.
type Output interface {
	Now() time.Duration
	PlayAt(buf audio.Buffer, at time.Duration) (Handle, error)
}

// Scheduler owns the playback cursor and the set of in-flight handles.
// All methods are safe for concurrent use, though the session run loop is the
// expected single caller of Schedule.
type Scheduler struct {
	out Output

	mu     sync.Mutex
	cursor time.Duration
	// handles maps each tracked playback to its scheduled end time, so
	// finished ones can be pruned.
	handles map[Handle]time.Duration
}

// NewScheduler creates a Scheduler whose cursor starts at the output clock's
// current time.
func NewScheduler(out Output) *Scheduler {
	return &Scheduler{
		out:     out,
		cursor:  out.Now(),
		handles: make(map[Handle]time.Duration),
	}
}

// Schedule enqueues buf to play back-to-back after everything scheduled so
// far: startAt = max(cursor, now), cursor = startAt + duration. Buffers are
// scheduled in call order, which matches arrival order since decode happens
// synchronously per chunk.
func (s *Scheduler) Schedule(buf audio.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.out.Now()

	// Playbacks that already ran to completion no longer need a stop; drop
	// them so the tracked set stays bounded over a long session.
	for h, endAt := range s.handles {
		if endAt <= now {
			delete(s.handles, h)
		}
	}

	startAt := s.cursor
	if now > startAt {
		startAt = now
	}

	h, err := s.out.PlayAt(buf, startAt)
	if err != nil {
		// Scheduling on a closed output implies a stop race; drop the buffer.
		slog.Debug("playback schedule failed, dropping buffer", "err", err)
		return
	}

	s.cursor = startAt + buf.Duration()
	s.handles[h] = s.cursor
}

// Pending returns the number of tracked playbacks that have not finished or
// been halted yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Cursor returns the scheduled end-time of the last enqueued buffer.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// StopAll halts every tracked playback and resets the cursor to the output
// clock's current time. Required on session stop or interruption so stale
// audio never plays afterwards.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h := range s.handles {
		h.Stop()
	}
	clear(s.handles)
	s.cursor = s.out.Now()
}
