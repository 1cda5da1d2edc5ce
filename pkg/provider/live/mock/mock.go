// Package mock provides scripted live.Provider and live.Session
// implementations for tests that need a remote session without a network.
package mock

import (
	"context"
	"sync"

	"github.com/droidvox/droidvox/pkg/provider/live"
)

// Compile-time assertions.
var _ live.Provider = (*Provider)(nil)
var _ live.Session = (*Session)(nil)

// Provider hands out Sessions on Connect.
type Provider struct {
	// Sess is returned by Connect. When nil or already closed, a fresh
	// Session is created, so a stopped engine can reconnect.
	Sess *Session

	// ConnectErr, when non-nil, is returned by Connect instead of a session.
	ConnectErr error

	mu        sync.Mutex
	lastCfg   live.Config
	connected int
}

// Connect implements live.Provider. The returned session is primed with an
// open event, mirroring the real setup acknowledgment.
func (p *Provider) Connect(_ context.Context, cfg live.Config) (live.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	p.lastCfg = cfg
	p.connected++
	if p.Sess == nil || p.Sess.Closed() {
		p.Sess = NewSession()
	}
	p.Sess.Emit(live.Event{Type: live.EventOpen})
	return p.Sess, nil
}

// LastConfig returns the config of the most recent Connect call.
func (p *Provider) LastConfig() live.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCfg
}

// Connects returns the number of Connect calls.
func (p *Provider) Connects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Session is a scripted live session. Tests push events with Emit and
// inspect uploaded chunks with Sent.
type Session struct {
	events chan live.Event

	mu       sync.Mutex
	sent     []string
	closed   bool
	finished bool

	finishOnce sync.Once
}

// NewSession creates an idle mock session.
func NewSession() *Session {
	return &Session{events: make(chan live.Event, 64)}
}

// Emit delivers an event to the session consumer. Events emitted after the
// stream finished are dropped, as a real session does during teardown.
func (s *Session) Emit(ev live.Event) {
	s.mu.Lock()
	finished := s.finished
	s.mu.Unlock()
	if finished {
		return
	}
	s.events <- ev
}

// Finish closes the event stream, as the real receive loop does on exit.
// Idempotent, and implied by Close.
func (s *Session) Finish() {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.finished = true
		s.mu.Unlock()
		close(s.events)
	})
}

// SendAudio implements live.Session by recording the chunk.
func (s *Session) SendAudio(wireChunk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, wireChunk)
	return nil
}

// Sent returns a copy of all uploaded wire chunks.
func (s *Session) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

// Events implements live.Session.
func (s *Session) Events() <-chan live.Event { return s.events }

// Close implements live.Session. It ends the event stream like a real
// session teardown does. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Finish()
	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
