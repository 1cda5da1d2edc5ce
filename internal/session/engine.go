// Package session implements the voice session lifecycle and its run loop.
//
// An [Engine] owns exactly one live session at a time. It connects to the
// remote provider, streams captured microphone frames up, and consumes the
// provider's serialized event stream in a single goroutine: transcript
// fragments feed the per-role accumulators, audio chunks are decoded and
// scheduled for gapless playback, turn boundaries finalize transcripts and
// dispatch embedded directives, and interruptions flush pending playback.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/droidvox/droidvox/internal/action"
	"github.com/droidvox/droidvox/internal/capture"
	"github.com/droidvox/droidvox/internal/observe"
	"github.com/droidvox/droidvox/internal/playback"
	"github.com/droidvox/droidvox/internal/transcript"
	"github.com/droidvox/droidvox/pkg/audio"
	"github.com/droidvox/droidvox/pkg/provider/live"
)

// State is the lifecycle phase of an [Engine].
type State int

const (
	// StateIdle means no session has been started yet, or the last one ended
	// and a new Start is allowed.
	StateIdle State = iota

	// StateConnecting means Start is establishing the remote session.
	StateConnecting

	// StateActive means the session is live: audio is streaming both ways.
	StateActive

	// StateClosed means the session ended cleanly (local Stop or remote close).
	StateClosed

	// StateFailed means the session ended with an error.
	StateFailed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// defaultConnectTimeout bounds how long Start waits for the remote session,
// including the setup acknowledgment.
const defaultConnectTimeout = 15 * time.Second

// uploadQueueDepth bounds captured frames queued for upload. At 4096 samples
// per 16 kHz frame this is roughly eight seconds of backlog before frames are
// dropped.
const uploadQueueDepth = 32

// ErrNotActive is returned by Stop when no session is running.
var ErrNotActive = errors.New("session: not active")

// Config holds the dependencies for an [Engine].
type Config struct {
	// Provider establishes remote live sessions.
	Provider live.Provider

	// Live is the session configuration passed to the provider on connect.
	Live live.Config

	// Source is the microphone input. The engine runs a capture graph over it
	// per session but never closes it, so a stopped engine can be started
	// again over the same source.
	Source capture.Source

	// Output is the audio output device playback is scheduled on.
	Output playback.Output

	// Dispatcher applies directives extracted from assistant turns.
	Dispatcher *action.Dispatcher

	// History receives finalized transcript turns.
	History *transcript.History

	// ConnectTimeout bounds session establishment, including the wait for the
	// remote setup acknowledgment. Zero selects the default of 15 seconds.
	ConnectTimeout time.Duration

	// Metrics receives session instrumentation. When nil the package-level
	// default instance is used.
	Metrics *observe.Metrics
}

// Engine is the session state machine. At most one live session runs at a
// time; Start on an already connecting or active engine is a no-op. All
// methods are safe for concurrent use.
type Engine struct {
	provider       live.Provider
	liveCfg        live.Config
	source         capture.Source
	output         playback.Output
	dispatcher     *action.Dispatcher
	history        *transcript.History
	connectTimeout time.Duration
	metrics        *observe.Metrics

	mu            sync.Mutex
	state         State
	sess          live.Session
	graph         *capture.Graph
	sched         *playback.Scheduler
	stopping      bool
	connectCancel context.CancelFunc
	captureErr    error

	wg sync.WaitGroup

	// Run-loop-owned; never touched outside the run goroutine.
	userAcc *transcript.Accumulator
	asstAcc *transcript.Accumulator
}

// NewEngine creates an idle Engine from cfg.
func NewEngine(cfg Config) *Engine {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Engine{
		provider:       cfg.Provider,
		liveCfg:        cfg.Live,
		source:         cfg.Source,
		output:         cfg.Output,
		dispatcher:     cfg.Dispatcher,
		history:        cfg.History,
		connectTimeout: timeout,
		metrics:        metrics,
		state:          StateIdle,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start establishes a live session and begins streaming. It blocks until the
// remote acknowledges setup; capture starts only once the session is ready to
// accept audio. Calling Start while a session is connecting or active is a
// no-op. A failed or closed engine can be started again.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateConnecting || e.state == StateActive {
		e.mu.Unlock()
		slog.Debug("session already running, ignoring start")
		return nil
	}
	e.state = StateConnecting
	e.stopping = false
	connectCtx, cancel := context.WithTimeout(ctx, e.connectTimeout)
	e.connectCancel = cancel
	e.mu.Unlock()
	defer cancel()

	connectStart := time.Now()
	sess, err := e.provider.Connect(connectCtx, e.liveCfg)
	e.metrics.ConnectDuration.Record(ctx, time.Since(connectStart).Seconds())
	if err != nil {
		return e.abortStart(nil, fmt.Errorf("session: connect: %w", err))
	}

	// The remote is not ready for audio until it acknowledges setup; the
	// connect timeout keeps running while we wait.
	if err := awaitOpen(connectCtx, sess); err != nil {
		return e.abortStart(sess, fmt.Errorf("session: awaiting open: %w", err))
	}

	sched := playback.NewScheduler(e.output)
	sendQ := make(chan audio.Frame, uploadQueueDepth)
	graph := capture.NewGraph(e.source, func(f audio.Frame) {
		e.enqueueFrame(sendQ, f)
	}, capture.WithErrorHandler(func(err error) {
		// A dead microphone ends the session; the run loop sees the event
		// stream close and records the failure.
		slog.Error("capture failed, ending session", "err", err)
		e.mu.Lock()
		e.captureErr = err
		e.mu.Unlock()
		_ = sess.Close()
	}))

	e.mu.Lock()
	// A Stop issued while connecting discards the session instead of going
	// active, even when the connect resolved after the stop.
	if e.stopping {
		e.mu.Unlock()
		return e.abortStart(sess, nil)
	}
	e.sess = sess
	e.sched = sched
	e.graph = graph
	e.state = StateActive
	e.connectCancel = nil
	e.captureErr = nil
	e.mu.Unlock()

	e.userAcc = transcript.NewAccumulator(transcript.RoleUser)
	e.asstAcc = transcript.NewAccumulator(transcript.RoleAssistant)

	e.wg.Add(2)
	go e.sendLoop(sess, sendQ)
	go e.run(sess, sched, graph, sendQ)

	graph.Start()
	e.metrics.ActiveSessions.Add(context.Background(), 1)
	slog.Info("session active")
	return nil
}

// abortStart tears down a session that never went active. A start aborted by
// a concurrent Stop ends in StateClosed and reports no error; anything else
// ends in StateFailed.
func (e *Engine) abortStart(sess live.Session, err error) error {
	if sess != nil {
		_ = sess.Close()
	}

	e.mu.Lock()
	stopped := e.stopping
	if stopped {
		e.state = StateClosed
	} else {
		e.state = StateFailed
	}
	e.connectCancel = nil
	e.mu.Unlock()

	if stopped {
		slog.Info("start aborted by stop, session discarded")
		return nil
	}
	return err
}

// awaitOpen consumes events until the remote acknowledges setup. No content
// events are expected before the acknowledgment; stray ones are discarded.
func awaitOpen(ctx context.Context, sess live.Session) error {
	for {
		select {
		case ev, ok := <-sess.Events():
			if !ok {
				return errors.New("event stream ended before open")
			}
			switch ev.Type {
			case live.EventOpen:
				return nil
			case live.EventError:
				if ev.Err != nil {
					return ev.Err
				}
				return errors.New("remote error before open")
			case live.EventClosed:
				return errors.New("remote closed before open")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop ends the session. On an active session it blocks until the run loop
// has exited and all resources are released; on a connecting one it aborts
// the connect, and any session that resolves afterwards is discarded. Returns
// [ErrNotActive] if nothing is running.
func (e *Engine) Stop() error {
	e.mu.Lock()
	switch e.state {
	case StateConnecting:
		e.stopping = true
		cancel := e.connectCancel
		e.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil

	case StateActive:
		e.stopping = true
		sess := e.sess
		e.mu.Unlock()

		// Closing the session ends the event stream; the run loop performs
		// the rest of the teardown on exit.
		if err := sess.Close(); err != nil {
			slog.Warn("session close error", "err", err)
		}
		e.wg.Wait()
		return nil

	default:
		e.mu.Unlock()
		return ErrNotActive
	}
}

// enqueueFrame hands one captured frame to the upload loop without ever
// blocking the capture goroutine. When the transport falls behind, the oldest
// queued frame is dropped to keep capture realtime.
func (e *Engine) enqueueFrame(sendQ chan audio.Frame, f audio.Frame) {
	for {
		select {
		case sendQ <- f:
			return
		default:
		}
		select {
		case <-sendQ:
			slog.Debug("upload queue full, dropping oldest frame")
			e.metrics.RecordUploadDrop(context.Background())
		default:
		}
	}
}

// sendLoop drains the upload queue onto the wire. It exits when teardown
// closes the queue; upload errors drop the frame, since a dying transport
// also ends the event stream and with it the session.
func (e *Engine) sendLoop(sess live.Session, sendQ <-chan audio.Frame) {
	defer e.wg.Done()

	for f := range sendQ {
		if err := sess.SendAudio(audio.EncodeFrame(f)); err != nil {
			slog.Debug("audio upload failed", "err", err)
			continue
		}
		e.metrics.RecordAudioChunk(context.Background(), "up")
	}
}

// run is the single-consumer event loop. Everything downstream of the remote
// session — accumulators, playback scheduling, dispatch — is driven from this
// goroutine only, so no per-event locking is needed.
func (e *Engine) run(sess live.Session, sched *playback.Scheduler, graph *capture.Graph, sendQ chan audio.Frame) {
	defer e.wg.Done()

	final := StateClosed
	for ev := range sess.Events() {
		switch ev.Type {
		case live.EventOpen:
			slog.Debug("remote re-acknowledged setup")

		case live.EventInputText:
			e.userAcc.Append(ev.Text)

		case live.EventOutputText:
			e.asstAcc.Append(ev.Text)

		case live.EventAudio:
			e.playChunk(sched, ev.AudioChunk)

		case live.EventTurnComplete:
			e.finishTurn()

		case live.EventInterrupted:
			slog.Info("assistant interrupted, flushing playback")
			sched.StopAll()

		case live.EventError:
			slog.Error("session failed", "err", ev.Err)
			final = StateFailed
		case live.EventClosed:
			slog.Info("remote closed session")
		}
	}

	// A capture failure is a session failure; a locally initiated Stop is a
	// clean close regardless of how the event stream ended.
	e.mu.Lock()
	if e.captureErr != nil {
		final = StateFailed
	}
	if e.stopping {
		final = StateClosed
	}
	e.mu.Unlock()

	e.teardown(sess, sched, graph, sendQ, final)
}

// playChunk decodes one wire chunk and schedules it for playback. Malformed
// chunks are dropped; a bad chunk must never end the session.
func (e *Engine) playChunk(sched *playback.Scheduler, wireChunk string) {
	pcm, err := audio.Decode(wireChunk)
	if err != nil {
		slog.Warn("dropping undecodable audio chunk", "err", err)
		e.metrics.RecordDecodeError(context.Background())
		return
	}
	buf, err := audio.ToBuffer(pcm, audio.PlaybackSampleRate, 1)
	if err != nil {
		slog.Warn("dropping malformed audio chunk", "err", err)
		e.metrics.RecordDecodeError(context.Background())
		return
	}
	e.metrics.RecordAudioChunk(context.Background(), "down")
	sched.Schedule(buf)
}

// finishTurn finalizes both accumulators at a turn boundary, publishes the
// non-empty turns to history, and dispatches directives embedded in the
// assistant's reply. The user turn is published first to preserve
// conversational order.
func (e *Engine) finishTurn() {
	ctx := context.Background()

	if userTurn := e.userAcc.Finalize(); userTurn.Text != "" {
		e.history.Append(userTurn)
		e.metrics.RecordTurn(ctx, string(userTurn.Role))
	}

	asstTurn := e.asstAcc.Finalize()
	directives, display := action.Scan(asstTurn.Text)
	if display != "" {
		asstTurn.Text = display
		e.history.Append(asstTurn)
		e.metrics.RecordTurn(ctx, string(asstTurn.Role))
	}

	for _, dir := range directives {
		e.metrics.RecordDirective(ctx, dir.Name)
	}
	e.dispatcher.Dispatch(directives)
}

// teardown releases session resources in reverse order of acquisition:
// capture first so no more audio is produced, then the upload queue, the
// remote session, and scheduled playback. The source itself stays open for a
// future Start.
func (e *Engine) teardown(sess live.Session, sched *playback.Scheduler, graph *capture.Graph, sendQ chan audio.Frame, final State) {
	graph.Stop()
	// Stop guarantees no sink call after it returns, so closing the queue
	// cannot race an enqueue.
	close(sendQ)
	if err := sess.Close(); err != nil {
		slog.Warn("session close error", "err", err)
	}
	sched.StopAll()

	e.mu.Lock()
	e.sess = nil
	e.sched = nil
	e.graph = nil
	e.state = final
	e.mu.Unlock()

	e.metrics.ActiveSessions.Add(context.Background(), -1)
	slog.Info("session ended", "state", final.String())
}
