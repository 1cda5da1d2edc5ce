// Package capture turns a continuous microphone stream into fixed-size audio
// frames for streaming upload.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/droidvox/droidvox/pkg/audio"
)

// Source abstracts a live microphone input.
//
// Read blocks until samples are available and returns a chunk of normalised
// mono samples of arbitrary length. It must respect context cancellation.
// Close releases the underlying device and is safe to call multiple times.
// The graph never calls Close: ownership stays with whoever opened the
// source, so one source can feed a sequence of graphs.
type Source interface {
	Read(ctx context.Context) ([]float32, error)
	Close() error
}

// Sink receives one fixed-size frame per invocation. Delivery is
// fire-and-forget: a slow or failing sink must not block frame production,
// so implementations hand off quickly and never panic.
type Sink func(frame audio.Frame)

// Option is a functional option for configuring a [Graph].
type Option func(*Graph)

// WithFrameSamples overrides the frame size. The default is
// [audio.FrameSamples].
func WithFrameSamples(n int) Option {
	return func(g *Graph) { g.frameSamples = n }
}

// WithSampleRate overrides the capture sample rate recorded on each frame.
// The default is [audio.CaptureSampleRate].
func WithSampleRate(rate int) Option {
	return func(g *Graph) { g.sampleRate = rate }
}

// WithErrorHandler registers fn to be called once if the source fails
// mid-stream. fn is not called for cancellation caused by Stop.
func WithErrorHandler(fn func(error)) Option {
	return func(g *Graph) { g.onError = fn }
}

// Graph refragments a continuous sample stream into fixed-size frames and
// hands each frame to the sink. It runs for the lifetime of an active session
// and stops deterministically: no frame is delivered after Stop returns, even
// for in-flight source reads.
type Graph struct {
	src          Source
	sink         Sink
	frameSamples int
	sampleRate   int
	onError      func(error)

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// NewGraph creates a Graph reading from src and delivering frames to sink.
func NewGraph(src Source, sink Sink, opts ...Option) *Graph {
	g := &Graph{
		src:          src,
		sink:         sink,
		frameSamples: audio.FrameSamples,
		sampleRate:   audio.CaptureSampleRate,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start begins frame production. Calling Start on a running graph is a no-op.
func (g *Graph) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return
	}
	g.started = true

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel

	g.wg.Add(1)
	go g.run(ctx)
}

// Stop halts frame production. It blocks until the production goroutine has
// exited, so no sink call happens after Stop returns. The source stays open
// and can feed another graph afterwards. Safe to call multiple times.
func (g *Graph) Stop() {
	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return
	}
	g.started = false
	cancel := g.cancel
	g.mu.Unlock()

	cancel()
	g.wg.Wait()
}

// run accumulates source chunks into a rolling buffer and emits one frame per
// frameSamples samples. A read that resolves after cancellation is discarded.
func (g *Graph) run(ctx context.Context) {
	defer g.wg.Done()

	var pending []float32
	for {
		chunk, err := g.src.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			slog.Error("capture source read failed", "err", err)
			if g.onError != nil {
				g.onError(err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		pending = append(pending, chunk...)
		for len(pending) >= g.frameSamples {
			if ctx.Err() != nil {
				return
			}
			frame := audio.Frame{
				Samples:    append([]float32(nil), pending[:g.frameSamples]...),
				SampleRate: g.sampleRate,
			}
			pending = pending[g.frameSamples:]
			g.sink(frame)
		}
	}
}
