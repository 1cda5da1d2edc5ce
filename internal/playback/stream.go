package playback

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/droidvox/droidvox/pkg/audio"
)

// WriterOutput implements [Output] against a byte stream: scheduled buffers
// are written as raw s16le PCM to w when their start time arrives on the
// wall clock. Writes are serialized, so back-to-back buffers come out in
// schedule order. Suited to piping into an external player.
type WriterOutput struct {
	w     io.Writer
	epoch time.Time

	writeMu sync.Mutex
}

var _ Output = (*WriterOutput)(nil)

// NewWriterOutput creates a WriterOutput whose timeline starts now.
func NewWriterOutput(w io.Writer) *WriterOutput {
	return &WriterOutput{w: w, epoch: time.Now()}
}

// Now returns the current position on the output timeline.
func (o *WriterOutput) Now() time.Duration {
	return time.Since(o.epoch)
}

// PlayAt schedules buf to be written when the timeline reaches at. The
// returned handle cancels the write if it has not happened yet.
func (o *WriterOutput) PlayAt(buf audio.Buffer, at time.Duration) (Handle, error) {
	h := &writerHandle{stop: make(chan struct{})}

	delay := at - o.Now()
	go func() {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-h.stop:
				return
			}
		}
		select {
		case <-h.stop:
			return
		default:
		}

		o.writeMu.Lock()
		_, err := o.w.Write(samplesToBytes(buf.Samples))
		o.writeMu.Unlock()
		if err != nil {
			slog.Warn("playback write failed", "err", err)
		}
	}()

	return h, nil
}

// writerHandle cancels a pending write.
type writerHandle struct {
	once sync.Once
	stop chan struct{}
}

func (h *writerHandle) Stop() {
	h.once.Do(func() { close(h.stop) })
}

// samplesToBytes converts normalised samples to little-endian s16 PCM bytes,
// clamping out-of-range values.
func samplesToBytes(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(math.Max(-32768, math.Min(32767, float64(s)*32768)))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}
