package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// readerChunkBytes is the raw read size per chunk: 100 ms of mono s16le at
// 16 kHz.
const readerChunkBytes = 3200

// ReaderSource adapts a stream of raw s16le PCM (a pipe, a file, stdin) into
// a [Source]. Reads happen on an internal goroutine so that Read honours
// context cancellation even when the underlying reader blocks.
type ReaderSource struct {
	r io.Reader

	startOnce sync.Once
	chunks    chan []float32
	errs      chan error

	closeOnce sync.Once
}

var _ Source = (*ReaderSource)(nil)

// NewReaderSource creates a ReaderSource reading PCM from r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{
		r:      r,
		chunks: make(chan []float32, 4),
		errs:   make(chan error, 1),
	}
}

// Read returns the next chunk of normalised samples. It blocks until data
// arrives, the stream ends, or ctx is cancelled.
func (s *ReaderSource) Read(ctx context.Context) ([]float32, error) {
	s.startOnce.Do(func() { go s.pump() })

	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			return nil, <-s.errs
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// pump reads fixed-size byte chunks and converts them to samples until the
// stream errors or ends.
func (s *ReaderSource) pump() {
	defer close(s.chunks)

	buf := make([]byte, readerChunkBytes)
	for {
		n, err := io.ReadAtLeast(s.r, buf, 2)
		if n >= 2 {
			s.chunks <- bytesToSamples(buf[:n-n%2])
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				s.errs <- fmt.Errorf("capture: input stream ended: %w", io.EOF)
			} else {
				s.errs <- fmt.Errorf("capture: read input: %w", err)
			}
			return
		}
	}
}

// Close closes the underlying reader when it supports closing. Safe to call
// multiple times.
func (s *ReaderSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if c, ok := s.r.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

// bytesToSamples converts little-endian s16 PCM bytes to normalised samples.
func bytesToSamples(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}
	return samples
}
