// Package audio provides the PCM types and wire codec used across the
// DroidVox pipeline.
//
// Two representations exist: [Frame], the atomic capture unit (a fixed-size
// block of normalised mono samples headed for the uplink), and [Buffer], a
// decoded block of playable audio produced from downlink chunks. The wire
// representation is base64-encoded little-endian signed 16-bit PCM, matching
// the Gemini Live media-chunk format.
package audio

import "time"

// CaptureSampleRate is the sample rate of microphone input sent to the model.
const CaptureSampleRate = 16000

// PlaybackSampleRate is the sample rate of synthesised audio returned by the
// model.
const PlaybackSampleRate = 24000

// FrameSamples is the number of samples in one capture frame.
const FrameSamples = 4096

// Frame is a fixed-length block of mono audio samples in the normalised
// floating range [-1, 1]. Frames are immutable once produced by the capture
// graph.
type Frame struct {
	// Samples holds exactly [FrameSamples] values for frames produced by the
	// capture graph. The codec accepts arbitrary lengths.
	Samples []float32

	// SampleRate in Hz.
	SampleRate int
}

// Buffer is a decoded block of playable audio.
type Buffer struct {
	// Samples are interleaved normalised samples in [-1, 1].
	Samples []float32

	// SampleRate in Hz.
	SampleRate int

	// Channels is the interleave factor. 1 for mono.
	Channels int
}

// Duration returns the playback duration of the buffer. A buffer with a
// non-positive sample rate or channel count has zero duration.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}
