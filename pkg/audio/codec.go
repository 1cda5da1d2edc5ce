package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrDecode reports a wire chunk that cannot be reconciled with s16le PCM.
// Callers must treat it as per-chunk: log, drop the chunk, keep the session.
var ErrDecode = errors.New("audio: decode")

// Encode converts normalised samples to the wire representation: each sample
// is scaled by 32768, clamped to the int16 range, and the resulting
// little-endian s16 byte stream is base64-encoded.
func Encode(samples []float32) string {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(s * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}
	return base64.StdEncoding.EncodeToString(pcm)
}

// EncodeFrame encodes a capture frame for transport.
func EncodeFrame(f Frame) string {
	return Encode(f.Samples)
}

// Decode converts a wire chunk back to raw s16le PCM bytes. Malformed base64
// or a byte count that is not a whole number of 16-bit samples returns an
// error wrapping [ErrDecode].
func Decode(chunk string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrDecode, err)
	}
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("%w: odd byte count %d", ErrDecode, len(pcm))
	}
	return pcm, nil
}

// ToBuffer converts raw s16le PCM bytes into a playable [Buffer], normalising
// each sample into [-1, 1). Accepts arbitrary-length input; remote audio
// arrives chunked at irregular sizes.
func ToBuffer(pcm []byte, sampleRate, channels int) (Buffer, error) {
	if len(pcm)%2 != 0 {
		return Buffer{}, fmt.Errorf("%w: odd byte count %d", ErrDecode, len(pcm))
	}
	if channels < 1 {
		channels = 1
	}
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		samples[i] = float32(v) / 32768
	}
	return Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}
