// Package live defines the Provider interface for realtime voice backends.
//
// A live provider wraps a bidirectional streaming AI service that accepts raw
// audio input and returns synthesised audio plus transcription in a single,
// stateful session. The central abstraction is [Session]: audio goes up via
// SendAudio, everything coming down — the open acknowledgment, transcript
// fragments, audio chunks, turn boundaries, errors, and the close — arrives
// as a serialized [Event] stream with single-consumer semantics, so the
// caller never deals with interleaved callbacks.
//
// All implementations must be safe for concurrent use.
package live

import "context"

// EventType discriminates the [Event] union.
type EventType int

const (
	// EventOpen acknowledges session setup; the session is ready for audio.
	EventOpen EventType = iota

	// EventInputText carries a partial transcript fragment of user speech.
	EventInputText

	// EventOutputText carries a partial transcript fragment of the model's
	// spoken reply.
	EventOutputText

	// EventAudio carries a wire-encoded audio chunk of the model's reply.
	EventAudio

	// EventTurnComplete marks the boundary of a conversational exchange.
	EventTurnComplete

	// EventInterrupted signals that the model's reply was cut off (barge-in);
	// buffered playback should be discarded.
	EventInterrupted

	// EventError reports a session-level failure. The session is dead.
	EventError

	// EventClosed reports a clean remote close. Always the final event.
	EventClosed
)

// String returns the event type name for logs.
func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventInputText:
		return "input_text"
	case EventOutputText:
		return "output_text"
	case EventAudio:
		return "audio"
	case EventTurnComplete:
		return "turn_complete"
	case EventInterrupted:
		return "interrupted"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	}
	return "unknown"
}

// Event is one message from the remote session.
type Event struct {
	Type EventType

	// Text is the transcript fragment for input/output text events.
	Text string

	// AudioChunk is the base64 wire encoding of a PCM chunk for audio events.
	// Decoding is the caller's concern so that malformed chunks can be
	// dropped without killing the receive loop.
	AudioChunk string

	// Err is the failure for error events.
	Err error
}

// Config is the initial configuration for a new live session.
type Config struct {
	// Instructions is the system prompt defining the assistant's behaviour.
	Instructions string

	// Voice selects the prebuilt voice for synthesised speech.
	Voice string

	// InputSampleRate is the PCM rate of uploaded audio, in Hz.
	InputSampleRate int
}

// Session is an open realtime session.
//
// SendAudio is safe to call from any goroutine; it delivers one wire-encoded
// PCM chunk and returns an error if the session is closed or the transport
// rejects the write. Events returns the session's event stream; it is closed
// after the final EventError or EventClosed. Close terminates the session and
// is idempotent.
type Session interface {
	SendAudio(wireChunk string) error
	Events() <-chan Event
	Close() error
}

// Provider is the abstraction over any realtime voice backend.
type Provider interface {
	// Connect establishes a new session. The returned Session is ready to
	// accept audio once EventOpen has been observed. The caller owns the
	// Session and must call Close.
	Connect(ctx context.Context, cfg Config) (Session, error)
}
