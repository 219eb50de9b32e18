// Package stt defines the Provider interface for speech-to-text backends.
//
// The guard's audio shell buffers microphone PCM and periodically hands a
// window of samples to a provider for transcription. A provider wraps a
// local or remote recognition model (e.g., whisper.cpp) behind a single
// synchronous call; the engine only consumes recognized text.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Transcript is the result of transcribing one audio window.
type Transcript struct {
	// Text is the recognized text, trimmed. May be empty when nothing
	// intelligible was spoken.
	Text string

	// NoSpeechProb is the model's probability that the window contained no
	// speech at all. Windows with NoSpeechProb >= 0.5 should be discarded
	// by the caller.
	NoSpeechProb float64
}

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Transcribe runs recognition over a window of mono float32 PCM samples
	// in [-1, 1]. The sample rate is fixed at construction time
	// (16 kHz for whisper models).
	Transcribe(ctx context.Context, samples []float32) (Transcript, error)

	// Close releases the underlying model. Safe to call more than once.
	Close() error
}
