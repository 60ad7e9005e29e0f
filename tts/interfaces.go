// Package tts turns document pages into an ordered, continuously playable
// stream of synthesized audio clips.
package tts

import (
	"context"
	"time"
)

// SynthesisOptions carries the per-request voice settings for an Engine.
type SynthesisOptions struct {
	// Voice is the engine voice short name, e.g. "en-US-AvaMultilingualNeural".
	Voice string

	// Rate is a signed percentage prosody adjustment, e.g. "+35%".
	Rate string

	// Language is the detected language code of the text, e.g. "en".
	Language string
}

// ChunkType discriminates the payloads an Engine streams back.
type ChunkType int

const (
	// ChunkAudio carries a slice of encoded audio bytes.
	ChunkAudio ChunkType = iota
	// ChunkWordBoundary marks the time offset of a spoken word.
	ChunkWordBoundary
)

// Chunk is one element of an Engine's synthesis stream.
type Chunk struct {
	Type   ChunkType
	Data   []byte        // audio bytes for ChunkAudio
	Text   string        // spoken word for ChunkWordBoundary
	Offset time.Duration // word offset for ChunkWordBoundary
}

// Engine is the remote speech synthesis collaborator. Implementations stream
// chunks on the first channel and report the terminal outcome on the second:
// the chunk channel is closed when the stream ends, then exactly one error
// (or nil) is delivered.
type Engine interface {
	// Synthesize converts text into a stream of audio chunks.
	Synthesize(ctx context.Context, text string, opts SynthesisOptions) (<-chan Chunk, <-chan error)

	// Name identifies the engine for logs and status events.
	Name() string
}

// Voice describes one voice offered by an Engine.
type Voice struct {
	ShortName    string `json:"ShortName"`
	Locale       string `json:"Locale"`
	Gender       string `json:"Gender"`
	FriendlyName string `json:"FriendlyName"`
}

// Device is the exclusive audio output collaborator. Loading a new clip while
// one is playing stops the previous one first.
type Device interface {
	// Load prepares the clip at path for playback.
	Load(path string) error

	// Play starts playback of the loaded clip.
	Play() error

	// Stop halts playback immediately.
	Stop() error

	// IsBusy reports whether a clip is currently playing.
	IsBusy() bool

	// Close releases the device.
	Close() error
}

// Clip is one cached audio artifact corresponding to exactly one phrase.
// Immutable once written; owned by the clip store.
type Clip struct {
	Key  string
	Path string
}

// ClipStore is the content-addressed audio cache consumed by page runs.
type ClipStore interface {
	// Ensure returns the clip for a phrase, synthesizing it on a miss.
	Ensure(ctx context.Context, phrase string, opts SynthesisOptions) (Clip, error)
}

// Extractor is the document parsing collaborator.
type Extractor interface {
	// PageCount returns the number of pages in the document at path.
	PageCount(path string) (int, error)

	// PageText returns the raw text of a 0-based page.
	PageText(path string, page int) (string, error)
}
