// Package mock provides a scripted speech engine for tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charlesneimog/pdftts/tts"
)

// Engine is a tts.Engine that fabricates audio instead of calling a real
// service. Failures can be scripted per text or for the first N calls, and
// every synthesized text is recorded. Safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	delay     time.Duration
	failTexts map[string]error
	failFirst int
	calls     []string
}

// New creates a mock engine with no delay and no scripted failures.
func New() *Engine {
	return &Engine{failTexts: make(map[string]error)}
}

// SetDelay makes every call take at least d before producing audio.
func (e *Engine) SetDelay(d time.Duration) {
	e.mu.Lock()
	e.delay = d
	e.mu.Unlock()
}

// FailText scripts a permanent failure for an exact text.
func (e *Engine) FailText(text string, err error) {
	e.mu.Lock()
	e.failTexts[text] = err
	e.mu.Unlock()
}

// FailFirst makes the next n calls fail regardless of text.
func (e *Engine) FailFirst(n int) {
	e.mu.Lock()
	e.failFirst = n
	e.mu.Unlock()
}

// Calls returns the texts synthesized so far, in call order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallCount returns how many times Synthesize ran.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// Name identifies the engine in logs.
func (e *Engine) Name() string {
	return "mock"
}

// Synthesize emits fabricated audio derived from the text, or the scripted
// failure.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthesisOptions) (<-chan tts.Chunk, <-chan error) {
	chunks := make(chan tts.Chunk, 1)
	errc := make(chan error, 1)

	e.mu.Lock()
	e.calls = append(e.calls, text)
	delay := e.delay
	err, scripted := e.failTexts[text]
	if !scripted && e.failFirst > 0 {
		e.failFirst--
		err = fmt.Errorf("scripted failure for call %d", len(e.calls))
		scripted = true
	}
	e.mu.Unlock()

	go func() {
		defer close(chunks)
		defer close(errc)

		if delay > 0 {
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			case <-time.After(delay):
			}
		}
		if scripted {
			errc <- err
			return
		}

		data := []byte("MP3:" + text + ":" + opts.Voice + ":" + opts.Rate)
		select {
		case chunks <- tts.Chunk{Type: tts.ChunkAudio, Data: data}:
		case <-ctx.Done():
			errc <- ctx.Err()
		}
	}()

	return chunks, errc
}
