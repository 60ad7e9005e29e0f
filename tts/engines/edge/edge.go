// Package edge synthesizes speech through the Microsoft Edge read-aloud
// websocket service. The service is free and needs no API key, so requests
// are rate limited to stay under its abuse thresholds.
package edge

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/charlesneimog/pdftts/tts"
)

const defaultRequestsPerMinute = 60

// Engine is a tts.Engine backed by the Edge read-aloud service. Each
// Synthesize call opens its own websocket connection; the Engine itself
// only carries shared configuration and the rate limiter, so it is safe
// for concurrent use.
type Engine struct {
	dialer  *websocket.Dialer
	limiter *rate.Limiter
}

// Option configures an Engine.
type Option func(*Engine)

// WithRequestsPerMinute overrides the request rate limit.
func WithRequestsPerMinute(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

// New creates an Edge engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/defaultRequestsPerMinute), 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name identifies the engine in logs.
func (e *Engine) Name() string {
	return "edge"
}

// Synthesize streams speech for text over a fresh websocket connection.
// Audio arrives as ChunkAudio chunks in order; word boundary metadata is
// surfaced as ChunkWordBoundary chunks. The error channel delivers at most
// one error and both channels close when the stream ends.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthesisOptions) (<-chan tts.Chunk, <-chan error) {
	chunks := make(chan tts.Chunk, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errc)

		if err := e.limiter.Wait(ctx); err != nil {
			errc <- err
			return
		}
		if err := e.stream(ctx, text, opts, chunks); err != nil {
			errc <- err
		}
	}()

	return chunks, errc
}

// stream runs one request/response exchange and forwards parsed frames.
func (e *Engine) stream(ctx context.Context, text string, opts tts.SynthesisOptions, chunks chan<- tts.Chunk) error {
	requestID := newRequestID()

	header := http.Header{}
	header.Set("User-Agent", chromeUA)
	header.Set("Origin", chromeOrigin)

	url := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", wssEndpoint, trustedToken, requestID)
	conn, _, err := e.dialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("dialing read-aloud service: %w", err)
	}
	defer conn.Close()

	// Unblock blocked reads when the caller gives up.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfigMessage())); err != nil {
		return fmt.Errorf("sending speech config: %w", err)
	}

	ssml := buildSSML(text, opts.Voice, opts.Rate, locale(opts))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMessage(requestID, ssml))); err != nil {
		return fmt.Errorf("sending ssml: %w", err)
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading from read-aloud service: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			msg, err := parseTextMessage(data)
			if err != nil {
				return err
			}
			switch msg.path() {
			case pathTurnEnd:
				return nil
			case pathAudioMetadata:
				if err := forwardBoundaries(ctx, msg.body, chunks); err != nil {
					return err
				}
			}

		case websocket.BinaryMessage:
			path, audio, err := parseBinaryMessage(data)
			if err != nil {
				return err
			}
			if path != pathAudio || len(audio) == 0 {
				continue
			}
			select {
			case chunks <- tts.Chunk{Type: tts.ChunkAudio, Data: audio}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// forwardBoundaries converts word boundary metadata into chunks.
func forwardBoundaries(ctx context.Context, body []byte, chunks chan<- tts.Chunk) error {
	md, err := parseBoundaryMetadata(body)
	if err != nil {
		return err
	}
	for _, m := range md.Metadata {
		if m.Type != "WordBoundary" {
			continue
		}
		chunk := tts.Chunk{
			Type:   tts.ChunkWordBoundary,
			Text:   m.Data.Text.Text,
			Offset: time.Duration(m.Data.Offset) * 100 * time.Nanosecond,
		}
		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// locale maps a two-letter language hint onto the SSML xml:lang attribute.
func locale(opts tts.SynthesisOptions) string {
	switch opts.Language {
	case "", "en":
		return "en-US"
	case "pt":
		return "pt-BR"
	case "es":
		return "es-ES"
	case "fr":
		return "fr-FR"
	case "de":
		return "de-DE"
	case "it":
		return "it-IT"
	default:
		return opts.Language
	}
}
