package tts

import "errors"

// Common errors for the document-to-speech pipeline.
var (
	// ErrSynthesisFailed is returned when the remote synthesis call failed
	// after exhausting its retry budget.
	ErrSynthesisFailed = errors.New("speech synthesis failed")

	// ErrExtractionFailed is returned when a page's text cannot be extracted.
	ErrExtractionFailed = errors.New("page text extraction failed")

	// ErrInvalidNavigation is returned for out-of-range page or phrase targets.
	ErrInvalidNavigation = errors.New("navigation target out of range")

	// ErrNoDocument is returned when an operation requires an open document.
	ErrNoDocument = errors.New("no document loaded")

	// ErrNothingToPlay is returned when playback is requested before any
	// phrase is ready.
	ErrNothingToPlay = errors.New("no phrases ready to play")

	// ErrRunStopped is returned by a page run once it has been canceled.
	ErrRunStopped = errors.New("page run stopped")
)
