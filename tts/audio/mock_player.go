package audio

import (
	"sync"
	"time"
)

// MockDevice simulates playback with configurable per-clip durations and
// records every call for test verification. Safe for concurrent use.
type MockDevice struct {
	mu       sync.Mutex
	loaded   string
	busy     bool
	until    time.Time
	duration time.Duration
	history  []string

	// Error injection.
	LoadErr error
	PlayErr error
	StopErr error
}

// NewMockDevice creates a mock device whose clips "play" for the given
// duration. Zero means clips finish instantly.
func NewMockDevice(clipDuration time.Duration) *MockDevice {
	return &MockDevice{duration: clipDuration}
}

// Load records the clip path.
func (d *MockDevice) Load(path string) error {
	if d.LoadErr != nil {
		return d.LoadErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = path
	d.busy = false
	d.history = append(d.history, "load:"+path)
	return nil
}

// Play marks the device busy for the configured duration.
func (d *MockDevice) Play() error {
	if d.PlayErr != nil {
		return d.PlayErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = true
	d.until = time.Now().Add(d.duration)
	d.history = append(d.history, "play:"+d.loaded)
	return nil
}

// Stop clears the busy flag.
func (d *MockDevice) Stop() error {
	if d.StopErr != nil {
		return d.StopErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
	d.history = append(d.history, "stop")
	return nil
}

// IsBusy reports whether the simulated clip is still within its duration.
func (d *MockDevice) IsBusy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.busy && time.Now().After(d.until) {
		d.busy = false
	}
	return d.busy
}

// Close records shutdown.
func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
	d.history = append(d.history, "close")
	return nil
}

// History returns the recorded calls in order.
func (d *MockDevice) History() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.history))
	copy(out, d.history)
	return out
}

// Played returns the paths of clips that reached Play, in order.
func (d *MockDevice) Played() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []string
	for _, h := range d.history {
		if len(h) > 5 && h[:5] == "play:" {
			out = append(out, h[5:])
		}
	}
	return out
}
