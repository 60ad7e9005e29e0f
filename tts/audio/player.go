// Package audio plays synthesized clips through the system's audio output.
package audio

import (
	"fmt"
	"os"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
)

// Player decodes MP3 clips and plays them through an oto context. It
// implements the playback device interface the controller drives: one clip
// loaded at a time, Stop cuts playback immediately. Safe for concurrent use.
type Player struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
	player     *oto.Player
	file       *os.File
}

// NewPlayer creates a player. The underlying audio context is initialized
// lazily on the first Load, using that clip's sample rate.
func NewPlayer() *Player {
	return &Player{}
}

// Load prepares the MP3 clip at path for playback, replacing any clip
// loaded before it.
func (p *Player) Load(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening clip: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decoding clip %s: %w", path, err)
	}

	if err := p.ensureContextLocked(dec.SampleRate()); err != nil {
		f.Close()
		return err
	}
	if dec.SampleRate() != p.sampleRate {
		f.Close()
		return fmt.Errorf("clip sample rate %d does not match device rate %d", dec.SampleRate(), p.sampleRate)
	}

	p.file = f
	p.player = p.otoCtx.NewPlayer(dec)
	return nil
}

// Play starts playback of the loaded clip.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return fmt.Errorf("no clip loaded")
	}
	p.player.Play()
	return nil
}

// Stop halts playback and discards the loaded clip.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// IsBusy reports whether the loaded clip is still playing.
func (p *Player) IsBusy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player != nil && p.player.IsPlaying()
}

// Close releases the device. The oto context itself has no teardown; it
// lives until the process exits.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *Player) stopLocked() {
	if p.player != nil {
		p.player.Close()
		p.player = nil
	}
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
}

// ensureContextLocked initializes the oto context on first use. go-mp3
// always decodes to 16-bit stereo, whatever the source channel layout.
func (p *Player) ensureContextLocked(sampleRate int) error {
	if p.otoCtx != nil {
		return nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("initializing audio context: %w", err)
	}
	<-ready

	p.otoCtx = ctx
	p.sampleRate = sampleRate
	return nil
}
