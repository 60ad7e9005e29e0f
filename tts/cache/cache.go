// Package cache provides a content-addressed on-disk store for synthesized
// audio clips.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/charlesneimog/pdftts/tts"
)

// Cache maps normalized phrase text to synthesized audio files on disk.
// Ensure is idempotent and de-duplicating: identical phrases anywhere in a
// document share one clip, and concurrent misses for the same key collapse
// into a single synthesis call.
type Cache struct {
	dir        string
	engine     tts.Engine
	maxRetries int
	retryDelay time.Duration

	group singleflight.Group
}

// New creates the cache directory and returns a cache backed by engine.
func New(dir string, engine tts.Engine, maxRetries int, retryDelay time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Cache{
		dir:        dir,
		engine:     engine,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

// Key computes the content address of a phrase: the SHA-256 digest of the
// whitespace-trimmed text. Voice and rate are deliberately not part of the
// key, so a clip cached under one voice is reused after a voice change; the
// cache directory is recycled per session, which bounds the staleness.
func Key(phrase string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(phrase)))
	return hex.EncodeToString(sum[:])
}

// Path returns the on-disk location for a key.
func (c *Cache) Path(key string) string {
	return filepath.Join(c.dir, key+".mp3")
}

// Exists reports whether a clip for the key is already on disk.
func (c *Cache) Exists(key string) bool {
	info, err := os.Stat(c.Path(key))
	return err == nil && !info.IsDir()
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Ensure returns the clip for a phrase, synthesizing and caching it on a
// miss. Two concurrent calls for the same key perform one synthesis; the
// second observes the first's result.
func (c *Cache) Ensure(ctx context.Context, phrase string, opts tts.SynthesisOptions) (tts.Clip, error) {
	key := Key(phrase)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		clip := tts.Clip{Key: key, Path: c.Path(key)}
		if c.Exists(key) {
			return clip, nil
		}

		data, err := c.synthesize(ctx, phrase, opts)
		if err != nil {
			return tts.Clip{}, err
		}
		if err := writeAtomic(clip.Path, data); err != nil {
			// A failed write counts as a synthesis failure for this phrase.
			return tts.Clip{}, fmt.Errorf("%w: cache write: %v", tts.ErrSynthesisFailed, err)
		}
		return clip, nil
	})
	if err != nil {
		return tts.Clip{}, err
	}
	return v.(tts.Clip), nil
}

// Destroy removes the whole cache directory. Called at session teardown.
func (c *Cache) Destroy() error {
	return os.RemoveAll(c.dir)
}

// synthesize calls the engine with the configured retry budget, assembling
// the chunk stream into a complete audio blob.
func (c *Cache) synthesize(ctx context.Context, phrase string, opts tts.SynthesisOptions) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		data, err := c.collect(ctx, phrase, opts)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", tts.ErrSynthesisFailed, c.maxRetries, lastErr)
}

// collect runs one synthesis attempt and assembles the audio chunks.
func (c *Cache) collect(ctx context.Context, phrase string, opts tts.SynthesisOptions) ([]byte, error) {
	chunks, errc := c.engine.Synthesize(ctx, phrase, opts)

	var buf bytes.Buffer
	for chunk := range chunks {
		if chunk.Type == tts.ChunkAudio {
			buf.Write(chunk.Data)
		}
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("engine %s returned no audio", c.engine.Name())
	}
	return buf.Bytes(), nil
}

// writeAtomic writes to a temp file and renames it into place, so a clip is
// either fully present or absent.
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}
