package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Config contains all pipeline configuration options.
type Config struct {
	// Voice settings
	Voice    string `yaml:"voice" env:"PDFTTS_VOICE"`
	Rate     string `yaml:"rate" env:"PDFTTS_RATE"`
	Language string `yaml:"language" env:"PDFTTS_LANGUAGE"`

	// Synthesis settings
	MaxRetries int           `yaml:"max_retries" env:"PDFTTS_MAX_RETRIES"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"PDFTTS_RETRY_DELAY"`
	Workers    int           `yaml:"workers" env:"PDFTTS_WORKERS"`
	QueueSize  int           `yaml:"queue_size" env:"PDFTTS_QUEUE_SIZE"`

	// Preload settings
	PreloadNext      int           `yaml:"preload_next" env:"PDFTTS_PRELOAD_NEXT"`
	PreloadThreshold int           `yaml:"preload_threshold" env:"PDFTTS_PRELOAD_THRESHOLD"`
	ThrottleDelay    time.Duration `yaml:"throttle_delay" env:"PDFTTS_THROTTLE_DELAY"`

	// Playback settings
	BusyPoll    time.Duration `yaml:"busy_poll" env:"PDFTTS_BUSY_POLL"`
	StopTimeout time.Duration `yaml:"stop_timeout" env:"PDFTTS_STOP_TIMEOUT"`

	// Paths. Empty values are resolved at startup: the cache below the
	// system temp directory, the state file below the user config directory.
	CacheDir  string `yaml:"cache_dir" env:"PDFTTS_CACHE_DIR"`
	StateFile string `yaml:"state_file" env:"PDFTTS_STATE_FILE"`
}

// rateFormat matches signed percentage rates like "+35%" or "-10%".
var rateFormat = regexp.MustCompile(`^[+-]\d+%$`)

// DefaultConfig returns a Config with the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Voice:    "en-US-AvaMultilingualNeural",
		Rate:     "+35%",
		Language: "en",

		MaxRetries: 3,
		RetryDelay: time.Second,
		Workers:    2,
		QueueSize:  8,

		PreloadNext:      2,
		PreloadThreshold: 3,
		ThrottleDelay:    100 * time.Millisecond,

		BusyPoll:    100 * time.Millisecond,
		StopTimeout: 2 * time.Second,

		CacheDir: filepath.Join(os.TempDir(), "pdftts"),
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.Voice == "" {
		return fmt.Errorf("voice must not be empty")
	}
	if !rateFormat.MatchString(c.Rate) {
		return fmt.Errorf("rate %q must be a signed percentage like +35%%", c.Rate)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", c.QueueSize)
	}
	if c.PreloadNext < 0 {
		return fmt.Errorf("preload_next must not be negative, got %d", c.PreloadNext)
	}
	if c.PreloadThreshold < 1 {
		return fmt.Errorf("preload_threshold must be at least 1, got %d", c.PreloadThreshold)
	}
	if c.BusyPoll <= 0 {
		return fmt.Errorf("busy_poll must be positive, got %s", c.BusyPoll)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("stop_timeout must be positive, got %s", c.StopTimeout)
	}
	return nil
}
