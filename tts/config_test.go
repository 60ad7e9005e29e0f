package tts

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"negative rate", func(c *Config) { c.Rate = "-10%" }, true},
		{"empty voice", func(c *Config) { c.Voice = "" }, false},
		{"rate without sign", func(c *Config) { c.Rate = "35%" }, false},
		{"rate without percent", func(c *Config) { c.Rate = "+35" }, false},
		{"rate garbage", func(c *Config) { c.Rate = "fast" }, false},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, false},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }, false},
		{"negative preload", func(c *Config) { c.PreloadNext = -1 }, false},
		{"zero preload", func(c *Config) { c.PreloadNext = 0 }, true},
		{"zero threshold", func(c *Config) { c.PreloadThreshold = 0 }, false},
		{"zero busy poll", func(c *Config) { c.BusyPoll = 0 }, false},
		{"zero stop timeout", func(c *Config) { c.StopTimeout = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Voice != "en-US-AvaMultilingualNeural" {
		t.Errorf("voice = %q", cfg.Voice)
	}
	if cfg.Rate != "+35%" {
		t.Errorf("rate = %q", cfg.Rate)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("max retries = %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("retry delay = %s", cfg.RetryDelay)
	}
	if cfg.PreloadNext != 2 {
		t.Errorf("preload next = %d", cfg.PreloadNext)
	}
	if cfg.CacheDir == "" {
		t.Error("cache dir empty")
	}
}
