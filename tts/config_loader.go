package tts

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads the pipeline configuration from Viper, starting
// from the defaults and overriding every key that is set.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("tts.voice") {
		cfg.Voice = viper.GetString("tts.voice")
	}
	if viper.IsSet("tts.rate") {
		cfg.Rate = viper.GetString("tts.rate")
	}
	if viper.IsSet("tts.language") {
		cfg.Language = viper.GetString("tts.language")
	}

	// Synthesis settings
	if viper.IsSet("tts.max_retries") {
		cfg.MaxRetries = viper.GetInt("tts.max_retries")
	}
	if viper.IsSet("tts.retry_delay") {
		cfg.RetryDelay = viper.GetDuration("tts.retry_delay")
	}
	if viper.IsSet("tts.workers") {
		cfg.Workers = viper.GetInt("tts.workers")
	}
	if viper.IsSet("tts.queue_size") {
		cfg.QueueSize = viper.GetInt("tts.queue_size")
	}

	// Preload settings
	if viper.IsSet("tts.preload_next") {
		cfg.PreloadNext = viper.GetInt("tts.preload_next")
	}
	if viper.IsSet("tts.preload_threshold") {
		cfg.PreloadThreshold = viper.GetInt("tts.preload_threshold")
	}
	if viper.IsSet("tts.throttle_delay") {
		cfg.ThrottleDelay = viper.GetDuration("tts.throttle_delay")
	}

	// Playback settings
	if viper.IsSet("tts.busy_poll") {
		cfg.BusyPoll = viper.GetDuration("tts.busy_poll")
	}
	if viper.IsSet("tts.stop_timeout") {
		cfg.StopTimeout = viper.GetDuration("tts.stop_timeout")
	}

	// Paths
	if viper.IsSet("tts.cache_dir") {
		cfg.CacheDir = viper.GetString("tts.cache_dir")
	}
	if viper.IsSet("tts.state_file") {
		cfg.StateFile = viper.GetString("tts.state_file")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid TTS configuration: %w", err)
	}

	return cfg, nil
}
