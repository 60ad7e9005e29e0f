package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# pdftts configuration

tts:
  # Synthesis voice, see "pdftts voices"
  voice: "en-US-AvaMultilingualNeural"
  # Speaking rate as a signed percentage
  rate: "+35%"
  # Fallback language when detection is inconclusive
  language: "en"

  # Synthesis retries per phrase
  max_retries: 3
  retry_delay: "1s"
  # Concurrent synthesis workers
  workers: 2
  queue_size: 8

  # Phrases kept warm ahead of playback
  preload_next: 2
  # Start preloading the next page when this few phrases remain
  preload_threshold: 3
  throttle_delay: "100ms"

  # Playback polling and shutdown
  busy_poll: "100ms"
  stop_timeout: "2s"

  # Directory for cached audio (defaults to the system temp directory)
  # cache_dir: "/path/to/cache"
  # Per-document resume state (defaults to the user data directory)
  # state_file: "/path/to/state.json"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the pdftts config file",
	Long:    "\nEdit the pdftts config file. EDITOR determines which editor to use. If the config file doesn't exist, it will be created.",
	Example: "pdftts config\npdftts config --config path/to/config.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("pdftts", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
