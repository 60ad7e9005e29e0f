// Package main provides the entry point for the pdftts CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/charlesneimog/pdftts/internal/extract"
	"github.com/charlesneimog/pdftts/tts"
	"github.com/charlesneimog/pdftts/tts/audio"
	"github.com/charlesneimog/pdftts/tts/cache"
	"github.com/charlesneimog/pdftts/tts/engines/edge"
	"github.com/charlesneimog/pdftts/tts/engines/mock"
	"github.com/charlesneimog/pdftts/tts/segment"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	ttsEngine  string
	voice      string
	rate       string
	language   string
	startPage  int
	cacheDir   string
	debug      bool

	rootCmd = &cobra.Command{
		Use:          "pdftts [DOCUMENT]",
		Short:        "Read documents aloud from the command line",
		Long:         "\nRead PDF and text documents aloud, phrase by phrase, with cached synthesis and per-document resume.",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		PersistentPreRun: func(*cobra.Command, []string) {
			if debug || os.Getenv("PDFTTS_DEBUG") != "" {
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: execute,
	}
)

func execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	doc := args[0]
	extractor, err := extract.ForPath(doc)
	if err != nil {
		return err
	}

	engine, err := buildEngine()
	if err != nil {
		return err
	}
	log.Debug("using engine", "name", engine.Name())

	store, err := cache.New(cfg.CacheDir, engine, cfg.MaxRetries, cfg.RetryDelay)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}

	sessions := tts.NewSessionStore(cfg.StateFile)
	segmenter := segment.New(cfg.Language)
	device := audio.NewPlayer()

	ctrl := tts.NewController(cfg, extractor, segmenter, store, device, sessions, log.Default())

	// The cache is scoped to one reading session; recycling it keeps the
	// voice-agnostic cache key honest across voice changes.
	defer func() {
		if err := store.Destroy(); err != nil {
			log.Warn("removing cache", "dir", store.Dir(), "err", err)
		}
	}()

	if err := ctrl.Open(doc); err != nil {
		return err
	}
	if cmd.Flags().Changed("page") {
		if err := ctrl.GoToPage(startPage - 1); err != nil {
			return err
		}
	}
	if err := ctrl.Play(); err != nil {
		return err
	}

	return runLoop(ctrl)
}

// runLoop wires the terminal to the controller: keys drive navigation,
// controller events drive output. It returns when the user quits or the
// process receives a termination signal.
func runLoop(ctrl *tts.Controller) error {
	fd := int(os.Stdin.Fd())

	interactive := term.IsTerminal(fd)
	var restore func()
	keys := make(chan byte, 8)
	if interactive {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("entering raw mode: %w", err)
		}
		restore = func() { _ = term.Restore(fd, oldState) }
		defer restore()

		go readKeys(keys)
		printHelp()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	for {
		select {
		case <-sig:
			return ctrl.Close()

		case msg := <-ctrl.Events():
			printEvent(msg)

		case k := <-keys:
			quit, err := handleKey(ctrl, k)
			if err != nil {
				printf("%s", err)
			}
			if quit {
				return ctrl.Close()
			}
		}
	}
}

// readKeys forwards raw stdin bytes, folding ANSI arrow sequences into
// single command bytes.
func readKeys(out chan<- byte) {
	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 3 && buf[0] == 0x1b && buf[1] == '[' {
			switch buf[2] {
			case 'C':
				out <- 'l' // right arrow, next phrase
			case 'D':
				out <- 'h' // left arrow, previous phrase
			case 'A':
				out <- 'k' // up arrow, previous page
			case 'B':
				out <- 'j' // down arrow, next page
			}
			continue
		}
		for i := 0; i < n; i++ {
			out <- buf[i]
		}
	}
}

func handleKey(ctrl *tts.Controller, k byte) (quit bool, err error) {
	switch k {
	case ' ':
		return false, ctrl.Toggle()
	case 'l':
		return false, ctrl.NextPhrase()
	case 'h':
		return false, ctrl.PrevPhrase()
	case 'j':
		return false, ctrl.NextPage()
	case 'k':
		return false, ctrl.PrevPage()
	case '?':
		printHelp()
		return false, nil
	case 'q', 0x03, 0x04: // q, ctrl-c, ctrl-d
		return true, nil
	default:
		return false, nil
	}
}

func printEvent(msg tts.Msg) {
	switch m := msg.(type) {
	case tts.PhraseMsg:
		printf("[%d.%d] %s", m.Page+1, m.Index+1, m.Text)
	case tts.PageChangedMsg:
		printf("-- page %d of %d --", m.Page+1, m.Pages)
	case tts.StateChangedMsg:
		log.Debug("state changed", "state", m.State, "page", m.Page+1)
	case tts.ProgressMsg:
		log.Debug("synthesis progress", "page", m.Page+1, "percent", int(m.Percent))
	case tts.PhraseSkippedMsg:
		printf("skipping phrase %d on page %d: %s", m.Index+1, m.Page+1, m.Err)
	case tts.PageErrorMsg:
		printf("page %d failed: %s", m.Page+1, m.Err)
	case tts.DocumentClosedMsg:
		printf("closed %s", filepath.Base(m.Path))
	}
}

// printf writes a line that renders correctly in raw terminal mode.
func printf(format string, args ...any) {
	fmt.Printf(format+"\r\n", args...)
}

func printHelp() {
	printf("space play/pause   ←/→ phrase   ↑/↓ page   q quit")
}

// buildEngine picks the synthesis engine. The mock engine exists for
// development without network access.
func buildEngine() (tts.Engine, error) {
	switch ttsEngine {
	case "", "edge":
		return edge.New(), nil
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q, expected edge or mock", ttsEngine)
	}
}

// loadConfig layers configuration: defaults, then the config file, then
// environment variables, then command line flags.
func loadConfig(cmd *cobra.Command) (tts.Config, error) {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return cfg, err
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}

	if cmd.Flags().Changed("voice") {
		cfg.Voice = voice
	}
	if cmd.Flags().Changed("rate") {
		cfg.Rate = rate
	}
	if cmd.Flags().Changed("language") {
		cfg.Language = language
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.CacheDir = cacheDir
	}

	if cfg.StateFile == "" {
		scope := gap.NewScope(gap.User, "pdftts")
		path, err := scope.DataPath("state.json")
		if err != nil {
			return cfg, fmt.Errorf("resolving state file path: %w", err)
		}
		cfg.StateFile = path
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices the speech service offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		voices, err := edge.ListVoices(ctx)
		if err != nil {
			return err
		}
		voices = edge.FilterVoices(voices, language)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tLOCALE\tGENDER")
		for _, v := range voices {
			fmt.Fprintf(w, "%s\t%s\t%s\n", v.ShortName, v.Locale, v.Gender)
		}
		return w.Flush()
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all cached audio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, err := cache.New(cfg.CacheDir, mock.New(), cfg.MaxRetries, cfg.RetryDelay)
		if err != nil {
			return err
		}
		if err := store.Destroy(); err != nil {
			return fmt.Errorf("removing cache: %w", err)
		}
		fmt.Println("Removed cache at", cfg.CacheDir)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&language, "language", "L", "", "language hint, e.g. en or pt")
	rootCmd.Flags().StringVarP(&voice, "voice", "v", "", "synthesis voice, e.g. en-US-AvaMultilingualNeural")
	rootCmd.Flags().StringVarP(&rate, "rate", "r", "", "speaking rate as a signed percentage, e.g. +35%")
	rootCmd.Flags().IntVarP(&startPage, "page", "p", 1, "start reading at this 1-based page")
	rootCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "directory for cached audio")
	rootCmd.Flags().StringVar(&ttsEngine, "engine", "edge", "synthesis engine (edge or mock)")

	_ = viper.BindPFlag("tts.voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("tts.rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("tts.language", rootCmd.PersistentFlags().Lookup("language"))
	_ = viper.BindPFlag("tts.cache_dir", rootCmd.Flags().Lookup("cache-dir"))

	rootCmd.AddCommand(voicesCmd, cleanCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "pdftts")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "pdftts")}, dirs...)
	}

	if c := os.Getenv("PDFTTS_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("pdftts")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("pdftts")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "pdftts.yml")
}
