package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/speakleash/pkg/speakleash/catalog"
	"github.com/jamesainslie/speakleash/pkg/speakleash/category"
	"github.com/jamesainslie/speakleash/pkg/speakleash/config"
	"github.com/jamesainslie/speakleash/pkg/speakleash/fetch"
	"github.com/jamesainslie/speakleash/pkg/speakleash/logging"
	"github.com/jamesainslie/speakleash/pkg/speakleash/structure"
)

var logger = logging.Get("cli")

var (
	cfgFile      string
	replicateDir string
	registryLang string
	verbose      bool
	quiet        bool

	// cfg is loaded once per invocation by loadConfig.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "speakleash",
		Short: "Browse and download Speakleash text datasets",
		Long: `Speakleash lists the text corpora published by the Speakleash registry,
downloads their archives and streams the documents they contain.

Registry listings and manifests are cached in the replica directory and
refreshed hourly and daily respectively.

Examples:
  speakleash list                            # All datasets
  speakleash list --category News --lang en  # Datasets scored as news
  speakleash show plwiki                     # Manifest details
  speakleash download plwiki                 # Fetch the archive
  speakleash stream plwiki --limit 5 --meta  # First five documents as JSON Lines
  speakleash config init                     # Write a default config file`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		PersistentPostRun: func(*cobra.Command, []string) { _ = logging.Close() },
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/speakleash/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&replicateDir, "replicate-dir", "", "directory for cached documents and archives")
	rootCmd.PersistentFlags().StringVar(&registryLang, "registry-lang", "", "registry language (pl or hr)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output")
}

// Execute runs the root command. An interrupt cancels the running command's
// context so partial downloads are cleaned up.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the configuration, applies flag overrides and starts
// logging.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.LoadFile(cfgFile)
	if err != nil {
		printError(cmd, "Failed to load configuration: %v", err)
		return err
	}
	applyOverrides(loaded)
	cfg = loaded

	if err := logging.Init(loggingConfig(cfg, cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.Debug("configuration loaded", "replicate_dir", cfg.ReplicateDir, "lang", cfg.Lang)
	return nil
}

// applyOverrides copies global flags over configured values.
func applyOverrides(c *config.Config) {
	if replicateDir != "" {
		if expanded, err := config.ExpandPath(replicateDir); err == nil {
			c.ReplicateDir = expanded
		}
	}
	if registryLang != "" {
		c.Lang = registryLang
	}
}

// loggingConfig maps the config file settings and verbosity flags onto
// the logging package.
func loggingConfig(c *config.Config, console io.Writer) logging.Config {
	return logging.Config{
		Level: c.Logging.Level,
		Path:  c.Logging.Path,
		Rotation: logging.RotationConfig{
			MaxSize:    c.Logging.Rotation.MaxSize,
			MaxBackups: c.Logging.Rotation.MaxBackups,
		},
		Components:   c.Logging.Components,
		ConsoleLevel: consoleLevel(verbose, quiet),
		Console:      console,
	}
}

func consoleLevel(verbose, quiet bool) string {
	switch {
	case quiet:
		return "error"
	case verbose:
		return "debug"
	default:
		return "warn"
	}
}

// session holds the collaborators shared by the commands.
type session struct {
	fetcher    *fetch.HTTPFetcher
	structures *structure.Cache
}

func newSession() *session {
	f := fetch.New(fetch.Options{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	})
	return &session{
		fetcher:    f,
		structures: structure.New(cfg.ReplicateDir, f),
	}
}

func (s *session) catalog(ctx context.Context) *catalog.Catalog {
	return catalog.New(ctx, catalog.Options{
		ReplicateDir: cfg.ReplicateDir,
		Lang:         cfg.Lang,
		Host:         cfg.Host,
		BaseURL:      cfg.BaseURL,
		Fetcher:      s.fetcher,
		Structures:   s.structures,
	})
}

// resolver loads the category labels through the configured store.
func (s *session) resolver(ctx context.Context) (*category.Resolver, error) {
	opts := category.Options{Fetcher: s.fetcher, LabelsURL: cfg.LabelsURL}

	switch cfg.Labels.Store {
	case config.LabelStoreDir:
		opts.Store = category.NewDirStore(cfg.LabelsPath())
	default:
		store, err := category.OpenBadgerStore(cfg.LabelsPath())
		if err != nil {
			logger.Warn("label store unavailable, fetching labels directly", "error", err)
			break
		}
		defer store.Close()
		opts.Store = store
	}

	return category.NewResolver(ctx, opts)
}

// printInfo prints a message to stdout unless quiet mode is enabled.
func printInfo(cmd *cobra.Command, format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	}
}

// printVerbose prints a message to stderr if verbose mode is enabled.
func printVerbose(cmd *cobra.Command, format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "[DEBUG] "+format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: "+format+"\n", args...)
}

// requireDataset resolves name in the catalog or reports it missing.
func requireDataset(cmd *cobra.Command, c *catalog.Catalog, name string) error {
	if _, ok := c.Get(name); ok {
		return nil
	}
	if c.Len() == 0 {
		return fmt.Errorf("dataset %q not found: registry listing is unavailable", name)
	}
	printVerbose(cmd, "known datasets: %v", c.Names())
	return fmt.Errorf("dataset %q not found", name)
}
