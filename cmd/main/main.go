// Command quotegen trains Markov chain models on a corpus of quotes and
// samples new quotes from them, on the command line or over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CTAG07/quotegen/pkg/markov"
	"github.com/CTAG07/quotegen/pkg/store"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// app carries the state shared by every subcommand once the configuration
// has been loaded.
type app struct {
	configPath string
	logLevel   string
	config     *Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "quotegen",
		Short: "Generate inspirational-sounding quotes from a Markov chain",
		Long: `quotegen builds word-level Markov chain models from a corpus of quotes
and samples new, never-said quotes from them.

Example usage:
  quotegen build --corpus 'quotes/**/*.txt'   # Train and store the default model
  quotegen sample --max-chars 100              # Print a quote
  quotegen serve                               # Serve quotes over HTTP`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file (.yaml or .json)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides the config)")

	root.AddCommand(
		a.newBuildCmd(),
		a.newSampleCmd(),
		a.newStatsCmd(),
		a.newPruneCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
		a.newListCmd(),
		a.newDeleteCmd(),
		a.newServeCmd(),
		newVersionCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	config, err := LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		config.Server.LogLevel = a.logLevel
	}
	a.config = config
	a.logger = newLogger(cmd.ErrOrStderr(), config.Server.LogLevel)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) openStore() (store.Store, error) {
	st, err := store.Open(&a.config.Store, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open model store: %w", err)
	}
	return st, nil
}

// withStore opens the configured store for the duration of fn.
func (a *app) withStore(fn func(st store.Store) error) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer func(st store.Store) {
		if err := st.Close(); err != nil {
			a.logger.Error("Failed to close model store", slog.Any("error", err))
		}
	}(st)
	return fn(st)
}

func (a *app) newGenerator() *markov.Generator {
	gen := markov.NewGenerator(markov.NewDefaultTokenizer(markov.WithLineBreaks(a.config.Corpus.LineBreaks)))
	gen.SetLogger(a.logger)
	return gen
}

// modelName returns the name given as the first argument, or the configured default.
func (a *app) modelName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.config.Model.Name
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// The version does not depend on the configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := currentVersion()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "quotegen %s (commit %s, built %s)\n", v.Version, v.Commit, v.BuildDate)
			return err
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
