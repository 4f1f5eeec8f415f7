package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/examforge/internal/config"
	"github.com/abhisek/examforge/internal/llm"
	"github.com/abhisek/examforge/internal/logging"
	"github.com/abhisek/examforge/internal/store"
)

var (
	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "examforge",
	Short:         "Generate and grade exam questions from study material",
	Long:          "examforge turns source text into a typed question set using an LLM backend, recovering whatever the model produces and synthesizing the rest.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			loaded.Log.Level = lvl
		}
		l, err := logging.New(logging.Options{Level: loaded.Log.Level, Format: loaded.Log.Format})
		if err != nil {
			return err
		}
		cfg, logger = loaded, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (overrides EXAMFORGE_CONFIG env var)")
	rootCmd.PersistentFlags().String("db", "", "SQLite path or postgres:// URL for the trace log (overrides EXAMFORGE_DB env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database location using --db (highest
// priority), then store.dsn / EXAMFORGE_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Store.DSN != "" {
		return cfg.Store.DSN, store.EnsureDir(cfg.Store.DSN)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// newProvider builds the configured backend. Every call is logged to
// the trace store.
func newProvider(ctx context.Context, s *store.Store) (llm.Provider, error) {
	p, err := llm.NewProvider(ctx, cfg.LLM, s.EventRepo(), logger)
	if err != nil {
		return nil, fmt.Errorf("LLM provider: %w", err)
	}
	return p, nil
}
