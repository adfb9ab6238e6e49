// Package cli provides the command-line interface for grimoire.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/config"
	"github.com/nebulai13/witches-herbal-grimmoire/internal/job"
	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

// Version is set at build time.
var Version = "0.1.0"

// Shared command state, wired in PersistentPreRunE.
var (
	cfg     *config.Config
	st      *store.Store
	runner  *job.Runner
	journal *job.Journal
)

var rootCmd = &cobra.Command{
	Use:   "grimoire",
	Short: "Personal traditional-medicine knowledge base",
	Long: `Grimoire aggregates traditional-medicine data (plants, compounds,
ailments, recipes) from remote sources into a local searchable catalog.

Long-running scrapes run as journaled background jobs: interrupt one
with Ctrl-C and it pauses cleanly, ready to be resumed from its last
recorded progress.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel(cfg.LogLevel),
		})))

		st, err = store.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		runner = job.NewRunner(st)
		journal = job.NewJournal(st)
		return nil
	},
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Execute runs the root command and releases the store afterwards.
func Execute() error {
	defer func() {
		if st != nil {
			st.Close()
		}
	}()
	return rootCmd.Execute()
}
