// Command starminder runs the batch side of the app: schema migrations,
// OAuth app setup, importing a user's GitHub stars, promoting staged stars
// into reminders, and the README analysis pipeline.
//
// Every command reads the same configuration as the server (environment
// plus an optional .env file), so both processes share one database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/starminder/internal/config"
	sqliteRepo "github.com/sakif/starminder/internal/repository/sqlite"
)

// app is what every subcommand needs; root's PersistentPreRunE fills it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var envFile string
	var verbose bool

	root := &cobra.Command{
		Use:          "starminder",
		Short:        "Reminders about the GitHub repositories you starred",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		migrateCmd(a),
		setupSocialAppCmd(a),
		importStarsCmd(a),
		promoteCmd(a),
		setPriorityCmd(a),
		analyzeCmd(a),
		analysesCmd(a),
		remindersCmd(a),
		searchCmd(a),
	)
	return root
}

// openDB opens (and migrates) the configured database.
func (a *app) openDB() (*sqliteRepo.DB, error) {
	if err := ensureDBDir(a.cfg.DBPath); err != nil {
		return nil, err
	}
	db, err := sqliteRepo.New(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func ensureDBDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	return nil
}
