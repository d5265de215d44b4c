package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/garnizeh/mockinterview/internal/config"
	dbpkg "github.com/garnizeh/mockinterview/internal/db"
	"github.com/garnizeh/mockinterview/pkg/client"
)

var version = "dev"

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	server     string
	timeout    time.Duration
	retryWait  time.Duration
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "interviewctl",
		Short: "interviewctl - operate and practice with the interview server",
		Long: `interviewctl manages the interview server's database and talks to its API.

Database commands (migrate, roles seed, backup, restore) work on the local
SQLite file named in the server config. The remaining commands call a running
server.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config YAML file")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.server, "server", envOr("INTERVIEW_SERVER_URL", "http://localhost:8080"), "Interview server base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "Per-request timeout")
	cmd.PersistentFlags().DurationVar(&opts.retryWait, "retry-wait", client.DefaultRetryWait, "Pause before the health check that precedes a retry")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if opts.debug {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		client.SetLogger(logger)
		dbpkg.SetLogger(logger)
	}

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newBackupCommand(opts))
	cmd.AddCommand(newRestoreCommand(opts))
	cmd.AddCommand(newRolesCommand(opts))
	cmd.AddCommand(newSessionsCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newPracticeCommand(opts))

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// databasePath resolves the SQLite file from --db or the server config.
func (o *rootOptions) databasePath() (string, error) {
	if o.dbPath != "" {
		return o.dbPath, nil
	}
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	if cfg.DatabasePath == "" {
		return "", fmt.Errorf("no database path configured")
	}
	return cfg.DatabasePath, nil
}

func (o *rootOptions) openDB(ctx context.Context) (*dbpkg.DB, error) {
	path, err := o.databasePath()
	if err != nil {
		return nil, err
	}
	conn, err := dbpkg.New(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return conn, nil
}

func (o *rootOptions) newClient() (*client.Client, error) {
	c, err := client.New(client.Config{BaseURL: o.server, Timeout: o.timeout, RetryWait: o.retryWait}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api client: %w", err)
	}
	return c, nil
}
