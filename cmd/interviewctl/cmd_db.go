package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/garnizeh/mockinterview/db"
	dbpkg "github.com/garnizeh/mockinterview/internal/db"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seeds",
		Long: `Apply pending SQL migrations and the built-in seeds.

Evaluation schemas are refreshed on every run. Role templates are only
inserted when missing, so operator edits are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := dbpkg.Migrate(cmd.Context(), conn, db.Migrations, db.SeedFiles); err != nil {
				return fmt.Errorf("migrating: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database migrated.")
			return nil
		},
	}
}

func newBackupCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <path>",
		Short: "Write a consistent copy of the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := args[0]
			if _, err := os.Stat(dst); err == nil {
				return fmt.Errorf("backup target %s already exists", dst)
			}
			conn, err := opts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := conn.BackupTo(cmd.Context(), dst); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database backed up to %s\n", dst)
			return nil
		},
	}
}

func newRestoreCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <path>",
		Short: "Replace the database with a backup",
		Long: `Replace the configured database file with a backup made by "backup".

Stop the server first: the file is swapped on disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			dst, err := opts.databasePath()
			if err != nil {
				return err
			}

			// the backup must open and carry our migrations table
			check, err := dbpkg.New(cmd.Context(), src)
			if err != nil {
				return fmt.Errorf("opening backup: %w", err)
			}
			var n int
			err = check.QueryRow(cmd.Context(), `SELECT COUNT(1) FROM schema_migrations`).Scan(&n)
			check.Close()
			if err != nil {
				return fmt.Errorf("%s is not an interview database backup: %w", src, err)
			}

			if err := copyFile(src, dst); err != nil {
				return fmt.Errorf("restoring: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database restored from %s\n", src)
			return nil
		},
	}
}

// copyFile writes src next to dst and renames it into place.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".restore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
