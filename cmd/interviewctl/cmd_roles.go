package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	dbpkg "github.com/garnizeh/mockinterview/internal/db"
)

func newRolesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage interview role templates",
	}
	cmd.AddCommand(newRolesListCommand(opts))
	cmd.AddCommand(newRolesSeedCommand(opts))
	return cmd
}

func newRolesListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the role templates known to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			roles, err := c.ListRoles(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tDIFFICULTY\tQUESTIONS")
			for _, r := range roles {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.ID, r.Title, r.Difficulty, len(r.Questions))
			}
			return tw.Flush()
		},
	}
}

func newRolesSeedCommand(opts *rootOptions) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load role templates from a YAML file into the database",
		Long: `Load role templates from a YAML file with a top-level "roles" list.

Existing templates are left untouched unless --overwrite is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading seed file: %w", err)
			}
			conn, err := opts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := dbpkg.SeedRoles(cmd.Context(), conn, b, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d role template(s) written.\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace templates that already exist")
	return cmd
}
