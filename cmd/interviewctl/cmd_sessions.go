package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSessionsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect interview history",
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List past sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			sessions, err := c.ListSessions(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tROLE\tSTARTED\tMINUTES\tSCORE")
			for _, s := range sessions {
				minutes, score := "-", "-"
				if s.DurationMinutes != nil {
					minutes = fmt.Sprint(*s.DurationMinutes)
				}
				if s.Score != nil {
					score = fmt.Sprint(*s.Score)
				}
				role := s.RoleTitle
				if role == "" {
					role = s.RoleID
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, role, s.CreatedAt.Local().Format("2006-01-02 15:04"), minutes, score)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "Maximum number of sessions")
	list.Flags().IntVar(&offset, "offset", 0, "Number of sessions to skip")

	cmd.AddCommand(list)
	return cmd
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	var (
		html bool
		out  string
	)
	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Print the evaluation report of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			report, err := c.Report(cmd.Context(), args[0], html)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), report)
				return nil
			}
			if err := os.WriteFile(out, []byte(report+"\n"), 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&html, "html", false, "Render HTML instead of Markdown")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write the report to a file")
	return cmd
}
