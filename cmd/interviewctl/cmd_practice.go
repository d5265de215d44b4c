package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garnizeh/mockinterview/pkg/client"
	"github.com/garnizeh/mockinterview/pkg/models"
)

const (
	cmdEnd  = "/end"
	cmdQuit = "/quit"
)

func newPracticeCommand(opts *rootOptions) *cobra.Command {
	var req models.StartSessionRequest
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run a text interview in the terminal",
		Long: `Run a practice interview against the server.

Type your answers and press enter. "/end" finishes the interview and prints the
evaluation; "/quit" closes the session without evaluating it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.RoleID == "" {
				return fmt.Errorf("--role is required")
			}
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			defer c.Close()
			return practice(cmd.Context(), c, req, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.RoleID, "role", "", "Role template id (see roles list)")
	f.StringVar(&req.Profile.Name, "name", "", "Your name")
	f.StringVar(&req.Profile.ExperienceLevel, "experience", "", "Experience level, e.g. Junior or Senior")
	f.StringVar(&req.Profile.TargetRole, "target-role", "", "Role you are applying for")
	f.StringVar(&req.Profile.TargetCompany, "company", "", "Company you are applying to")
	f.StringVar(&req.Profile.InterviewType, "type", "", "Interview type, e.g. Technical or Behavioral")
	f.StringVar(&req.Profile.Difficulty, "difficulty", "", "Preferred difficulty")
	f.StringVar(&req.Profile.AdditionalContext, "context", "", "Anything else the interviewer should know")
	return cmd
}

func practice(ctx context.Context, c *client.Client, req models.StartSessionRequest, in io.Reader, out io.Writer) error {
	started, err := c.StartSession(ctx, req)
	if err != nil {
		return err
	}
	id := started.Session.ID
	fmt.Fprintf(out, "Session %s (%s)\n\n", id, started.Session.RoleTitle)
	fmt.Fprintf(out, "Interviewer: %s\n", started.Message.Content)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case cmdQuit:
			if _, err := c.EndSession(ctx, id, nil); err != nil {
				return err
			}
			fmt.Fprintln(out, "Session closed without evaluation.")
			return nil
		case cmdEnd:
			return finish(ctx, c, id, out)
		}

		resp, err := c.SendMessage(ctx, id, line)
		if err != nil {
			// the session is still usable after a failed turn
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "Interviewer: %s\n", resp.Reply())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return finish(ctx, c, id, out)
}

func finish(ctx context.Context, c *client.Client, id string, out io.Writer) error {
	ev, err := c.Evaluate(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nOverall score: %d/100\n", ev.OverallScore)
	printList(out, "Strengths", ev.Strengths)
	printList(out, "Areas for improvement", ev.Improvements)
	if ev.DetailedFeedback != "" {
		fmt.Fprintf(out, "\n%s\n", ev.DetailedFeedback)
	}
	fmt.Fprintf(out, "\nFull report: interviewctl report %s\n", id)
	return nil
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(out, "  - %s\n", it)
	}
}
