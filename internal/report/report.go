// Package report renders the post-interview feedback report as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/garnizeh/mockinterview/internal/ai"
	"github.com/garnizeh/mockinterview/pkg/models"
)

// Report is the data shown in a feedback report.
type Report struct {
	Session    models.Session
	Evaluation models.Evaluation
	// Profile is optional; it is not persisted with the session.
	Profile *models.IntroProfile
	// Turns is the number of transcript entries.
	Turns int
}

// Category is the performance category for the overall score.
func (r *Report) Category() string {
	return ai.Categorize(r.Evaluation.OverallScore)
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	ev := r.Evaluation

	b.WriteString("# Interview Feedback Report\n\n")

	role := r.Session.RoleTitle
	if role == "" {
		role = r.Session.RoleID
	}
	fmt.Fprintf(&b, "- **Role:** %s\n", escape(role))
	fmt.Fprintf(&b, "- **Date:** %s\n", r.Session.CreatedAt.UTC().Format(time.DateOnly))
	if r.Session.DurationMinutes != nil {
		fmt.Fprintf(&b, "- **Duration:** %d min\n", *r.Session.DurationMinutes)
	}
	if r.Turns > 0 {
		fmt.Fprintf(&b, "- **Conversation turns:** %d\n", r.Turns)
	}
	if p := r.Profile; p != nil {
		if p.Name != "" {
			fmt.Fprintf(&b, "- **Candidate:** %s\n", escape(p.Name))
		}
		if p.ExperienceLevel != "" {
			fmt.Fprintf(&b, "- **Experience:** %s\n", escape(p.ExperienceLevel))
		}
		if p.TargetCompany != "" {
			fmt.Fprintf(&b, "- **Target company:** %s\n", escape(p.TargetCompany))
		}
	}

	fmt.Fprintf(&b, "\n## Overall Score: %d/100 (%s)\n\n", ev.OverallScore, r.Category())

	section(&b, "Strengths", ev.Strengths)
	section(&b, "Areas for Improvement", ev.Improvements)

	if fb := strings.TrimSpace(ev.DetailedFeedback); fb != "" {
		b.WriteString("## Detailed Assessment\n\n")
		b.WriteString(fb)
		b.WriteString("\n\n")
	}

	section(&b, "Next Steps", ai.Recommendations(ev.Improvements))
	return b.String()
}

// HTML renders the Markdown report to an HTML fragment.
func (r *Report) HTML() (string, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(r.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return buf.String(), nil
}

func section(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", escape(it))
	}
	b.WriteString("\n")
}

var mdEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", ">", "&gt;", "\n", " ")

// escape keeps model and user text from being read as Markdown or raw HTML.
func escape(s string) string {
	return mdEscaper.Replace(strings.TrimSpace(s))
}
