package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/garnizeh/mockinterview/internal/apperr"
	"github.com/garnizeh/mockinterview/internal/gateway"
	"github.com/garnizeh/mockinterview/pkg/models"
	"github.com/garnizeh/mockinterview/pkg/ollama"
)

// package-level logger; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by internal/ai. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// EvaluationPrompt is rendered with {{.Transcript}}.
const EvaluationPrompt = `You are evaluating a mock job interview based on the following transcript:

{{.Transcript}}

Provide a comprehensive evaluation with:
1. Overall score (0-100)
2. Key strengths (3-5 points)
3. Areas for improvement (3-5 points)
4. Detailed feedback on technical knowledge, communication, and problem-solving

Format your response as JSON with keys: overallScore (number), strengths (array of strings), areasForImprovement (array of strings), detailedFeedback (string).`

// Default evaluation used when the model output cannot be parsed.
const DefaultScore = 75

var (
	defaultStrengths    = []string{"Engaged in conversation", "Attempted to answer questions"}
	defaultImprovements = []string{"Could provide more detailed responses", "More technical depth needed"}
)

// Assessment is the structured result of evaluating a transcript.
type Assessment struct {
	OverallScore     int
	Strengths        []string
	Improvements     []string
	DetailedFeedback string
	// Fallback is set when the default assessment replaced unparseable output.
	Fallback bool
	Raw      string
}

// ToEvaluation converts the assessment into the persisted record.
func (a *Assessment) ToEvaluation(sessionID string) *models.Evaluation {
	return &models.Evaluation{
		SessionID:        sessionID,
		OverallScore:     a.OverallScore,
		Strengths:        a.Strengths,
		Improvements:     a.Improvements,
		DetailedFeedback: a.DetailedFeedback,
	}
}

// DefaultAssessment is the fixed evaluation used when parsing fails. The raw
// model text is kept as the detailed feedback.
func DefaultAssessment(raw string) *Assessment {
	return &Assessment{
		OverallScore:     DefaultScore,
		Strengths:        append([]string(nil), defaultStrengths...),
		Improvements:     append([]string(nil), defaultImprovements...),
		DetailedFeedback: strings.TrimSpace(raw),
		Fallback:         true,
		Raw:              raw,
	}
}

// Completer is the part of the gateway the evaluator uses.
type Completer interface {
	Complete(ctx context.Context, req gateway.CompletionRequest) (gateway.Completion, error)
}

type EvaluatorConfig struct {
	SchemaVersion string
	Timeout       time.Duration
}

// Evaluator renders the evaluation prompt, calls the model once and turns the
// answer into an Assessment.
type Evaluator struct {
	llm    Completer
	loader *Loader
	cfg    EvaluatorConfig
}

// NewEvaluator creates an evaluator. loader may be nil, in which case the
// model output is only checked structurally.
func NewEvaluator(llm Completer, loader *Loader, cfg EvaluatorConfig) *Evaluator {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = "v1"
	}
	return &Evaluator{llm: llm, loader: loader, cfg: cfg}
}

// Evaluate produces an assessment for the full transcript. Upstream failures
// are returned as is; unparseable output yields DefaultAssessment.
func (e *Evaluator) Evaluate(ctx context.Context, entries []models.TranscriptEntry) (*Assessment, error) {
	prompt, err := ollama.RenderTemplate(EvaluationPrompt, map[string]any{"Transcript": FormatTranscript(entries)})
	if err != nil {
		return nil, fmt.Errorf("render evaluation prompt: %w", err)
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	out, err := e.llm.Complete(ctx, gateway.CompletionRequest{Prompt: prompt, JSON: true})
	if err != nil {
		return nil, err
	}

	a, err := e.Parse(ctx, out.Text)
	if err != nil {
		logger.Warn("ai: evaluation output unparseable, using default", slog.Any("err", err), slog.Int("raw_len", len(out.Text)))
		return DefaultAssessment(out.Text), nil
	}
	return a, nil
}

type evaluationDoc struct {
	OverallScore        *float64 `json:"overallScore"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areasForImprovement"`
	DetailedFeedback    string   `json:"detailedFeedback"`
}

// Parse extracts and validates the evaluation JSON from raw model output.
// Any failure is reported as *apperr.ParseError.
func (e *Evaluator) Parse(ctx context.Context, raw string) (*Assessment, error) {
	fail := func(err error) (*Assessment, error) {
		return nil, &apperr.ParseError{Raw: raw, Err: err}
	}

	if strings.TrimSpace(raw) == "" {
		return fail(errors.New("empty response"))
	}
	j := extractJSON(raw)
	if j == "" {
		return fail(errors.New("no JSON object found in response"))
	}

	if e.loader != nil {
		if err := e.loader.Validate(ctx, e.cfg.SchemaVersion, []byte(j)); err != nil {
			if !errors.Is(err, ErrSchemaNotFound) {
				return fail(err)
			}
			logger.Warn("ai: evaluation schema missing, skipping validation", slog.String("version", e.cfg.SchemaVersion))
		}
	}

	var doc evaluationDoc
	if err := json.Unmarshal([]byte(j), &doc); err != nil {
		return fail(fmt.Errorf("json unmarshal: %w", err))
	}
	if doc.OverallScore == nil {
		return fail(errors.New("overallScore missing"))
	}

	return &Assessment{
		OverallScore:     clampScore(int(math.Round(*doc.OverallScore))),
		Strengths:        cleanList(doc.Strengths),
		Improvements:     cleanList(doc.AreasForImprovement),
		DetailedFeedback: strings.TrimSpace(doc.DetailedFeedback),
		Raw:              raw,
	}, nil
}

// FormatTranscript renders entries as labelled blocks separated by blank lines.
func FormatTranscript(entries []models.TranscriptEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		label := "Interviewer"
		if e.Speaker == models.SpeakerCandidate {
			label = "Candidate"
		}
		parts = append(parts, label+": "+e.Content)
	}
	return strings.Join(parts, "\n\n")
}

// extractJSON returns the substring from the first '{' to the last '}' in the input.
// This is a pragmatic approach to handle model outputs that wrap JSON in text or markdown.
func extractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
