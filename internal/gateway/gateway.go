// Package gateway is the single point through which the interview flow talks
// to the language model and the voice agent. Every failure leaving this
// package is an *apperr.UpstreamError tagged with the failing capability.
package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/garnizeh/mockinterview/internal/apperr"
	"github.com/garnizeh/mockinterview/pkg/ollama"
	"github.com/garnizeh/mockinterview/pkg/speech"
)

// Chat roles understood by the model.
const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single-shot prompt. Context carries the opaque
// continuation state returned by a previous completion, if any.
type CompletionRequest struct {
	Prompt  string
	Context []int
	JSON    bool
}

type Completion struct {
	Text    string
	Context []int
}

// Gateway is what the orchestrator needs from the outside world.
type Gateway interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// LLM is the subset of *ollama.Client used by Service.
type LLM interface {
	Generate(ctx context.Context, model, prompt string, opts ollama.GenerateOptions) (ollama.GenerateResult, error)
	Chat(ctx context.Context, model string, messages []ollama.Message) (ollama.ChatResult, error)
	Health(ctx context.Context) error
}

// Speech is the subset of *speech.Client used by Service.
type Speech interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Health(ctx context.Context) error
}

var errEmptyReply = errors.New("model returned an empty reply")

// Service implements Gateway on top of Ollama and the voice agent.
type Service struct {
	llm    LLM
	speech Speech
	model  string
}

var _ Gateway = (*Service)(nil)

// New builds a Service. sp may be nil when speech is not configured.
func New(llm LLM, sp Speech, model string) *Service {
	return &Service{llm: llm, speech: sp, model: model}
}

func (s *Service) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	res, err := s.llm.Generate(ctx, s.model, req.Prompt, ollama.GenerateOptions{Context: req.Context, JSON: req.JSON})
	if err != nil {
		return Completion{}, apperr.Upstream(apperr.CapabilityComplete, err)
	}
	return Completion{Text: res.Text, Context: res.Context}, nil
}

func (s *Service) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	msgs := make([]ollama.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, ollama.Message{Role: m.Role, Content: m.Content})
	}
	res, err := s.llm.Chat(ctx, s.model, msgs)
	if err != nil {
		return "", apperr.Upstream(apperr.CapabilityChat, err)
	}
	reply := strings.TrimSpace(res.Text)
	if reply == "" {
		return "", apperr.Upstream(apperr.CapabilityChat, errEmptyReply)
	}
	return reply, nil
}

func (s *Service) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if s.speech == nil {
		return "", apperr.Upstream(apperr.CapabilityTranscribe, speech.ErrDisabled)
	}
	text, err := s.speech.Transcribe(ctx, audio, filename)
	if err != nil {
		return "", apperr.Upstream(apperr.CapabilityTranscribe, err)
	}
	return text, nil
}

func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.speech == nil {
		return nil, apperr.Upstream(apperr.CapabilitySynthesize, speech.ErrDisabled)
	}
	audio, err := s.speech.Synthesize(ctx, text)
	if err != nil {
		return nil, apperr.Upstream(apperr.CapabilitySynthesize, err)
	}
	return audio, nil
}

// CheckModel reports whether the language model is reachable.
func (s *Service) CheckModel(ctx context.Context) error {
	return apperr.Upstream(apperr.CapabilityHealth, s.llm.Health(ctx))
}

// CheckSpeech reports whether the voice agent is reachable.
func (s *Service) CheckSpeech(ctx context.Context) error {
	if s.speech == nil {
		return apperr.Upstream(apperr.CapabilityHealth, speech.ErrDisabled)
	}
	return apperr.Upstream(apperr.CapabilityHealth, s.speech.Health(ctx))
}

// Health reports the model status; the voice agent is optional and checked
// separately with CheckSpeech.
func (s *Service) Health(ctx context.Context) error {
	return s.CheckModel(ctx)
}

// SpeechEnabled reports whether a voice agent was configured.
func (s *Service) SpeechEnabled() bool {
	return s.speech != nil
}
