// Package interview drives a mock interview through its phases: a short
// introduction, the transition into the formal interview, the interview
// itself and the final evaluation. Transcript entries are persisted through
// the repository before any reply is returned.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/garnizeh/mockinterview/internal/ai"
	"github.com/garnizeh/mockinterview/internal/apperr"
	"github.com/garnizeh/mockinterview/internal/gateway"
	"github.com/garnizeh/mockinterview/pkg/models"
	"github.com/garnizeh/mockinterview/pkg/repository"
	"github.com/google/uuid"
)

// package-level logger; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by internal/interview. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// MaxMessageLength bounds a single candidate message, in characters.
const MaxMessageLength = 4000

// Config tunes the flow. Zero values are replaced by the defaults.
type Config struct {
	// IntroSteps is the number of intro answers collected before the interview starts.
	IntroSteps int `yaml:"intro_steps"`
	// TranscriptWindow is how many recent entries are sent to the chat model.
	TranscriptWindow int `yaml:"transcript_window"`
	// IntroContextAnswers is how many intro answers the first formal question sees.
	IntroContextAnswers int `yaml:"intro_context_answers"`
	// SeedQuestions is how many pool questions of the role are offered as inspiration.
	SeedQuestions int `yaml:"seed_questions"`
}

func DefaultConfig() Config {
	return Config{IntroSteps: 3, TranscriptWindow: 10, IntroContextAnswers: 2, SeedQuestions: 3}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.IntroSteps <= 0 {
		c.IntroSteps = d.IntroSteps
	}
	if c.TranscriptWindow <= 0 {
		c.TranscriptWindow = d.TranscriptWindow
	}
	if c.IntroContextAnswers <= 0 {
		c.IntroContextAnswers = d.IntroContextAnswers
	}
	if c.SeedQuestions < 0 {
		c.SeedQuestions = 0
	} else if c.SeedQuestions == 0 {
		c.SeedQuestions = d.SeedQuestions
	}
	return c
}

// AudioStore persists audio clips and returns a URL reference.
type AudioStore interface {
	Save(sessionID string, data []byte, filename string) (string, error)
}

// Evaluator turns a transcript into an assessment.
type Evaluator interface {
	Evaluate(ctx context.Context, entries []models.TranscriptEntry) (*ai.Assessment, error)
}

// Service is the conversation orchestrator.
type Service struct {
	store     repository.Store
	gw        gateway.Gateway
	evaluator Evaluator
	audio     AudioStore
	cfg       Config
	reg       *registry
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAudioStore enables saving uploaded and synthesized audio.
func WithAudioStore(a AudioStore) Option {
	return func(s *Service) { s.audio = a }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds the orchestrator. The evaluator is typically an *ai.Evaluator
// sharing gw.
func New(store repository.Store, gw gateway.Gateway, ev Evaluator, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:     store,
		gw:        gw,
		evaluator: ev,
		cfg:       cfg.withDefaults(),
		reg:       newRegistry(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type StartRequest struct {
	RoleID       string
	VoiceEnabled bool
	Profile      models.IntroProfile
}

type Started struct {
	Session *models.Session
	Welcome *models.TranscriptEntry
	Phase   Phase
}

// Reply is the outcome of one candidate turn. Messages holds the interviewer
// entries appended by the call, in order.
type Reply struct {
	Candidate *models.TranscriptEntry
	Messages  []models.TranscriptEntry
	Phase     Phase
	IntroStep int
}

// Text returns the last interviewer message.
func (r *Reply) Text() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

type AudioReply struct {
	Transcription string
	Reply         *Reply
	// AudioURL is the synthesized audio of the last interviewer message, if any.
	AudioURL string
}

// StartSession creates a session for a known role and persists the welcome message.
func (s *Service) StartSession(ctx context.Context, req StartRequest) (*Started, error) {
	roleID := strings.TrimSpace(req.RoleID)
	if roleID == "" {
		return nil, apperr.Validation("role_id", "role id is required")
	}
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	if role == nil {
		return nil, apperr.Validation("role_id", fmt.Sprintf("unknown role %q", roleID))
	}

	sess := &models.Session{
		ID:           uuid.NewString(),
		RoleID:       role.ID,
		RoleTitle:    role.Title,
		VoiceEnabled: req.VoiceEnabled,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	st := &sessionState{phase: PhaseIntro, profile: req.Profile, role: *role}
	st = s.reg.putIfAbsent(sess.ID, st)
	st.mu.Lock()
	defer st.mu.Unlock()

	welcome, err := s.appendInterviewer(ctx, sess, welcomeMessage(req.Profile), req.VoiceEnabled)
	if err != nil {
		return nil, err
	}

	logger.Info("interview: session started", slog.String("session_id", sess.ID), slog.String("role_id", role.ID), slog.Bool("voice", req.VoiceEnabled))
	return &Started{Session: sess, Welcome: welcome, Phase: st.phase}, nil
}

// SubmitCandidateMessage records a candidate turn and returns the interviewer's
// reply for the current phase.
func (s *Service) SubmitCandidateMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	return s.submit(ctx, sessionID, text, "", false)
}

// SubmitCandidateAudio transcribes an audio answer, stores the clip and then
// follows the text path. Replies are synthesized; a synthesis failure only
// drops the reply audio.
func (s *Service) SubmitCandidateAudio(ctx context.Context, sessionID string, audio []byte, filename string) (*AudioReply, error) {
	if len(audio) == 0 {
		return nil, apperr.Validation("audio", "audio file is required")
	}
	if _, err := s.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}

	text, err := s.gw.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("audio", "no speech detected in the recording")
	}

	var audioURL string
	if s.audio != nil {
		if audioURL, err = s.audio.Save(sessionID, audio, filename); err != nil {
			return nil, fmt.Errorf("save candidate audio: %w", err)
		}
	}

	reply, err := s.submit(ctx, sessionID, text, audioURL, true)
	if err != nil {
		return nil, err
	}
	out := &AudioReply{Transcription: text, Reply: reply}
	if n := len(reply.Messages); n > 0 {
		out.AudioURL = reply.Messages[n-1].AudioURL
	}
	return out, nil
}

func (s *Service) submit(ctx context.Context, sessionID, text, audioURL string, speak bool) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("message", "message is required")
	}
	if len([]rune(text)) > MaxMessageLength {
		return nil, apperr.Validation("message", fmt.Sprintf("message exceeds %d characters", MaxMessageLength))
	}

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st, err := s.acquire(ctx, sess)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.phase == PhaseEvaluation {
		return nil, apperr.Validation("session", "interview has already been evaluated")
	}
	// re-read under the session lock so a concurrent close is observed
	if sess, err = s.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if sess.Ended() {
		return nil, apperr.Validation("session", "session has ended")
	}

	candidate, err := s.store.AppendEntry(ctx, &models.TranscriptEntry{
		SessionID: sessionID,
		Speaker:   models.SpeakerCandidate,
		Content:   text,
		AudioURL:  audioURL,
	})
	if err != nil {
		return nil, fmt.Errorf("append candidate entry: %w", err)
	}

	speak = speak || sess.VoiceEnabled
	reply := &Reply{Candidate: candidate}
	switch st.phase {
	case PhaseIntro:
		err = s.introTurn(ctx, sess, st, text, speak, reply)
	default:
		err = s.interviewTurn(ctx, sess, st, speak, reply)
	}
	reply.Phase = st.phase
	reply.IntroStep = st.step
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Service) introTurn(ctx context.Context, sess *models.Session, st *sessionState, answer string, speak bool, reply *Reply) error {
	st.answers = append(st.answers, introAnswer{Question: introQuestion(st.step), Answer: answer})
	st.step++

	if st.step >= s.cfg.IntroSteps {
		return s.transition(ctx, sess, st, speak, reply)
	}

	next := s.nextIntroQuestion(ctx, st)
	entry, err := s.appendInterviewer(ctx, sess, next, speak)
	if err != nil {
		return err
	}
	reply.Messages = append(reply.Messages, *entry)
	return nil
}

// nextIntroQuestion never fails: the canned fallback is used when the model
// is unavailable or answers with nothing.
func (s *Service) nextIntroQuestion(ctx context.Context, st *sessionState) string {
	prompt, err := introPrompt(st.profile, st.role, st.answers)
	if err != nil {
		logger.Error("interview: intro prompt", slog.Any("err", err))
		return fallbackQuestion(st.step, st.profile)
	}
	out, err := s.gw.Complete(ctx, gateway.CompletionRequest{Prompt: prompt, Context: st.introContext})
	if err != nil {
		logger.Warn("interview: intro question generation failed, using fallback", slog.Int("step", st.step), slog.Any("err", err))
		return fallbackQuestion(st.step, st.profile)
	}
	q := strings.TrimSpace(out.Text)
	if q == "" {
		logger.Warn("interview: empty intro question, using fallback", slog.Int("step", st.step))
		return fallbackQuestion(st.step, st.profile)
	}
	st.introContext = out.Context
	return q
}

func (s *Service) transition(ctx context.Context, sess *models.Session, st *sessionState, speak bool, reply *Reply) error {
	st.advance(PhaseTransition)
	msg, err := s.appendInterviewer(ctx, sess, transitionMessage(st.profile, st.role, st.answers), speak)
	if err != nil {
		return err
	}
	reply.Messages = append(reply.Messages, *msg)
	st.advance(PhaseInterview)
	st.introContext = nil
	logger.Info("interview: intro complete", slog.String("session_id", sess.ID), slog.Int("answers", len(st.answers)))

	subset := st.answers
	if len(subset) > s.cfg.IntroContextAnswers {
		subset = subset[:s.cfg.IntroContextAnswers]
	}
	prompt, err := firstQuestionPrompt(st.profile, st.role, subset, s.cfg.SeedQuestions)
	if err != nil {
		return err
	}
	out, err := s.gw.Complete(ctx, gateway.CompletionRequest{Prompt: prompt})
	if err != nil {
		return err
	}
	q := strings.TrimSpace(out.Text)
	if q == "" {
		q = openingQuestion(st.role)
	}
	first, err := s.appendInterviewer(ctx, sess, q, speak)
	if err != nil {
		return err
	}
	reply.Messages = append(reply.Messages, *first)
	return nil
}

func openingQuestion(role models.RoleTemplate) string {
	if len(role.Questions) > 0 {
		return role.Questions[0]
	}
	return "To get started, could you walk me through a technical challenge you solved recently?"
}

func (s *Service) interviewTurn(ctx context.Context, sess *models.Session, st *sessionState, speak bool, reply *Reply) error {
	tail, err := s.store.TailEntries(ctx, sess.ID, s.cfg.TranscriptWindow)
	if err != nil {
		return fmt.Errorf("tail transcript: %w", err)
	}
	text, err := s.gw.Chat(ctx, ai.ChatWindow(systemPrompt(st.role), tail))
	if err != nil {
		return err
	}
	entry, err := s.appendInterviewer(ctx, sess, text, speak)
	if err != nil {
		return err
	}
	reply.Messages = append(reply.Messages, *entry)
	return nil
}

// appendInterviewer persists an interviewer turn, synthesizing it first when
// speak is set.
func (s *Service) appendInterviewer(ctx context.Context, sess *models.Session, text string, speak bool) (*models.TranscriptEntry, error) {
	entry := &models.TranscriptEntry{SessionID: sess.ID, Speaker: models.SpeakerInterviewer, Content: text}
	if speak {
		entry.AudioURL = s.synthesize(ctx, sess.ID, text)
	}
	stored, err := s.store.AppendEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("append interviewer entry: %w", err)
	}
	return stored, nil
}

func (s *Service) synthesize(ctx context.Context, sessionID, text string) string {
	if s.audio == nil {
		return ""
	}
	clip, err := s.gw.Synthesize(ctx, text)
	if err != nil {
		logger.Warn("interview: speech synthesis failed, replying without audio", slog.String("session_id", sessionID), slog.Any("err", err))
		return ""
	}
	url, err := s.audio.Save(sessionID, clip, "reply.wav")
	if err != nil {
		logger.Warn("interview: store synthesized audio", slog.String("session_id", sessionID), slog.Any("err", err))
		return ""
	}
	return url
}

// EndSession returns the session's evaluation, generating and storing it on
// the first call. The session is marked ended with the evaluation score.
func (s *Service) EndSession(ctx context.Context, sessionID string) (*models.Evaluation, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st, err := s.acquire(ctx, sess)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	existing, err := s.store.GetEvaluation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	if existing != nil {
		st.advance(PhaseEvaluation)
		return existing, nil
	}

	entries, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list transcript: %w", err)
	}
	if len(entries) < 2 {
		return nil, apperr.Validation("transcript", "at least two conversation turns are required before evaluation")
	}

	assessment, err := s.evaluator.Evaluate(ctx, entries)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.CreateEvaluationIfAbsent(ctx, assessment.ToEvaluation(sessionID))
	if err != nil {
		return nil, fmt.Errorf("store evaluation: %w", err)
	}

	if cur, err := s.loadSession(ctx, sessionID); err == nil && !cur.Ended() {
		score := stored.OverallScore
		if _, err := s.store.EndSession(ctx, sessionID, s.now().UTC(), &score); err != nil {
			return nil, fmt.Errorf("end session: %w", err)
		}
	}

	st.advance(PhaseEvaluation)
	logger.Info("interview: session evaluated", slog.String("session_id", sessionID), slog.Int("score", stored.OverallScore), slog.Bool("fallback", assessment.Fallback))
	return stored, nil
}

// GetEvaluation is a pure read; it returns nil, nil when no evaluation exists.
func (s *Service) GetEvaluation(ctx context.Context, sessionID string) (*models.Evaluation, error) {
	ev, err := s.store.GetEvaluation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	return ev, nil
}

// CloseSession ends the session lifecycle without evaluating it. Closing an
// already ended session returns it unchanged.
func (s *Service) CloseSession(ctx context.Context, sessionID string, score *int) (*models.Session, error) {
	if score != nil && (*score < 0 || *score > 100) {
		return nil, apperr.Validation("score", "score must be between 0 and 100")
	}
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st, err := s.acquire(ctx, sess)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if sess, err = s.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if sess.Ended() {
		return sess, nil
	}
	updated, err := s.store.EndSession(ctx, sessionID, s.now().UTC(), score)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("session", sessionID)
	}
	logger.Info("interview: session closed", slog.String("session_id", sessionID))
	return updated, nil
}

// State returns the in-process progress of a session, if any.
func (s *Service) State(sessionID string) (Snapshot, bool) {
	st, ok := s.reg.get(sessionID)
	if !ok {
		return Snapshot{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot(), true
}

// Describe returns the session with its current phase. Sessions without
// in-process state report EVALUATION when evaluated and INTERVIEW otherwise.
func (s *Service) Describe(ctx context.Context, sessionID string) (*models.Session, Snapshot, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, Snapshot{}, err
	}
	if snap, ok := s.State(sessionID); ok {
		return sess, snap, nil
	}
	phase, err := s.resumePhase(ctx, sessionID)
	if err != nil {
		return nil, Snapshot{}, err
	}
	return sess, Snapshot{Phase: phase}, nil
}

func (s *Service) loadSession(ctx context.Context, id string) (*models.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("session_id", "session id is required")
	}
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, apperr.NotFound("session", id)
	}
	return sess, nil
}

// acquire returns the state of a session, rebuilding it for sessions started
// by a previous process. Rebuilt sessions skip the intro.
func (s *Service) acquire(ctx context.Context, sess *models.Session) (*sessionState, error) {
	if st, ok := s.reg.get(sess.ID); ok {
		return st, nil
	}

	phase, err := s.resumePhase(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	st := &sessionState{phase: phase, step: s.cfg.IntroSteps}
	role, err := s.store.GetRole(ctx, sess.RoleID)
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	if role != nil {
		st.role = *role
	} else {
		st.role = models.RoleTemplate{ID: sess.RoleID, Title: orDefault(sess.RoleTitle, sess.RoleID)}
	}

	logger.Info("interview: resuming session without intro state", slog.String("session_id", sess.ID), slog.String("phase", phase.String()))
	return s.reg.putIfAbsent(sess.ID, st), nil
}

func (s *Service) resumePhase(ctx context.Context, sessionID string) (Phase, error) {
	ev, err := s.store.GetEvaluation(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("get evaluation: %w", err)
	}
	if ev != nil {
		return PhaseEvaluation, nil
	}
	return PhaseInterview, nil
}

// Profile returns the intro profile captured when the session started. It is
// only available while the session state is held by this process.
func (s *Service) Profile(sessionID string) (models.IntroProfile, bool) {
	st, ok := s.reg.get(sessionID)
	if !ok {
		return models.IntroProfile{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.profile, st.profile != (models.IntroProfile{})
}
