package interview

import (
	"fmt"
	"strings"

	"github.com/garnizeh/mockinterview/pkg/models"
	"github.com/garnizeh/mockinterview/pkg/ollama"
)

// introQuestions are the canned intro questions, indexed by step.
var introQuestions = []string{
	"Could you tell me a bit about yourself and your background?",
	"Could you tell me about a recent project or accomplishment you're particularly proud of?",
	"What interests you most about this role?",
	"What areas would you like to focus on or feel you need the most practice with?",
}

func introQuestion(step int) string {
	if step >= 0 && step < len(introQuestions) {
		return introQuestions[step]
	}
	return "Tell me more about your background."
}

// fallbackQuestion is used when the model cannot produce the next intro
// question. step is the number of answers recorded so far.
func fallbackQuestion(step int, p models.IntroProfile) string {
	role := p.TargetRole
	if role == "" {
		role = "target"
	}
	at := ""
	if p.TargetCompany != "" {
		at = " at " + p.TargetCompany
	}
	fallbacks := []string{
		"Thank you for sharing! Could you tell me about a recent project or accomplishment you're particularly proud of?",
		fmt.Sprintf("That sounds impressive! What interests you most about the %s role%s?", role, at),
		"Great insight! What areas would you like to focus on or feel you need the most practice with in this interview?",
	}
	i := step - 1
	if i < 0 || i >= len(fallbacks) {
		i = 0
	}
	return fallbacks[i]
}

func welcomeMessage(p models.IntroProfile) string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hello %s! Welcome to your interview practice session. I'll be your interviewer today. Let me get to know you better before we begin.\n\nFirst, %s",
		name, lowerFirst(introQuestions[0]))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

type profileView struct {
	Name              string
	ExperienceLevel   string
	TargetRole        string
	TargetCompany     string
	InterviewType     string
	Difficulty        string
	AdditionalContext string
}

func viewProfile(p models.IntroProfile, role models.RoleTemplate) profileView {
	return profileView{
		Name:              orDefault(p.Name, "Candidate"),
		ExperienceLevel:   orDefault(p.ExperienceLevel, "Not specified"),
		TargetRole:        orDefault(p.TargetRole, role.Title),
		TargetCompany:     orDefault(p.TargetCompany, "Not specified"),
		InterviewType:     orDefault(p.InterviewType, "Technical"),
		Difficulty:        orDefault(p.Difficulty, orDefault(role.Difficulty, "mid")),
		AdditionalContext: orDefault(p.AdditionalContext, "None specified"),
	}
}

const introPromptTmpl = `You are an experienced interviewer conducting a pre-interview conversation. Based on the conversation so far, generate the next logical follow-up question. Be conversational, show you've been listening, and naturally transition to learning more about the candidate.

Candidate Profile:
- Name: {{.Profile.Name}}
- Experience: {{.Profile.ExperienceLevel}}
- Target Role: {{.Profile.TargetRole}}
- Company: {{.Profile.TargetCompany}}
- Interview Type: {{.Profile.InterviewType}}
- Difficulty: {{.Profile.Difficulty}}

Conversation so far:
{{range $i, $a := .Answers}}Q{{inc $i}}: {{$a.Question}}
A{{inc $i}}: {{$a.Answer}}

{{end}}Generate the next question (step {{.Next}} of {{.Total}}) that builds on their previous responses and helps you understand them better before the formal interview begins. Be warm, professional, and reply with the question only.`

func introPrompt(p models.IntroProfile, role models.RoleTemplate, answers []introAnswer) (string, error) {
	return renderPrompt(introPromptTmpl, map[string]any{
		"Profile": viewProfile(p, role),
		"Answers": answers,
		"Next":    len(answers) + 1,
		"Total":   len(introQuestions),
	})
}

const firstQuestionTmpl = `You are now starting the formal interview portion. Here's the candidate information:

BASIC INFO:
- Name: {{.Profile.Name}}
- Experience Level: {{.Profile.ExperienceLevel}}
- Target Role: {{.Profile.TargetRole}}
- Target Company: {{.Profile.TargetCompany}}
- Interview Type: {{.Profile.InterviewType}}
- Difficulty Level: {{.Profile.Difficulty}}
- Additional Focus Areas: {{.Profile.AdditionalContext}}

ROLE: {{.Role.Title}}
{{.Role.Description}}
{{if .Seeds}}
Example questions for this role (use as inspiration, not a script):
{{range .Seeds}}- {{.}}
{{end}}{{end}}
INTRODUCTION CONVERSATION:
{{range $i, $a := .Answers}}Introduction Q{{inc $i}}: {{$a.Question}}
Candidate Response: {{$a.Answer}}

{{end}}Now begin the formal {{lower .Profile.InterviewType}} interview at {{lower .Profile.Difficulty}} difficulty level. Use the information from the introduction conversation to ask a relevant, personalized question.

Reply with your first formal interview question only.`

// firstQuestionPrompt only receives the bounded subset of intro answers.
func firstQuestionPrompt(p models.IntroProfile, role models.RoleTemplate, answers []introAnswer, seeds int) (string, error) {
	pool := role.Questions
	if seeds >= 0 && len(pool) > seeds {
		pool = pool[:seeds]
	}
	return renderPrompt(firstQuestionTmpl, map[string]any{
		"Profile": viewProfile(p, role),
		"Role":    role,
		"Seeds":   pool,
		"Answers": answers,
	})
}

func transitionMessage(p models.IntroProfile, role models.RoleTemplate, answers []introAnswer) string {
	v := viewProfile(p, role)
	var b strings.Builder
	b.WriteString("Perfect! I have a good understanding of your background now. Let me review what you've shared:\n\n")
	for i, a := range answers {
		fmt.Fprintf(&b, "%d. %s\n   Your answer: \"%s\"\n\n", i+1, a.Question, truncate(a.Answer, 100))
	}
	fmt.Fprintf(&b, "If you like, you can also tell me: %s It's optional, feel free to mention it in any answer.\n\n", introQuestion(len(answers)))
	fmt.Fprintf(&b, "Let's begin the actual interview. I'll ask you questions similar to what you might encounter in a real %s interview for a %s position.\n\nLet's start with our first question:",
		strings.ToLower(v.InterviewType), v.TargetRole)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

const systemPromptTmpl = `You are an experienced interviewer conducting a {{.Title}} interview.
{{.Description}}

Your responsibilities:
- Ask thoughtful, relevant questions one at a time
- Listen carefully to the candidate's responses
- Ask follow-up questions to probe deeper
- Maintain a professional and encouraging tone
- Evaluate technical accuracy and communication skills

Guidelines:
- Ask one question at a time
- Wait for the candidate's response before proceeding
- Adjust difficulty based on responses
- Focus on practical scenarios and problem-solving`

func systemPrompt(role models.RoleTemplate) string {
	out, err := renderPrompt(systemPromptTmpl, role)
	if err != nil {
		// the template only references fields that always exist
		logger.Error("interview: render system prompt", "err", err)
		return ""
	}
	return out
}

func renderPrompt(tmpl string, data any) (string, error) {
	out, err := ollama.RenderTemplate(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}
