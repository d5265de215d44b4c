package models

import "time"

// Domain models matching the database schema in db/migrations/0001_init.sql

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// Valid reports whether s is one of the known speakers.
func (s Speaker) Valid() bool {
	return s == SpeakerCandidate || s == SpeakerInterviewer
}

type Session struct {
	ID              string     `json:"id"`
	RoleID          string     `json:"role_id"`
	RoleTitle       string     `json:"role_title,omitempty"`
	VoiceEnabled    bool       `json:"voice_enabled"`
	CreatedAt       time.Time  `json:"created_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Score           *int       `json:"score,omitempty"`
}

// Ended reports whether the session lifecycle has been closed.
func (s *Session) Ended() bool {
	return s != nil && s.EndedAt != nil
}

type TranscriptEntry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Speaker   Speaker   `json:"speaker"`
	Content   string    `json:"content"`
	AudioURL  string    `json:"audio_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type RoleTemplate struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Difficulty  string   `json:"difficulty" yaml:"difficulty"`
	Questions   []string `json:"questions" yaml:"questions"`
	Updated     int64    `json:"updated,omitempty" yaml:"-"`
}

type Evaluation struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id"`
	OverallScore     int       `json:"overall_score"`
	Strengths        []string  `json:"strengths"`
	Improvements     []string  `json:"areas_for_improvement"`
	DetailedFeedback string    `json:"detailed_feedback"`
	CreatedAt        time.Time `json:"created_at"`
}

// Schema is a versioned JSON schema used to validate model output.
type Schema struct {
	ID          int64  `json:"id"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	SchemaJSON  string `json:"schema_json"`
	Created     int64  `json:"created"`
	Updated     int64  `json:"updated"`
}

// IntroProfile is the candidate profile collected before the interview starts.
type IntroProfile struct {
	Name              string `json:"name"`
	ExperienceLevel   string `json:"experience_level,omitempty"`
	TargetRole        string `json:"target_role,omitempty"`
	TargetCompany     string `json:"target_company,omitempty"`
	InterviewType     string `json:"interview_type,omitempty"`
	Difficulty        string `json:"difficulty,omitempty"`
	AdditionalContext string `json:"additional_context,omitempty"`
}
