package models

// Request and response bodies shared by the HTTP API and pkg/client.

type StartSessionRequest struct {
	RoleID       string       `json:"role_id"`
	VoiceEnabled bool         `json:"voice_enabled"`
	Profile      IntroProfile `json:"profile"`
}

type StartSessionResponse struct {
	Session Session         `json:"session"`
	Message TranscriptEntry `json:"message"`
	Phase   string          `json:"phase"`
}

type SessionView struct {
	Session   Session `json:"session"`
	Phase     string  `json:"phase"`
	IntroStep int     `json:"intro_step"`
}

type EndSessionRequest struct {
	Score *int `json:"score,omitempty"`
}

type MessageRequest struct {
	Message string `json:"message"`
}

type MessageResponse struct {
	Messages  []TranscriptEntry `json:"messages"`
	Phase     string            `json:"phase"`
	IntroStep int               `json:"intro_step"`
}

// Reply returns the text of the last interviewer message, if any.
func (r *MessageResponse) Reply() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

type AudioResponse struct {
	Transcription string            `json:"transcription"`
	Message       string            `json:"message"`
	AudioURL      string            `json:"audio_url,omitempty"`
	Messages      []TranscriptEntry `json:"messages"`
	Phase         string            `json:"phase"`
}

type SessionDetail struct {
	Session    Session           `json:"session"`
	Transcript []TranscriptEntry `json:"transcript"`
	Evaluation *Evaluation       `json:"evaluation,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components,omitempty"`
}

type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SigninResponse struct {
	Token string `json:"token"`
}
