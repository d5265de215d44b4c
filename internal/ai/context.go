package ai

import (
	"github.com/garnizeh/mockinterview/internal/gateway"
	"github.com/garnizeh/mockinterview/pkg/models"
)

// SpeakerRole maps a transcript speaker onto a chat role: the interviewer is
// the assistant, the candidate is the user.
func SpeakerRole(s models.Speaker) string {
	if s == models.SpeakerInterviewer {
		return gateway.RoleAssistant
	}
	return gateway.RoleUser
}

// ChatWindow builds the chat context for the model: the system prompt
// followed by the given transcript entries in chronological order. Callers
// pass the bounded tail of the transcript.
func ChatWindow(system string, entries []models.TranscriptEntry) []gateway.ChatMessage {
	msgs := make([]gateway.ChatMessage, 0, len(entries)+1)
	if system != "" {
		msgs = append(msgs, gateway.ChatMessage{Role: gateway.RoleSystem, Content: system})
	}
	for _, e := range entries {
		msgs = append(msgs, gateway.ChatMessage{Role: SpeakerRole(e.Speaker), Content: e.Content})
	}
	return msgs
}
