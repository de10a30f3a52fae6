// Package prompts provides system prompts for flashchat.
package prompts

import "strings"

// DefaultSystemPrompt is used when the user has not set their own.
const DefaultSystemPrompt = "You are a helpful AI assistant."

// ExampleQuestions are shown on startup to suggest a first message.
var ExampleQuestions = []string{
	"Please explain what machine learning is.",
	"Help me write a Python quicksort algorithm.",
	"How many prime numbers are there under 1000?",
}

// SystemPrompt returns the custom prompt if set, else the default.
func SystemPrompt(custom string) string {
	if strings.TrimSpace(custom) != "" {
		return strings.TrimSpace(custom)
	}
	return DefaultSystemPrompt
}
