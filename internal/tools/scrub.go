package tools

import "regexp"

// Tool output is folded back into the conversation as a tool notion, so
// anything a handler picked up from its environment would reach the model
// and, under an archiving strategy, persistent storage. Known credential
// shapes are masked before a result leaves the registry.
var credentialPatterns = []*regexp.Regexp{
	// Provider API keys.
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{20,}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	// GitHub token families share one prefix shape.
	regexp.MustCompile(`gh[porus]_[a-zA-Z0-9]{36}`),
	// AWS access key IDs.
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	// Assignments like api_key=..., token: ..., bearer ...
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|bearer|authorization)\s*[:=]\s*["']?\S{8,}["']?`),
}

const redacted = "[REDACTED]"

// ScrubCredentials masks API keys, access tokens, and key=value secrets
// in text.
func ScrubCredentials(text string) string {
	for _, re := range credentialPatterns {
		text = re.ReplaceAllString(text, redacted)
	}
	return text
}
