package config

import "strings"

// DefaultAgentID names the agent when the config leaves it blank.
const DefaultAgentID = "default"

const maxAgentIDLen = 64

// NormalizeAgentID maps a free-form name onto the ID charset used for log
// attributes and session scoping: lowercase [a-z0-9_-], at most 64 chars.
// A run of other characters collapses to a single dash, edge dashes are
// trimmed, and an empty result falls back to DefaultAgentID.
func NormalizeAgentID(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(lower))
	pendingDash := false
	for _, r := range lower {
		valid := r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !valid {
			pendingDash = b.Len() > 0
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(r)
	}

	id := strings.Trim(b.String(), "-")
	if len(id) > maxAgentIDLen {
		id = strings.TrimRight(id[:maxAgentIDLen], "-")
	}
	if id == "" {
		return DefaultAgentID
	}
	return id
}
