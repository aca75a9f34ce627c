package agent

import "regexp"

// guardPattern pairs a reportable name with a compiled expression.
type guardPattern struct {
	name string
	re   *regexp.Regexp
}

// InputGuard screens a turn's input before it becomes a user notion.
// Matches are reported by name; the loop's guard action decides whether
// that warns or rejects the turn.
type InputGuard struct {
	patterns []guardPattern
}

func NewInputGuard() *InputGuard {
	return &InputGuard{patterns: injectionPatterns}
}

// Scan reports the names of every pattern the input matches. Nil means
// the input is clean.
func (g *InputGuard) Scan(input string) []string {
	if input == "" {
		return nil
	}
	var hits []string
	for _, p := range g.patterns {
		if p.re.MatchString(input) {
			hits = append(hits, p.name)
		}
	}
	return hits
}

// injectionPatterns covers the common ways a message tries to rewrite the
// conversation's standing instructions: direct overrides, role swaps,
// smuggled chat-template markup, and control characters. Kept narrow so
// ordinary questions about prompts or instructions pass.
var injectionPatterns = []guardPattern{
	{
		name: "ignore_instructions",
		re:   regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier|preceding)\s+(instructions?|rules?|prompts?|directives?|guidelines?)`),
	},
	{
		name: "role_override",
		re:   regexp.MustCompile(`(?i)(you are now|from now on you are|pretend you are|act as if you are|imagine you are)\s+`),
	},
	{
		name: "system_tags",
		re:   regexp.MustCompile(`(?i)</?system>|\[SYSTEM\]|\[INST\]|<<SYS>>|<\|im_start\|>system`),
	},
	{
		name: "instruction_injection",
		re:   regexp.MustCompile(`(?i)(new instructions?:|override:|system prompt:|<\|system\|>)`),
	},
	{
		name: "null_bytes",
		re:   regexp.MustCompile(`\x00`),
	},
	{
		name: "delimiter_escape",
		re:   regexp.MustCompile(`(?i)(end of system|begin user input|</?(instructions?|rules|prompt|context)>)`),
	},
}
