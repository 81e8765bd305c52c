// Package scan finds keyword hits in raw script output and report text.
package scan

import "strings"

// DefaultPatterns is the keyword list used when no error_patterns setting is
// configured.
const DefaultPatterns = "error,warning,danger,failed,ORA-,TNS-"

// ErrorMatch is a single keyword hit together with its surrounding lines.
type ErrorMatch struct {
	Pattern      string   `json:"pattern"       yaml:"pattern"`
	Line         int      `json:"line"          yaml:"line"`
	Text         string   `json:"text"          yaml:"text"`
	ContextLines []string `json:"context_lines" yaml:"context_lines"`
}

// ParsePatterns splits a comma-separated pattern list, trimming and
// lowercasing every entry. Empty entries are dropped.
func ParsePatterns(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Scan tests every line of text against patterns (case-insensitive) and
// returns one ErrorMatch per matching line, in line order. The first pattern
// that hits a line wins. Context is the line before and after, clamped to the
// text bounds, in lowercase form.
func Scan(text string, patterns []string) []ErrorMatch {
	folded := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p != "" {
			folded = append(folded, p)
		}
	}
	if len(folded) == 0 || text == "" {
		return nil
	}

	raw := strings.Split(text, "\n")
	lower := strings.Split(strings.ToLower(text), "\n")
	// ToLower can change byte lengths but never the number of newlines.
	var matches []ErrorMatch
	for i, line := range lower {
		for _, p := range folded {
			if !strings.Contains(line, p) {
				continue
			}
			start := max(0, i-1)
			end := min(len(lower), i+2)
			ctx := make([]string, end-start)
			copy(ctx, lower[start:end])
			matches = append(matches, ErrorMatch{
				Pattern:      p,
				Line:         i,
				Text:         strings.TrimSpace(raw[i]),
				ContextLines: ctx,
			})
			break
		}
	}
	return matches
}

// Context joins the match's context lines with newlines.
func (m ErrorMatch) Context() string {
	return strings.Join(m.ContextLines, "\n")
}

// ContainsAny reports whether text contains any of the tokens, ignoring case.
func ContainsAny(text string, tokens ...string) bool {
	lower := strings.ToLower(text)
	for _, t := range tokens {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
