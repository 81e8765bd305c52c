package output

import "time"

// Response is the envelope every command prints.
type Response struct {
	Success   bool      `json:"success"             yaml:"success"`
	Timestamp time.Time `json:"timestamp"           yaml:"timestamp"`
	Command   string    `json:"command"             yaml:"command"`
	Data      any       `json:"data,omitempty"      yaml:"data,omitempty"`
	Error     *string   `json:"error,omitempty"     yaml:"error,omitempty"`
}

// Tabular is implemented by payloads that render as rows in table format.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Format represents the output serialization format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat reports whether s names a supported format.
func ParseFormat(s string) (Format, bool) {
	switch f := Format(s); f {
	case FormatJSON, FormatTable, FormatYAML:
		return f, true
	}
	return "", false
}
