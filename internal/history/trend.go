// Package history derives error trends from the tail of the run log.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// DefaultTailLines is how many trailing run-log lines are analyzed.
const DefaultTailLines = 100

// ErrNoLog is returned when the run log does not exist yet.
var ErrNoLog = errors.New("run log not found")

// Trend counts error signatures in recent run-log lines.
type Trend struct {
	LinesAnalyzed    int `json:"lines_analyzed"    yaml:"lines_analyzed"`
	RecentErrors     int `json:"recent_errors"     yaml:"recent_errors"`
	SQLPlusErrors    int `json:"sqlplus_errors"    yaml:"sqlplus_errors"`
	ConnectionErrors int `json:"connection_errors" yaml:"connection_errors"`
}

// Stability is the coarse classification of the recent error rate.
type Stability string

const (
	Stable   Stability = "stable"
	Sporadic Stability = "sporadic"
	Frequent Stability = "frequent"
)

// Stability classifies the trend: no errors is stable, more than ten is
// frequent, anything in between sporadic.
func (t Trend) Stability() Stability {
	switch {
	case t.RecentErrors == 0:
		return Stable
	case t.RecentErrors > 10:
		return Frequent
	default:
		return Sporadic
	}
}

// Tail returns the last n lines of the file at path. A non-positive n
// means DefaultTailLines.
func Tail(fsys afero.Fs, path string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultTailLines
	}
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoLog)
		}
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	ring := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}
	return ring, nil
}

// Analyze counts error, Oracle client and connection signatures in lines.
// JSON run-log entries are judged by their level, message and error fields
// only, so field names such as "pattern_hits" never count as errors.
func Analyze(lines []string) Trend {
	t := Trend{LinesAnalyzed: len(lines)}
	for _, line := range lines {
		text, failed := entryText(line)
		lower := strings.ToLower(text)
		if failed || strings.Contains(lower, "error") || strings.Contains(lower, "failed") || strings.Contains(lower, "exception") {
			t.RecentErrors++
		}
		if strings.Contains(lower, "sqlplus") && strings.Contains(lower, "not recognized") {
			t.SQLPlusErrors++
		}
		if strings.Contains(lower, "ora-") || strings.Contains(lower, "tns-") {
			t.ConnectionErrors++
		}
	}
	return t
}

// logEntry is the subset of a zerolog JSON line the trend looks at.
type logEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// entryText returns the text of line worth scanning and whether the entry
// was logged at error level or above. Lines that are not JSON objects are
// scanned whole.
func entryText(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return line, false
	}
	var e logEntry
	if err := json.Unmarshal([]byte(trimmed), &e); err != nil {
		return line, false
	}
	failed := e.Level == "error" || e.Level == "fatal" || e.Level == "panic"
	return e.Message + " " + e.Error, failed
}

// FromLog reads the tail of the run log and analyzes it.
func FromLog(fsys afero.Fs, path string, n int) (Trend, error) {
	lines, err := Tail(fsys, path, n)
	if err != nil {
		return Trend{}, err
	}
	return Analyze(lines), nil
}
