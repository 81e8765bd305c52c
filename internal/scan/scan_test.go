package scan_test

import (
	"strings"
	"testing"

	"github.com/luckyjian/dgwatch/internal/scan"
)

func TestParsePatterns(t *testing.T) {
	got := scan.ParsePatterns(" Error, ,ORA-,  TNS- ,")
	want := []string{"error", "ora-", "tns-"}
	if len(got) != len(want) {
		t.Fatalf("expected %d patterns, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pattern %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestScan_OneMatchPerLine(t *testing.T) {
	text := "ok\nORA-01034: ERROR oracle not available\nfine"
	matches := scan.Scan(text, scan.ParsePatterns(scan.DefaultPatterns))
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Pattern != "error" {
		t.Errorf("expected first listed pattern 'error' to win, got %q", m.Pattern)
	}
	if m.Line != 1 {
		t.Errorf("expected line 1, got %d", m.Line)
	}
	if m.Text != "ORA-01034: ERROR oracle not available" {
		t.Errorf("unexpected text %q", m.Text)
	}
	if len(m.ContextLines) != 3 || m.ContextLines[0] != "ok" || m.ContextLines[2] != "fine" {
		t.Errorf("unexpected context %v", m.ContextLines)
	}
}

func TestScan_ContextClampedAtBounds(t *testing.T) {
	matches := scan.Scan("failed first\nmiddle\nlast failed", []string{"failed"})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if len(matches[0].ContextLines) != 2 || matches[0].ContextLines[0] != "failed first" {
		t.Errorf("first match context should start at line 0, got %v", matches[0].ContextLines)
	}
	if len(matches[1].ContextLines) != 2 || matches[1].ContextLines[1] != "last failed" {
		t.Errorf("last match context should end at the last line, got %v", matches[1].ContextLines)
	}
}

func TestScan_SingleLine(t *testing.T) {
	matches := scan.Scan("TNS-12541: no listener", []string{"TNS-"})
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if len(matches[0].ContextLines) != 1 {
		t.Errorf("expected a single context line, got %v", matches[0].ContextLines)
	}
	if matches[0].Pattern != "tns-" {
		t.Errorf("expected folded pattern 'tns-', got %q", matches[0].Pattern)
	}
}

func TestScan_LineOrderAndBounds(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		if i%3 == 0 {
			b.WriteString("warning danger error\n")
		} else {
			b.WriteString("all good\n")
		}
	}
	matches := scan.Scan(b.String(), []string{"danger", "warning", "error"})
	last := -1
	for _, m := range matches {
		if m.Line <= last {
			t.Fatalf("matches out of order or duplicated: line %d after %d", m.Line, last)
		}
		last = m.Line
		if len(m.ContextLines) == 0 || len(m.ContextLines) > 3 {
			t.Errorf("line %d: context size %d out of range", m.Line, len(m.ContextLines))
		}
	}
	if len(matches) != 17 {
		t.Errorf("expected 17 matching lines, got %d", len(matches))
	}
}

func TestScan_NoPatterns(t *testing.T) {
	if got := scan.Scan("error everywhere", nil); got != nil {
		t.Errorf("expected nil for empty pattern set, got %v", got)
	}
	if got := scan.Scan("", []string{"error"}); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
}

func TestContainsAny(t *testing.T) {
	if !scan.ContainsAny("MRP0 WAIT_FOR_LOG", "wait_for_log") {
		t.Error("expected case-insensitive hit")
	}
	if scan.ContainsAny("nothing here", "rfs", "lgwr") {
		t.Error("expected no hit")
	}
}
