package tablespace_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/luckyjian/dgwatch/internal/tablespace"
)

func fixture(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "htmlreport", "testdata", "daily_report.html"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(b)
}

func TestAggregate_Fixture(t *testing.T) {
	s := tablespace.Aggregate(fixture(t))
	if s.Count != 3 {
		t.Fatalf("expected 3 well-formed tablespaces, got %d", s.Count)
	}
	if s.HighUsageCount != 1 {
		t.Errorf("expected 1 high usage tablespace, got %d", s.HighUsageCount)
	}
	if math.Abs(s.TotalSizeMB-33072) > 1e-6 {
		t.Errorf("expected total size 33072, got %f", s.TotalSizeMB)
	}
	if math.Abs(s.TotalMaxSizeMB-98303.94) > 1e-6 {
		t.Errorf("expected total max size 98303.94, got %f", s.TotalMaxSizeMB)
	}
	if s.OverallUsagePercent == nil {
		t.Fatal("expected overall usage to be defined")
	}
	want := 33072 / 98303.94 * 100
	if math.Abs(*s.OverallUsagePercent-want) > 1e-9 {
		t.Errorf("expected overall %f, got %f", want, *s.OverallUsagePercent)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	text := fixture(t)
	a := tablespace.Aggregate(text)
	b := tablespace.Aggregate(text)
	if a.Count != b.Count || a.TotalSizeMB != b.TotalSizeMB || a.TotalMaxSizeMB != b.TotalMaxSizeMB ||
		a.HighUsageCount != b.HighUsageCount || *a.OverallUsagePercent != *b.OverallUsagePercent {
		t.Errorf("aggregation not idempotent: %+v vs %+v", a, b)
	}
}

func TestAggregate_NoMarker(t *testing.T) {
	s := tablespace.Aggregate("<td>\nSYSTEM\n1.0\n2.0\n3.0\n</tr>")
	if s.Count != 0 || s.OverallUsagePercent != nil {
		t.Errorf("expected empty summary without marker, got %+v", s)
	}
	if tablespace.Present("nothing") {
		t.Error("Present should be false without marker")
	}
}

func TestParseRows_SkipsHeaderKeywordsAndShortRows(t *testing.T) {
	text := "Tablespace usage:\n<td>\nTABLESPACE\n1.0\n2.0\n3.0\n</tr>\n" +
		"<td>\nUSERS\n  10.5\n</td>\n<td align=\"right\">\n20.0\n</td>\n</tr>\n" +
		"<td>\nUNDO\n1,000.50\n2,000.00\n50.03\n</tr>\n</table>\n<td>\nAFTER\n1.0\n2.0\n3.0\n"
	rows := tablespace.ParseRows(text)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d (%+v)", len(rows), rows)
	}
	r := rows[0]
	if r.Name != "UNDO" || r.SizeMB != 1000.5 || r.MaxSizeMB != 2000 || r.UsedPercent != 50.03 {
		t.Errorf("unexpected row %+v", r)
	}
}

func TestParseRows_IntegersAreNotValues(t *testing.T) {
	text := "Tablespace usage:\n<td>\nDATA\n100\n1.0\n2.0\n3.0\n</tr>\n</table>"
	rows := tablespace.ParseRows(text)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].SizeMB != 1.0 {
		t.Errorf("integer token must be ignored, got size %f", rows[0].SizeMB)
	}
}

func TestParseRows_MalformedValueDropsRow(t *testing.T) {
	text := "Tablespace usage:\n<td>\nDATA\n1.2.3\n1.0\n2.0\n</tr>\n</table>"
	if rows := tablespace.ParseRows(text); len(rows) != 0 {
		t.Errorf("expected malformed row to be dropped, got %+v", rows)
	}
}

func TestFold_ZeroMaxLeavesOverallUndefined(t *testing.T) {
	s := tablespace.Fold([]tablespace.Row{{Name: "X", SizeMB: 10, MaxSizeMB: 0, UsedPercent: 90}})
	if s.OverallUsagePercent != nil {
		t.Errorf("expected undefined overall usage, got %f", *s.OverallUsagePercent)
	}
	if s.HighUsageCount != 1 || s.Count != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestUsageLabel(t *testing.T) {
	cases := map[float64]string{85: "high", 80: "monitor", 60.5: "monitor", 60: "good", 10: "good"}
	for pct, want := range cases {
		if got := tablespace.UsageLabel(pct); got != want {
			t.Errorf("UsageLabel(%v): expected %q, got %q", pct, want, got)
		}
	}
	if tablespace.GB(2048) != 2 {
		t.Errorf("expected 2 GB")
	}
}
