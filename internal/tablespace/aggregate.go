// Package tablespace folds the rows of the report's "Tablespace usage" table
// into a summary.
package tablespace

import (
	"regexp"
	"strconv"
	"strings"
)

// Marker is the text that introduces the tablespace table in the report.
const Marker = "Tablespace usage:"

// HighUsagePercent is the per-tablespace usage above which a row counts as
// high usage.
const HighUsagePercent = 80.0

var (
	groupedDecimalRE = regexp.MustCompile(`^[\d,]+\.\d+$`)
	plainDecimalRE   = regexp.MustCompile(`^[\d.]+$`)

	headerKeywords = map[string]bool{
		"TABLESPACE":   true,
		"SIZE (M)":     true,
		"MAX SIZE (M)": true,
		"USED %":       true,
		"TYPE":         true,
		"STATUS":       true,
	}
)

// Row is one tablespace with its (size, max size, used percent) triple.
type Row struct {
	Name        string  `json:"name"         yaml:"name"`
	SizeMB      float64 `json:"size_mb"      yaml:"size_mb"`
	MaxSizeMB   float64 `json:"max_size_mb"  yaml:"max_size_mb"`
	UsedPercent float64 `json:"used_percent" yaml:"used_percent"`
}

// Summary is the fold of all well-formed tablespace rows.
type Summary struct {
	Count               int      `json:"count"                           yaml:"count"`
	TotalSizeMB         float64  `json:"total_size_mb"                   yaml:"total_size_mb"`
	TotalMaxSizeMB      float64  `json:"total_max_size_mb"               yaml:"total_max_size_mb"`
	OverallUsagePercent *float64 `json:"overall_usage_percent,omitempty" yaml:"overall_usage_percent,omitempty"`
	HighUsageCount      int      `json:"high_usage_count"                yaml:"high_usage_count"`
}

// Present reports whether text carries a tablespace table at all.
func Present(text string) bool {
	return strings.Contains(text, Marker)
}

// Aggregate parses the tablespace rows of text and folds them into a Summary.
// Text without the tablespace marker yields an empty Summary.
func Aggregate(text string) Summary {
	return Fold(ParseRows(text))
}

// Fold accumulates rows into a Summary. The overall usage is only defined
// when the total max size is positive.
func Fold(rows []Row) Summary {
	var s Summary
	for _, r := range rows {
		s.Count++
		s.TotalSizeMB += r.SizeMB
		s.TotalMaxSizeMB += r.MaxSizeMB
		if r.UsedPercent > HighUsagePercent {
			s.HighUsageCount++
		}
	}
	if s.TotalMaxSizeMB > 0 {
		overall := s.TotalSizeMB / s.TotalMaxSizeMB * 100
		s.OverallUsagePercent = &overall
	}
	return s
}

// ParseRows walks the lines following the tablespace marker. A line holding
// only "<td>" followed by a plain, non-header line starts a row; the next
// three decimal values before "</tr>" are its size, max size and used
// percent. Rows with fewer than three values are dropped.
func ParseRows(text string) []Row {
	if !Present(text) {
		return nil
	}
	lines := strings.Split(text, "\n")
	var rows []Row
	inSection := false
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !inSection {
			inSection = strings.Contains(line, Marker)
			continue
		}
		if strings.Contains(line, "</table>") {
			break
		}
		if line != "<td>" || i+1 >= len(lines) {
			continue
		}
		name := strings.TrimSpace(lines[i+1])
		if name == "" || strings.HasPrefix(name, "<") || headerKeywords[name] {
			continue
		}
		values := collectValues(lines, i+2)
		if len(values) < 3 {
			continue
		}
		rows = append(rows, Row{
			Name:        name,
			SizeMB:      values[0],
			MaxSizeMB:   values[1],
			UsedPercent: values[2],
		})
	}
	return rows
}

func collectValues(lines []string, from int) []float64 {
	var values []float64
	for j := from; j < len(lines) && len(values) < 3; j++ {
		line := strings.TrimSpace(lines[j])
		if strings.Contains(line, "</tr>") {
			break
		}
		if line == "<td>" || strings.Contains(line, "</table>") {
			continue
		}
		var token string
		switch {
		case groupedDecimalRE.MatchString(line):
			token = strings.ReplaceAll(line, ",", "")
		case plainDecimalRE.MatchString(line) && strings.Contains(line, "."):
			token = line
		default:
			continue
		}
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			// A malformed value such as "1.2.3" still occupies a slot and
			// invalidates the row.
			return nil
		}
		values = append(values, v)
	}
	return values
}

// GB converts megabytes to gigabytes.
func GB(mb float64) float64 {
	return mb / 1024
}

// UsageLabel classifies an overall usage percentage for display.
func UsageLabel(percent float64) string {
	switch {
	case percent > 80:
		return "high"
	case percent > 60:
		return "monitor"
	default:
		return "good"
	}
}
