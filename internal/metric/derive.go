// Package metric derives uptime and backup staleness from report timestamps.
package metric

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// TimestampLayout is the DD-MMM-YYYY HH:MM layout used by the report.
const TimestampLayout = "02-Jan-2006 15:04"

// unpaddedLayout accepts a day without its leading zero.
const unpaddedLayout = "2-Jan-2006 15:04"

var (
	// ErrUnparseable marks a timestamp that does not follow TimestampLayout.
	ErrUnparseable = errors.New("unparseable timestamp")
	// ErrMissing marks an absent operand.
	ErrMissing = errors.New("missing value")
)

// ParseTimestamp parses s in TimestampLayout. Month abbreviations are
// accepted in any case ("JUL", "Jul", "jul") and the day may omit its
// leading zero.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissing
	}
	for _, layout := range []string{TimestampLayout, unpaddedLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
}

// Days is an uptime in whole days, or the reason it could not be derived.
type Days struct {
	Value  int    `json:"value"            yaml:"value"`
	Known  bool   `json:"known"            yaml:"known"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Hours is a duration in fractional hours, or the reason it could not be
// derived.
type Hours struct {
	Value  float64 `json:"value"            yaml:"value"`
	Known  bool    `json:"known"            yaml:"known"`
	Reason string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Uptime returns the whole days between start and system date. A nil or
// unparseable operand yields an unknown result.
func Uptime(start, systemDate *string) Days {
	from, to, err := parsePair(start, systemDate)
	if err != nil {
		return Days{Reason: err.Error()}
	}
	days := int(math.Floor(to.Sub(from).Hours() / 24))
	return Days{Value: days, Known: true}
}

// BackupStaleness returns the hours between the backup end time and the
// report's system date.
func BackupStaleness(endTime, systemDate *string) Hours {
	from, to, err := parsePair(endTime, systemDate)
	if err != nil {
		return Hours{Reason: err.Error()}
	}
	return Hours{Value: to.Sub(from).Hours(), Known: true}
}

func parsePair(a, b *string) (time.Time, time.Time, error) {
	if a == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", ErrMissing)
	}
	if b == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("system date: %w", ErrMissing)
	}
	from, err := ParseTimestamp(*a)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	to, err := ParseTimestamp(*b)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("system date: %w", err)
	}
	return from, to, nil
}
