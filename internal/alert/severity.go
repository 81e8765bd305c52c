package alert

import "fmt"

// Severity orders findings by escalation.
type Severity int

const (
	Normal Severity = iota
	Warning
	Critical
)

func (s Severity) String() string {
	switch s {
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Tag is the short label used in mail subjects and the alert section.
func (s Severity) Tag() string {
	switch s {
	case Critical:
		return "🔴 紧急"
	case Warning:
		return "🟡 重要"
	default:
		return "✅ 正常"
	}
}

// Headline is the one-line description of the overall alert level.
func (s Severity) Headline() string {
	switch s {
	case Critical:
		return "发现严重问题，需要立即处理"
	case Warning:
		return "发现重要问题，建议尽快处理"
	default:
		return "系统运行正常"
	}
}

// BadgeClass is the CSS class of the alert badge in the mail body.
func (s Severity) BadgeClass() string {
	return "alert-" + s.String()
}

// MarshalText implements encoding.TextMarshaler so severities serialize by
// name in JSON and YAML.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a severity name back to its value.
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "normal":
		return Normal, nil
	case "warning":
		return Warning, nil
	case "critical":
		return Critical, nil
	default:
		return Normal, fmt.Errorf("unknown severity %q", name)
	}
}

// Max returns the higher of two severities.
func Max(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}
