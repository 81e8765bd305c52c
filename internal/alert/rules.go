// Package alert evaluates the DataGuard alert rules and reduces their
// findings to one overall severity.
package alert

import (
	"fmt"
	"strings"

	"github.com/luckyjian/dgwatch/internal/htmlreport"
	"github.com/luckyjian/dgwatch/internal/metric"
	"github.com/luckyjian/dgwatch/internal/scan"
	"github.com/luckyjian/dgwatch/internal/tablespace"
)

// Finding is the result of a single rule evaluation.
type Finding struct {
	Rule     string   `json:"rule"     yaml:"rule"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message"  yaml:"message"`
}

// Facts is everything the rules may look at. It is assembled once per run
// from the extracted report data.
type Facts struct {
	ReportAvailable bool
	ReportPath      string

	Standby          *htmlreport.DatabaseRecord
	Production       *htmlreport.DatabaseRecord
	StandbyUptime    metric.Days
	ProductionUptime metric.Days

	Backup          *htmlreport.BackupRecord
	BackupStaleness metric.Hours

	// Tablespace is nil when the report carries no tablespace table.
	Tablespace *tablespace.Summary

	// Anomalies are the hits of the generic anomaly tokens in the report.
	Anomalies []scan.ErrorMatch
}

// Rule is a single, independent alert evaluator. It returns at most one
// finding.
type Rule interface {
	Name() string
	Evaluate(f *Facts) (Finding, bool)
}

// AnomalyTokens are the generic report tokens that raise a Warning when no
// other rule fired.
var AnomalyTokens = []string{
	"danger",
	"error",
	"exception",
	htmlreport.ArchiveGapAbnormal,
	htmlreport.UnappliedAbnormal,
}

// ReportAvailabilityRule fires when the HTML report could not be read.
type ReportAvailabilityRule struct{}

func (ReportAvailabilityRule) Name() string { return "report_availability" }

func (r ReportAvailabilityRule) Evaluate(f *Facts) (Finding, bool) {
	if f.ReportAvailable {
		return Finding{}, false
	}
	return Finding{
		Rule:     r.Name(),
		Severity: Warning,
		Message:  fmt.Sprintf("HTML报告文件不可用: %s，无法确定数据库、表空间和备份状态", f.ReportPath),
	}, true
}

// RuntimeAgeRule flags databases that have not been restarted for a long
// time. Standby is checked before Production; the first Critical candidate
// wins, otherwise the first Warning. Only one finding is reported.
type RuntimeAgeRule struct {
	WarningDays  int
	CriticalDays int
}

func (RuntimeAgeRule) Name() string { return "runtime_age" }

func (r RuntimeAgeRule) Evaluate(f *Facts) (Finding, bool) {
	if !f.ReportAvailable {
		return Finding{}, false
	}
	roles := []struct {
		role htmlreport.Role
		days metric.Days
	}{
		{htmlreport.RoleStandby, f.StandbyUptime},
		{htmlreport.RoleProduction, f.ProductionUptime},
	}

	var critical, warning, unknown []Finding
	for _, c := range roles {
		switch {
		case !c.days.Known:
			unknown = append(unknown, Finding{
				Rule:     r.Name(),
				Severity: Warning,
				Message:  fmt.Sprintf("无法确定%s数据库运行时间 (%s)", c.role.Title(), c.days.Reason),
			})
		case c.days.Value >= r.CriticalDays:
			critical = append(critical, Finding{
				Rule:     r.Name(),
				Severity: Critical,
				Message: fmt.Sprintf("%s数据库运行时间: %d天 (数据库启用已超过2个月，建议重启服务器以释放资源)",
					c.role.Title(), c.days.Value),
			})
		case c.days.Value >= r.WarningDays:
			warning = append(warning, Finding{
				Rule:     r.Name(),
				Severity: Warning,
				Message: fmt.Sprintf("%s数据库运行时间: %d天 (%d-%d天，需要关注)",
					c.role.Title(), c.days.Value, r.WarningDays, r.CriticalDays-1),
			})
		}
	}
	for _, group := range [][]Finding{critical, warning, unknown} {
		if len(group) > 0 {
			return group[0], true
		}
	}
	return Finding{}, false
}

// StatusMismatchRule checks that the standby is MOUNTED and production is
// OPEN. Only the first mismatch (Standby first) is reported.
type StatusMismatchRule struct{}

func (StatusMismatchRule) Name() string { return "status_mismatch" }

var expectedStatus = []struct {
	role   htmlreport.Role
	status string
}{
	{htmlreport.RoleStandby, "MOUNTED"},
	{htmlreport.RoleProduction, "OPEN"},
}

func (r StatusMismatchRule) Evaluate(f *Facts) (Finding, bool) {
	if !f.ReportAvailable {
		return Finding{}, false
	}
	var missing []string
	for _, e := range expectedStatus {
		rec := f.Standby
		if e.role == htmlreport.RoleProduction {
			rec = f.Production
		}
		if rec == nil || strings.TrimSpace(rec.Status) == "" {
			missing = append(missing, e.role.Title())
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(rec.Status), e.status) {
			return Finding{
				Rule:     r.Name(),
				Severity: Critical,
				Message: fmt.Sprintf("%s数据库STATUS异常: %s (STATUS应为%s状态)",
					e.role.Title(), rec.Status, e.status),
			}, true
		}
	}
	if len(missing) > 0 {
		return Finding{
			Rule:     r.Name(),
			Severity: Warning,
			Message:  fmt.Sprintf("无法确定%s数据库STATUS", strings.Join(missing, "/")),
		}, true
	}
	return Finding{}, false
}

// BackupStalenessRule fires Critical when the last RMAN backup ended too
// long before the report's system date. There is no Warning tier.
type BackupStalenessRule struct {
	MaxHours float64
}

func (BackupStalenessRule) Name() string { return "backup_staleness" }

func (r BackupStalenessRule) Evaluate(f *Facts) (Finding, bool) {
	if !f.ReportAvailable {
		return Finding{}, false
	}
	if !f.BackupStaleness.Known {
		return Finding{
			Rule:     r.Name(),
			Severity: Warning,
			Message:  fmt.Sprintf("无法确定RMAN备份时间 (%s)", f.BackupStaleness.Reason),
		}, true
	}
	if f.BackupStaleness.Value > r.MaxHours {
		return Finding{
			Rule:     r.Name(),
			Severity: Critical,
			Message: fmt.Sprintf("RMAN备份故障，请立即检查 (距上次备份结束 %.1f 小时，超过%.0f小时)",
				f.BackupStaleness.Value, r.MaxHours),
		}, true
	}
	return Finding{}, false
}

// CapacityRule classifies the overall tablespace usage. Both thresholds are
// strict, so exactly WarningPercent or CriticalPercent falls into the lower
// tier.
type CapacityRule struct {
	WarningPercent  float64
	CriticalPercent float64
}

func (CapacityRule) Name() string { return "capacity" }

func (r CapacityRule) Evaluate(f *Facts) (Finding, bool) {
	if !f.ReportAvailable {
		return Finding{}, false
	}
	if f.Tablespace == nil || f.Tablespace.OverallUsagePercent == nil {
		return Finding{
			Rule:     r.Name(),
			Severity: Warning,
			Message:  "无法确定表空间整体使用率",
		}, true
	}
	usage := *f.Tablespace.OverallUsagePercent
	switch {
	case usage > r.CriticalPercent:
		return Finding{
			Rule:     r.Name(),
			Severity: Critical,
			Message:  fmt.Sprintf("容量使用率: %.2f%% (超过%.0f%%)", usage, r.CriticalPercent),
		}, true
	case usage > r.WarningPercent:
		return Finding{
			Rule:     r.Name(),
			Severity: Warning,
			Message:  fmt.Sprintf("容量使用率: %.2f%% (超过%.0f%%)", usage, r.WarningPercent),
		}, true
	}
	return Finding{}, false
}

// AnomalyRule raises a Warning for generic anomaly tokens in the report. It
// is meant to run as a fallback so it never adds to a higher alert.
type AnomalyRule struct{}

func (AnomalyRule) Name() string { return "report_anomaly" }

func (r AnomalyRule) Evaluate(f *Facts) (Finding, bool) {
	if !f.ReportAvailable || len(f.Anomalies) == 0 {
		return Finding{}, false
	}
	seen := make(map[string]bool)
	var tokens []string
	for _, m := range f.Anomalies {
		if !seen[m.Pattern] {
			seen[m.Pattern] = true
			tokens = append(tokens, m.Pattern)
		}
	}
	return Finding{
		Rule:     r.Name(),
		Severity: Warning,
		Message:  fmt.Sprintf("HTML报告中发现异常信息 (%d 处: %s)", len(f.Anomalies), strings.Join(tokens, ", ")),
	}, true
}

// DefaultRules returns the primary rule set with the standard thresholds.
func DefaultRules() []Rule {
	return []Rule{
		ReportAvailabilityRule{},
		RuntimeAgeRule{WarningDays: 32, CriticalDays: 63},
		StatusMismatchRule{},
		BackupStalenessRule{MaxHours: 48},
		CapacityRule{WarningPercent: 70, CriticalPercent: 80},
	}
}

// DefaultFallbacks returns the rules that only apply when no primary rule
// fired.
func DefaultFallbacks() []Rule {
	return []Rule{AnomalyRule{}}
}
