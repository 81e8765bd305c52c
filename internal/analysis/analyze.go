// Package analysis turns the raw outputs of the DataGuard check scripts into
// a structured, severity-classified Report. Analyze is pure: it performs no
// I/O and never fails; missing or malformed inputs degrade to indeterminate
// results and explicit findings.
package analysis

import (
	"errors"
	"strings"

	"github.com/luckyjian/dgwatch/internal/alert"
	"github.com/luckyjian/dgwatch/internal/htmlreport"
	"github.com/luckyjian/dgwatch/internal/metric"
	"github.com/luckyjian/dgwatch/internal/scan"
	"github.com/luckyjian/dgwatch/internal/tablespace"
)

const reportUnavailable = "report file unavailable"

// Analyze builds a Report from in.
func Analyze(in Input, opts Options) *Report {
	r := &Report{
		ReportPath:        in.ReportPath,
		ReportAvailable:   in.HTML != nil,
		ErrorCheckEnabled: opts.ErrorCheckEnabled,
		Sections:          make(map[string]SectionResult),
		Host:              in.Host,
	}

	if opts.ErrorCheckEnabled {
		// The HTML report is left to the anomaly extractor.
		for _, o := range in.Observations() {
			switch o.Source {
			case SourceStandbyCheck:
				r.StandbyMatches = scan.Scan(o.Content, opts.ErrorPatterns)
			case SourceDailyReport:
				r.DailyMatches = scan.Scan(o.Content, opts.ErrorPatterns)
			}
		}
	}
	r.Performance = assessPerformance(in.StandbyOutput, in.DailyOutput)
	r.Risk = assessRisk(in.StandbyOutput, in.DailyOutput)

	if in.HTML != nil {
		extractReport(r, *in.HTML)
	} else {
		markUnavailable(r, in.ReportErr)
	}
	r.RootCause = rootCause(r)

	rules, fallbacks := opts.Rules, opts.Fallbacks
	if rules == nil {
		rules = alert.DefaultRules()
	}
	if fallbacks == nil {
		fallbacks = alert.DefaultFallbacks()
	}
	facts := r.Facts()
	r.Assessment = alert.Evaluate(&facts, rules, fallbacks)
	return r
}

// Facts projects the report onto the inputs of the alert rules.
func (r *Report) Facts() alert.Facts {
	return alert.Facts{
		ReportAvailable:  r.ReportAvailable,
		ReportPath:       r.ReportPath,
		Standby:          r.Standby,
		Production:       r.Production,
		StandbyUptime:    r.StandbyUptime,
		ProductionUptime: r.ProductionUptime,
		Backup:           r.Backup,
		BackupStaleness:  r.BackupStaleness,
		Tablespace:       r.Tablespace,
		Anomalies:        r.Anomalies,
	}
}

func extractReport(r *Report, doc string) {
	r.Standby = parseRole(r, doc, htmlreport.RoleStandby, SectionStandby)
	r.Production = parseRole(r, doc, htmlreport.RoleProduction, SectionProduction)
	r.StandbyUptime = uptime(r.Standby, r.Sections[SectionStandby])
	r.ProductionUptime = uptime(r.Production, r.Sections[SectionProduction])

	r.Versions = htmlreport.ParseVersions(doc)

	backup, err := htmlreport.ParseBackup(doc)
	switch {
	case err == nil:
		r.Backup = backup
		r.Sections[SectionBackup] = SectionResult{Available: true}
		r.BackupStaleness = metric.BackupStaleness(&backup.EndTime, reportSystemDate(r))
	default:
		r.NoBackupInfo = errors.Is(err, htmlreport.ErrNoBackupInfo)
		r.Sections[SectionBackup] = SectionResult{Error: err.Error()}
		r.BackupStaleness = metric.Hours{Reason: err.Error()}
	}

	if tablespace.Present(doc) {
		summary := tablespace.Aggregate(doc)
		r.Tablespace = &summary
		r.Sections[SectionTablespace] = SectionResult{Available: true}
	} else {
		r.Sections[SectionTablespace] = SectionResult{Error: tablespace.Marker + " " + htmlreport.ErrSectionNotFound.Error()}
	}

	status := htmlreport.ParseDataGuardStatus(doc)
	r.DataGuard = &status
	r.Anomalies = scan.Scan(doc, alert.AnomalyTokens)
	r.Issues = reportIssues(doc)
}

func parseRole(r *Report, doc string, role htmlreport.Role, section string) *htmlreport.DatabaseRecord {
	rec, err := htmlreport.ParseDatabase(doc, role)
	if err != nil {
		r.Sections[section] = SectionResult{Error: err.Error()}
		return nil
	}
	r.Sections[section] = SectionResult{Available: true}
	return rec
}

func uptime(rec *htmlreport.DatabaseRecord, res SectionResult) metric.Days {
	if rec == nil {
		return metric.Days{Reason: res.Error}
	}
	return metric.Uptime(rec.StartTime, rec.SystemDate)
}

// reportSystemDate is the report's notion of "now": the production system
// date when present, otherwise the standby's.
func reportSystemDate(r *Report) *string {
	if r.Production != nil && r.Production.SystemDate != nil {
		return r.Production.SystemDate
	}
	if r.Standby != nil {
		return r.Standby.SystemDate
	}
	return nil
}

func markUnavailable(r *Report, reason string) {
	if reason == "" {
		reason = reportUnavailable
	}
	for _, s := range []string{SectionStandby, SectionProduction, SectionBackup, SectionTablespace} {
		r.Sections[s] = SectionResult{Error: reason}
	}
	r.StandbyUptime = metric.Days{Reason: reason}
	r.ProductionUptime = metric.Days{Reason: reason}
	r.BackupStaleness = metric.Hours{Reason: reason}
}

// reportIssues checks the case-sensitive markers the report uses for its
// own anomaly flags.
func reportIssues(doc string) []ReportIssue {
	var issues []ReportIssue
	if strings.Contains(doc, htmlreport.ArchiveGapAbnormal) {
		issues = append(issues, IssueArchiveGap)
	}
	if strings.Contains(doc, htmlreport.UnappliedAbnormal) {
		issues = append(issues, IssueUnappliedLogs)
	}
	if strings.Contains(doc, "DANGER") {
		issues = append(issues, IssueDanger)
	}
	if strings.Contains(doc, "ERROR") {
		issues = append(issues, IssueError)
	}
	if strings.Contains(doc, "Exception") {
		issues = append(issues, IssueException)
	}
	return issues
}

func rootCause(r *Report) RootCause {
	var b strings.Builder
	for _, m := range r.StandbyMatches {
		b.WriteString(m.Context())
		b.WriteByte('\n')
	}
	hits := b.String()
	switch {
	case strings.Contains(hits, "sqlplus") && strings.Contains(hits, "not recognized"):
		return RootCauseClientSetup
	case strings.Contains(hits, "ora-"):
		return RootCauseConnection
	case r.DataGuard != nil && r.DataGuard.ArchiveGap.State == htmlreport.CheckAbnormal:
		return RootCauseArchiveSync
	}
	return RootCauseNone
}
