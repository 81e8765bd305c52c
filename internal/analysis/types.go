package analysis

import (
	"github.com/luckyjian/dgwatch/internal/alert"
	"github.com/luckyjian/dgwatch/internal/hostcheck"
	"github.com/luckyjian/dgwatch/internal/htmlreport"
	"github.com/luckyjian/dgwatch/internal/metric"
	"github.com/luckyjian/dgwatch/internal/scan"
	"github.com/luckyjian/dgwatch/internal/tablespace"
)

// Source identifies where a raw observation came from.
type Source string

const (
	SourceStandbyCheck Source = "standby_check"
	SourceDailyReport  Source = "daily_report"
	SourceHTMLReport   Source = "html_report"
)

// Observation is one raw text input of a run.
type Observation struct {
	Source  Source
	Content string
}

// Input is everything a single analysis run consumes. HTML is nil when the
// report file could not be read.
type Input struct {
	StandbyOutput string
	DailyOutput   string
	HTML          *string
	ReportPath    string
	// ReportErr explains why HTML is nil, if known.
	ReportErr string
	// Host is the optional probe of the monitoring host.
	Host *hostcheck.Usage
}

// Observations returns the raw inputs in processing order. The HTML report
// is omitted when unavailable.
func (in Input) Observations() []Observation {
	obs := []Observation{
		{Source: SourceStandbyCheck, Content: in.StandbyOutput},
		{Source: SourceDailyReport, Content: in.DailyOutput},
	}
	if in.HTML != nil {
		obs = append(obs, Observation{Source: SourceHTMLReport, Content: *in.HTML})
	}
	return obs
}

// Options are the per-run analysis settings.
type Options struct {
	ErrorCheckEnabled bool
	ErrorPatterns     []string
	// Rules and Fallbacks default to alert.DefaultRules and
	// alert.DefaultFallbacks when nil.
	Rules     []alert.Rule
	Fallbacks []alert.Rule
}

// DefaultOptions enables the error check with the default pattern list.
func DefaultOptions() Options {
	return Options{
		ErrorCheckEnabled: true,
		ErrorPatterns:     scan.ParsePatterns(scan.DefaultPatterns),
	}
}

// SectionResult records whether a report section could be extracted.
// Unavailable sections carry the reason but never abort the analysis.
type SectionResult struct {
	Available bool   `json:"available"       yaml:"available"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Section names used in Report.Sections.
const (
	SectionStandby    = "standby_database"
	SectionProduction = "production_database"
	SectionBackup     = "backup"
	SectionTablespace = "tablespace"
)

// ReportIssue is a keyword-level anomaly found in the HTML report.
type ReportIssue string

const (
	IssueArchiveGap    ReportIssue = "archive_gap"
	IssueUnappliedLogs ReportIssue = "unapplied_logs"
	IssueDanger        ReportIssue = "danger"
	IssueError         ReportIssue = "error"
	IssueException     ReportIssue = "exception"
)

// MRPState is the observed state of the managed recovery process.
type MRPState string

const (
	MRPWaitingForLog MRPState = "wait_for_log"
	MRPApplyingLog   MRPState = "applying_log"
	MRPAttention     MRPState = "attention"
	MRPAbsent        MRPState = "absent"
)

// Performance holds the keyword-presence checks on replication activity.
type Performance struct {
	SyncMonitored bool     `json:"sync_monitored" yaml:"sync_monitored"`
	MRP           MRPState `json:"mrp"            yaml:"mrp"`
	RFSRunning    bool     `json:"rfs_running"    yaml:"rfs_running"`
}

// Healthy reports whether at least one replication process looks normal.
func (p Performance) Healthy() bool {
	return p.MRP == MRPWaitingForLog || p.RFSRunning
}

// ConnectionRisk classifies the connection signals in the standby output.
type ConnectionRisk string

const (
	ConnectionOK          ConnectionRisk = "ok"
	ConnectionOracleError ConnectionRisk = "oracle_error"
	ConnectionClientSetup ConnectionRisk = "client_setup"
)

// RoleCheck is the outcome of the database role keyword check.
type RoleCheck string

const (
	RoleStandbyConfirmed RoleCheck = "standby"
	RoleUnexpected       RoleCheck = "unexpected"
	RoleUnknown          RoleCheck = "unknown"
)

// Risk holds the keyword-presence risk checks.
type Risk struct {
	Connection              ConnectionRisk `json:"connection"                yaml:"connection"`
	ProcessCount            int            `json:"process_count"             yaml:"process_count"`
	ProtectionModeAvailable bool           `json:"protection_mode_available" yaml:"protection_mode_available"`
	Role                    RoleCheck      `json:"role"                      yaml:"role"`
}

// HasRisk reports whether any check points at a connection or process
// problem.
func (r Risk) HasRisk() bool {
	return r.Connection != ConnectionOK || r.ProcessCount == 0
}

// RootCause is the most likely underlying problem behind pattern hits.
type RootCause string

const (
	RootCauseNone        RootCause = ""
	RootCauseClientSetup RootCause = "client_setup"
	RootCauseConnection  RootCause = "connection"
	RootCauseArchiveSync RootCause = "archive_sync"
)

// Report is the complete outcome of one analysis run.
type Report struct {
	ReportPath        string `json:"report_path"         yaml:"report_path"`
	ReportAvailable   bool   `json:"report_available"    yaml:"report_available"`
	ErrorCheckEnabled bool   `json:"error_check_enabled" yaml:"error_check_enabled"`

	StandbyMatches []scan.ErrorMatch `json:"standby_matches" yaml:"standby_matches"`
	DailyMatches   []scan.ErrorMatch `json:"daily_matches"   yaml:"daily_matches"`

	Sections map[string]SectionResult `json:"sections" yaml:"sections"`

	Standby          *htmlreport.DatabaseRecord `json:"standby,omitempty"    yaml:"standby,omitempty"`
	Production       *htmlreport.DatabaseRecord `json:"production,omitempty" yaml:"production,omitempty"`
	StandbyUptime    metric.Days                `json:"standby_uptime"       yaml:"standby_uptime"`
	ProductionUptime metric.Days                `json:"production_uptime"    yaml:"production_uptime"`

	Versions        htmlreport.VersionInfo   `json:"versions"            yaml:"versions"`
	Backup          *htmlreport.BackupRecord `json:"backup,omitempty"    yaml:"backup,omitempty"`
	NoBackupInfo    bool                     `json:"no_backup_info"      yaml:"no_backup_info"`
	BackupStaleness metric.Hours             `json:"backup_staleness"    yaml:"backup_staleness"`
	Tablespace      *tablespace.Summary      `json:"tablespace,omitempty" yaml:"tablespace,omitempty"`

	DataGuard *htmlreport.DataGuardStatus `json:"dataguard,omitempty" yaml:"dataguard,omitempty"`
	Anomalies []scan.ErrorMatch           `json:"anomalies"           yaml:"anomalies"`
	Issues    []ReportIssue               `json:"issues"              yaml:"issues"`

	Performance Performance      `json:"performance"    yaml:"performance"`
	Risk        Risk             `json:"risk"           yaml:"risk"`
	RootCause   RootCause        `json:"root_cause"     yaml:"root_cause"`
	Host        *hostcheck.Usage `json:"host,omitempty" yaml:"host,omitempty"`

	Assessment alert.Assessment `json:"assessment" yaml:"assessment"`
}

// Overall returns the overall severity of the run.
func (r *Report) Overall() alert.Severity {
	return r.Assessment.Overall
}

// PatternErrorCount is the number of pattern hits across both script outputs.
func (r *Report) PatternErrorCount() int {
	return len(r.StandbyMatches) + len(r.DailyMatches)
}

// TotalIssues counts alert findings plus raw pattern hits.
func (r *Report) TotalIssues() int {
	return len(r.Assessment.Findings) + r.PatternErrorCount()
}
