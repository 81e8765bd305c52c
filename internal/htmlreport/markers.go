package htmlreport

import (
	"regexp"
	"strconv"
	"strings"
)

// CheckState is the outcome of one of the report's DataGuard self-checks.
type CheckState string

const (
	CheckNormal   CheckState = "normal"
	CheckAbnormal CheckState = "abnormal"
	CheckUnknown  CheckState = "unknown"
)

// Markers written by the daily report script for its own checks.
const (
	ArchiveGapAbnormal = "归档日志间隙检查: 异常"
	ArchiveGapNormal   = "归档日志间隙检查: 正常"
	UnappliedAbnormal  = "未应用日志检查: 异常"
	UnappliedNormal    = "未应用日志检查: 正常"
)

// ArchiveGap describes the archive log gap check.
type ArchiveGap struct {
	State   CheckState `json:"state"              yaml:"state"`
	Count   *int       `json:"count,omitempty"    yaml:"count,omitempty"`
	LowSeq  *int       `json:"low_seq,omitempty"  yaml:"low_seq,omitempty"`
	HighSeq *int       `json:"high_seq,omitempty" yaml:"high_seq,omitempty"`
}

// UnappliedLogs describes the unapplied redo log check.
type UnappliedLogs struct {
	State CheckState `json:"state"           yaml:"state"`
	Count *int       `json:"count,omitempty" yaml:"count,omitempty"`
}

// DataGuardStatus collects the keyword-level DataGuard checks of the report.
type DataGuardStatus struct {
	PrimaryPresent         bool          `json:"primary_present"          yaml:"primary_present"`
	PhysicalStandbyPresent bool          `json:"physical_standby_present" yaml:"physical_standby_present"`
	ArchiveGap             ArchiveGap    `json:"archive_gap"              yaml:"archive_gap"`
	Unapplied              UnappliedLogs `json:"unapplied"                yaml:"unapplied"`
	// TablespaceMarker is "danger", "warning" or "normal" depending on the
	// uppercase markers the report uses to highlight tablespaces.
	TablespaceMarker string `json:"tablespace_marker" yaml:"tablespace_marker"`
}

// RolesPresent reports whether both database roles appear in the report.
func (s DataGuardStatus) RolesPresent() bool {
	return s.PrimaryPresent && s.PhysicalStandbyPresent
}

var (
	gapCountRE       = regexp.MustCompile(`间隙数量: (\d+) 个日志文件`)
	gapRangeRE       = regexp.MustCompile(`间隙范围: 序列号 (\d+) 到 (\d+)`)
	unappliedCountRE = regexp.MustCompile(`未应用日志数量: (\d+) 个日志文件`)
	gapsZeroRE       = regexp.MustCompile(`"GAPS"[^0-9]*0`)
	notAppliedZeroRE = regexp.MustCompile(`"NOT APPLIED"[^0-9]*0`)
)

// ParseDataGuardStatus scans doc for the report's self-check markers.
func ParseDataGuardStatus(doc string) DataGuardStatus {
	s := DataGuardStatus{
		PrimaryPresent:         strings.Contains(doc, "PRIMARY"),
		PhysicalStandbyPresent: strings.Contains(doc, "PHYSICAL STANDBY"),
		ArchiveGap:             ArchiveGap{State: CheckUnknown},
		Unapplied:              UnappliedLogs{State: CheckUnknown},
		TablespaceMarker:       "normal",
	}

	switch {
	case strings.Contains(doc, ArchiveGapAbnormal):
		s.ArchiveGap.State = CheckAbnormal
		if m := gapCountRE.FindStringSubmatch(doc); m != nil {
			s.ArchiveGap.Count = atoi(m[1])
		}
		if m := gapRangeRE.FindStringSubmatch(doc); m != nil {
			s.ArchiveGap.LowSeq = atoi(m[1])
			s.ArchiveGap.HighSeq = atoi(m[2])
		}
	case strings.Contains(doc, ArchiveGapNormal),
		strings.Contains(doc, "GAPS") && gapsZeroRE.MatchString(doc):
		s.ArchiveGap.State = CheckNormal
	case strings.Contains(doc, "GAPS"):
		s.ArchiveGap.State = CheckAbnormal
	}

	switch {
	case strings.Contains(doc, UnappliedAbnormal):
		s.Unapplied.State = CheckAbnormal
		if m := unappliedCountRE.FindStringSubmatch(doc); m != nil {
			s.Unapplied.Count = atoi(m[1])
		}
	case strings.Contains(doc, UnappliedNormal),
		strings.Contains(doc, "NOT APPLIED") && notAppliedZeroRE.MatchString(doc):
		s.Unapplied.State = CheckNormal
	case strings.Contains(doc, "NOT APPLIED"):
		s.Unapplied.State = CheckAbnormal
	}

	switch {
	case strings.Contains(doc, "DANGER"):
		s.TablespaceMarker = "danger"
	case strings.Contains(doc, "WARNING"):
		s.TablespaceMarker = "warning"
	}
	return s
}

func atoi(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
