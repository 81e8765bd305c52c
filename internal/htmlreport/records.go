package htmlreport

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoBackupInfo is returned when the backup section explicitly reports
// that no backup information was found.
var ErrNoBackupInfo = errors.New("no backup information found")

// Role names one of the two DataGuard databases.
type Role string

const (
	RoleStandby    Role = "standby"
	RoleProduction Role = "production"
)

// Title returns the role as it appears in the report headings.
func (r Role) Title() string {
	switch r {
	case RoleStandby:
		return "Standby"
	case RoleProduction:
		return "Production"
	default:
		return string(r)
	}
}

// DatabaseRecord is the first data row of a role's General Database
// Information table. Optional fields are nil when the cell is empty or the
// shape has no such column.
type DatabaseRecord struct {
	Role           Role    `json:"role"                      yaml:"role"`
	InstID         string  `json:"inst_id"                   yaml:"inst_id"`
	DBName         string  `json:"db_name"                   yaml:"db_name"`
	InstanceName   string  `json:"instance_name"             yaml:"instance_name"`
	Status         string  `json:"status"                    yaml:"status"`
	HostName       string  `json:"host_name"                 yaml:"host_name"`
	DatabaseRole   string  `json:"database_role"             yaml:"database_role"`
	ProtectionMode *string `json:"protection_mode,omitempty" yaml:"protection_mode,omitempty"`
	StartTime      *string `json:"start_time,omitempty"      yaml:"start_time,omitempty"`
	SystemDate     *string `json:"system_date,omitempty"     yaml:"system_date,omitempty"`
}

// recordShape is the fixed column contract with the report generator.
type recordShape struct {
	heading    Heading
	columns    int
	protection int // -1 when the shape has no protection mode column
	start      int
	system     int
}

var shapes = map[Role]recordShape{
	// INST_ID, DATABASE NAME, INSTANCE NAME, STATUS, HOST NAME, DATABASE ROLE,
	// PROTECTION MODE, START TIME, SYSTEM DATE
	RoleStandby: {heading: StandbyHeading, columns: 9, protection: 6, start: 7, system: 8},
	// INST_ID, DATABASE NAME, INSTANCE, STATUS, HOST NAME, DATABASE ROLE,
	// START TIME, SYSTEM DATE
	RoleProduction: {heading: ProductionHeading, columns: 8, protection: -1, start: 6, system: 7},
}

// ParseDatabase extracts the record for role from doc. Rows with fewer
// columns than the role's shape are skipped; only the first qualifying row
// is used.
func ParseDatabase(doc string, role Role) (*DatabaseRecord, error) {
	shape, ok := shapes[role]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	section, err := ExtractNestedSection(doc, shape.heading, GeneralInfoHeading)
	if err != nil {
		return nil, err
	}
	for _, cells := range ExtractTableRows(section) {
		if len(cells) < shape.columns {
			continue
		}
		rec := &DatabaseRecord{
			Role:         role,
			InstID:       cells[0],
			DBName:       cells[1],
			InstanceName: cells[2],
			Status:       cells[3],
			HostName:     cells[4],
			DatabaseRole: cells[5],
			StartTime:    optional(cells[shape.start]),
			SystemDate:   optional(cells[shape.system]),
		}
		if shape.protection >= 0 {
			rec.ProtectionMode = optional(cells[shape.protection])
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%s general database information: %w", role.Title(), ErrNoQualifyingRow)
}

// BackupRecord is the last row of the "List of last 3 days backups" table.
type BackupRecord struct {
	SessionID      string `json:"session_recid"   yaml:"session_recid"`
	StartTime      string `json:"start_time"      yaml:"start_time"`
	EndTime        string `json:"end_time"        yaml:"end_time"`
	OutputMB       string `json:"output_mbytes"   yaml:"output_mbytes"`
	Status         string `json:"status"          yaml:"status"`
	InputType      string `json:"input_type"      yaml:"input_type"`
	Day            string `json:"day"             yaml:"day"`
	TimeTaken      string `json:"time_taken"      yaml:"time_taken"`
	OutputInstance string `json:"output_instance" yaml:"output_instance"`
}

const backupColumns = 9

// ParseBackup returns the last data row of the backup table. The section also
// ends at "spool off", which the report script leaves behind.
func ParseBackup(doc string) (*BackupRecord, error) {
	section, err := ExtractSection(doc, BackupHeading, "spool off")
	if err != nil {
		return nil, err
	}
	rows := ExtractTableRows(section)
	if len(rows) == 0 {
		if strings.Contains(section, "No backup information found") {
			return nil, ErrNoBackupInfo
		}
		return nil, fmt.Errorf("backup list: %w", ErrNoQualifyingRow)
	}
	last := rows[len(rows)-1]
	if len(last) < backupColumns {
		return nil, fmt.Errorf("backup list: last row has %d cells: %w", len(last), ErrNoQualifyingRow)
	}
	return &BackupRecord{
		SessionID:      last[0],
		StartTime:      last[1],
		EndTime:        last[2],
		OutputMB:       last[3],
		Status:         last[4],
		InputType:      last[5],
		Day:            last[6],
		TimeTaken:      last[7],
		OutputInstance: last[8],
	}, nil
}

// VersionInfo holds the optional version blocks of the report.
type VersionInfo struct {
	Opera    *string `json:"opera,omitempty"    yaml:"opera,omitempty"`
	Oracle   *string `json:"oracle,omitempty"   yaml:"oracle,omitempty"`
	Platform *string `json:"platform,omitempty" yaml:"platform,omitempty"`
}

var (
	firstCellRE = regexp.MustCompile(`(?is)<td[^>]*>(.*?)</td>`)
	versionRE   = regexp.MustCompile(`(?is)<th[^>]*>\s*VERSION\s*</th>.*?<td[^>]*>(.*?)</td>`)
	platformRE  = regexp.MustCompile(`(?is)<th[^>]*>\s*PLATFORM_NAME\s*</th>.*?<td[^>]*>(.*?)</td>`)
)

// ParseVersions reads the Opera and Oracle version blocks. Missing blocks
// leave the corresponding fields nil.
func ParseVersions(doc string) VersionInfo {
	var v VersionInfo
	if section, err := ExtractSection(doc, OperaVersionHeading); err == nil {
		if m := firstCellRE.FindStringSubmatch(section); m != nil {
			v.Opera = optional(CellText(m[1]))
		}
	}
	if section, err := ExtractSection(doc, OracleVersionHeading); err == nil {
		if m := versionRE.FindStringSubmatch(section); m != nil {
			v.Oracle = optional(CellText(m[1]))
		}
		if m := platformRE.FindStringSubmatch(section); m != nil {
			v.Platform = optional(CellText(m[1]))
		}
	}
	return v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
