package analysis

import (
	"strings"

	"github.com/luckyjian/dgwatch/internal/scan"
)

func assessPerformance(standby, daily string) Performance {
	s := strings.ToLower(standby)
	d := strings.ToLower(daily)

	p := Performance{
		SyncMonitored: strings.Contains(d, "last applied") && strings.Contains(d, "last received"),
		RFSRunning:    strings.Contains(s, "rfs"),
		MRP:           MRPAbsent,
	}
	if strings.Contains(s, "mrp") {
		switch {
		case strings.Contains(s, "wait_for_log"):
			p.MRP = MRPWaitingForLog
		case strings.Contains(s, "applying_log"):
			p.MRP = MRPApplyingLog
		default:
			p.MRP = MRPAttention
		}
	}
	return p
}

func assessRisk(standby, daily string) Risk {
	s := strings.ToLower(standby)
	d := strings.ToLower(daily)

	r := Risk{
		Connection:              ConnectionOK,
		ProtectionModeAvailable: strings.Contains(d, "protection_mode"),
		Role:                    RoleUnknown,
	}
	switch {
	case scan.ContainsAny(standby, "ORA-", "TNS-"):
		r.Connection = ConnectionOracleError
	case strings.Contains(s, "sqlplus") && strings.Contains(s, "not recognized"):
		r.Connection = ConnectionClientSetup
	}
	for _, proc := range []string{"mrp", "rfs", "lgwr"} {
		if strings.Contains(s, proc) {
			r.ProcessCount++
		}
	}
	if strings.Contains(s, "database_role") {
		r.Role = RoleUnexpected
		if strings.Contains(s, "standby") {
			r.Role = RoleStandbyConfirmed
		}
	}
	return r
}
