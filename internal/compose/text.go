// Package compose renders an analysis.Report as the human-readable text
// report, the mail subject and the HTML mail body.
package compose

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/luckyjian/dgwatch/internal/analysis"
	"github.com/luckyjian/dgwatch/internal/hostcheck"
	"github.com/luckyjian/dgwatch/internal/htmlreport"
	"github.com/luckyjian/dgwatch/internal/metric"
	"github.com/luckyjian/dgwatch/internal/scan"
	"github.com/luckyjian/dgwatch/internal/tablespace"
)

// MaxListedMatches is how many pattern hits are listed per source before
// the rest is summarized.
const MaxListedMatches = 5

// ContactThreshold is the total issue count above which the summary
// recommends escalating to a DBA.
const ContactThreshold = 3

// Uptime label boundaries in days.
const (
	uptimeNormalDays    = 31
	uptimeAttentionDays = 62
)

var numbers = message.NewPrinter(language.English)

type writer struct {
	b strings.Builder
}

func (w *writer) heading(n int, title string) {
	if w.b.Len() > 0 {
		w.b.WriteByte('\n')
	}
	fmt.Fprintf(&w.b, "%d. %s:\n", n, title)
}

func (w *writer) line(format string, args ...any) {
	w.b.WriteString("   ")
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

// Text renders the seven sections of the report in fixed order: pattern
// scans, report details, performance, capacity, risks, alert level and
// summary.
func Text(r *analysis.Report) string {
	w := &writer{}
	writeScans(w, r)
	writeDetails(w, r)
	writePerformance(w, r.Performance)
	writeCapacity(w, r.Tablespace, r.Host)
	writeRisks(w, r.Risk)
	writeAlert(w, r)
	writeSummary(w, r)
	return strings.TrimRight(w.b.String(), "\n")
}

func writeScans(w *writer, r *analysis.Report) {
	w.heading(1, "基础错误扫描")
	if !r.ErrorCheckEnabled {
		w.line("错误检查已禁用")
		return
	}
	writeMatches(w, "Check Standby", r.StandbyMatches)
	writeMatches(w, "Daily Report", r.DailyMatches)
}

func writeMatches(w *writer, label string, matches []scan.ErrorMatch) {
	if len(matches) == 0 {
		w.line("%s: 未发现问题", label)
		return
	}
	w.line("%s: 发现 %d 个潜在问题:", label, len(matches))
	for _, m := range matches[:min(len(matches), MaxListedMatches)] {
		w.line("- %s", m.Text)
	}
	if rest := len(matches) - MaxListedMatches; rest > 0 {
		w.line("... 还有 %d 个问题", rest)
	}
}

func writeDetails(w *writer, r *analysis.Report) {
	w.heading(2, "HTML报告分析")
	if !r.ReportAvailable {
		w.line("HTML报告文件不可用: %s", r.ReportPath)
		return
	}

	writeRecord(w, "Standby Database 备库信息", r.Standby, r.Sections[analysis.SectionStandby])
	writeRecord(w, "Production Database 主库信息", r.Production, r.Sections[analysis.SectionProduction])

	w.line("服务器运行时间分析:")
	w.line("   Standby数据库运行时间: %s", UptimeText(r.StandbyUptime))
	w.line("   Production数据库运行时间: %s", UptimeText(r.ProductionUptime))

	if v := r.Versions.Opera; v != nil {
		w.line("Opera Version: %s", *v)
	}
	if v := r.Versions.Oracle; v != nil {
		w.line("Oracle Version: %s", *v)
	}
	if v := r.Versions.Platform; v != nil {
		w.line("Platform: %s", *v)
	}

	switch {
	case r.Backup != nil:
		b := r.Backup
		w.line("List of last 3 days backups (最后一条数据):")
		w.line("   SESSION_RECID: %s", b.SessionID)
		w.line("   START_TIME: %s", b.StartTime)
		w.line("   END_TIME: %s", b.EndTime)
		w.line("   OUTPUT_MBYTES: %s", b.OutputMB)
		w.line("   STATUS: %s", b.Status)
		w.line("   INPUT_TYPE: %s", b.InputType)
		w.line("   DAY: %s", b.Day)
		w.line("   TIME_TAKEN: %s", b.TimeTaken)
		w.line("   OUTPUT_INSTANCE: %s", b.OutputInstance)
	case r.NoBackupInfo:
		w.line("备份信息: 最近3天没有备份记录")
	default:
		w.line("备份信息: 无法提取 (%s)", r.Sections[analysis.SectionBackup].Error)
	}

	if dg := r.DataGuard; dg != nil {
		writeDataGuard(w, dg)
	}

	if len(r.Issues) == 0 {
		w.line("异常情况: 未发现")
		return
	}
	labels := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		labels = append(labels, IssueText(issue))
	}
	w.line("异常情况: %s", strings.Join(labels, "; "))
}

func writeRecord(w *writer, title string, rec *htmlreport.DatabaseRecord, res analysis.SectionResult) {
	if rec == nil {
		w.line("%s: 无法提取 (%s)", title, res.Error)
		return
	}
	w.line("%s:", title)
	w.line("   STATUS: %s", rec.Status)
	w.line("   HOST NAME: %s", rec.HostName)
	w.line("   DATABASE ROLE: %s", rec.DatabaseRole)
	if rec.ProtectionMode != nil {
		w.line("   PROTECTION MODE: %s", *rec.ProtectionMode)
	}
	if rec.StartTime != nil {
		w.line("   START TIME: %s", *rec.StartTime)
	}
	if rec.SystemDate != nil {
		w.line("   SYSTEM DATE: %s", *rec.SystemDate)
	}
}

func writeDataGuard(w *writer, dg *htmlreport.DataGuardStatus) {
	if dg.RolesPresent() {
		w.line("数据库角色检查: 主库和备库角色正常")
	} else {
		w.line("数据库角色检查: 未检测到完整的主备角色")
	}
	w.line("表空间标记检查: %s", markerText(dg.TablespaceMarker))
	w.line("归档日志间隙检查: %s", CheckText(dg.ArchiveGap.State))
	if c := dg.ArchiveGap.Count; c != nil {
		w.line("   间隙数量: %d 个日志文件", *c)
	}
	if lo, hi := dg.ArchiveGap.LowSeq, dg.ArchiveGap.HighSeq; lo != nil && hi != nil {
		w.line("   间隙范围: 序列号 %d 到 %d", *lo, *hi)
	}
	w.line("未应用日志检查: %s", CheckText(dg.Unapplied.State))
	if c := dg.Unapplied.Count; c != nil {
		w.line("   未应用日志数量: %d 个日志文件", *c)
	}
}

func markerText(marker string) string {
	switch marker {
	case "danger":
		return "发现DANGER标记"
	case "warning":
		return "发现WARNING标记"
	}
	return "正常"
}

func writePerformance(w *writer, p analysis.Performance) {
	w.heading(3, "性能监控分析")
	if p.SyncMonitored {
		w.line("同步状态: 正在监控主备库同步延迟")
	} else {
		w.line("同步状态: 无法获取同步时间信息")
	}
	switch p.MRP {
	case analysis.MRPWaitingForLog:
		w.line("MRP进程: 正常运行，等待日志")
	case analysis.MRPApplyingLog:
		w.line("MRP进程: 正在应用日志")
	case analysis.MRPAttention:
		w.line("MRP进程: 状态需要关注")
	default:
		w.line("MRP进程: 未检测到进程信息")
	}
	if p.RFSRunning {
		w.line("网络传输: RFS进程正常运行")
	} else {
		w.line("网络传输: 需要检查RFS进程状态")
	}
}

func writeCapacity(w *writer, ts *tablespace.Summary, host *hostcheck.Usage) {
	w.heading(4, "容量和空间分析")
	switch {
	case ts == nil:
		w.line("表空间统计: 报告中没有表空间信息")
	case ts.Count == 0:
		w.line("表空间统计: 未解析到有效的表空间数据")
	default:
		w.line("表空间统计: 共 %d 个表空间", ts.Count)
		w.line("总SIZE (G): %s GB", numbers.Sprintf("%.2f", tablespace.GB(ts.TotalSizeMB)))
		w.line("总MAX SIZE (G): %s GB", numbers.Sprintf("%.2f", tablespace.GB(ts.TotalMaxSizeMB)))
		if p := ts.OverallUsagePercent; p != nil {
			w.line("整体使用率: %.2f%%", *p)
			w.line("%s", usageText(*p))
		}
		if ts.HighUsageCount > 0 {
			w.line("🔴 高使用率表空间数量: %d 个 (>%.0f%%)", ts.HighUsageCount, tablespace.HighUsagePercent)
		} else {
			w.line("✅ 所有表空间使用率正常")
		}
	}

	if host == nil {
		return
	}
	switch {
	case host.LogDir != nil && !host.LogDir.Exists:
		w.line("日志目录: 不存在，可能需要创建")
	case host.LogDir != nil:
		w.line("日志目录: %d 个文件，总大小 %.2f MB", host.LogDir.Files, host.LogDir.MB())
		if host.LogDir.NeedsCleanup() {
			w.line("建议: 日志文件较大，建议定期清理")
		} else {
			w.line("日志空间: 使用正常")
		}
	case host.LogDirErr != "":
		w.line("日志目录: 无法统计 (%s)", host.LogDirErr)
	}

	if d := host.Disk; d != nil {
		w.line("磁盘空间: 总计 %.1f GB，剩余 %.1f GB，使用率 %.1f%%", d.TotalGB(), d.FreeGB(), d.UsedPercent)
		switch {
		case d.UsedPercent > hostcheck.DiskWarningPercent:
			w.line("警告: 磁盘空间不足，使用率超过%.0f%%", hostcheck.DiskWarningPercent)
		case d.UsedPercent > hostcheck.DiskNoticePercent:
			w.line("注意: 磁盘空间使用率超过%.0f%%", hostcheck.DiskNoticePercent)
		default:
			w.line("磁盘空间: 充足")
		}
	} else if host.DiskErr != "" {
		w.line("磁盘空间: 无法获取磁盘使用信息")
	}
}

func writeRisks(w *writer, r analysis.Risk) {
	w.heading(5, "风险预警分析")
	switch r.Connection {
	case analysis.ConnectionOracleError:
		w.line("连接风险: 检测到Oracle连接错误")
	case analysis.ConnectionClientSetup:
		w.line("环境风险: Oracle客户端未正确安装或配置")
	default:
		w.line("连接状态: 基础检查正常")
	}
	switch {
	case r.ProcessCount >= 2:
		w.line("进程健康: 检测到 %d 个关键进程运行", r.ProcessCount)
	case r.ProcessCount == 1:
		w.line("进程健康: 部分关键进程运行，需要关注")
	default:
		w.line("进程健康: 未检测到关键进程，可能存在风险")
	}
	if r.ProtectionModeAvailable {
		w.line("配置检查: 保护模式信息可用")
	} else {
		w.line("配置检查: 无法获取保护模式信息")
	}
	switch r.Role {
	case analysis.RoleStandbyConfirmed:
		w.line("角色检查: 数据库角色为备库，正常")
	case analysis.RoleUnexpected:
		w.line("角色检查: 数据库角色异常，需要确认")
	default:
		w.line("角色检查: 无法确认数据库角色")
	}
}

func writeAlert(w *writer, r *analysis.Report) {
	w.heading(6, "智能告警分级")
	overall := r.Overall()
	w.line("告警级别: %s - %s", overall.Tag(), overall.Headline())
	for _, f := range r.Assessment.Findings {
		w.line("[%s] %s", f.Severity.Tag(), f.Message)
	}
	if n := r.PatternErrorCount(); n > 0 {
		w.line("检测到其他错误数: %d", n)
	}
	if cause := RootCauseText(r.RootCause); cause != "" {
		w.line("根因分析: %s", cause)
	}
}

func writeSummary(w *writer, r *analysis.Report) {
	w.heading(7, "综合总结")
	if r.Performance.Healthy() {
		w.line("性能状态: 基本正常")
	} else {
		w.line("性能状态: 需要关注")
	}
	if capacityHealthy(r.Tablespace, r.Host) {
		w.line("容量状态: 正常")
	} else {
		w.line("容量状态: 需要关注")
	}
	if r.Risk.HasRisk() {
		w.line("风险评估: 存在潜在风险")
	} else {
		w.line("风险评估: 风险可控")
	}
	total := r.TotalIssues()
	if total > 0 {
		w.line("建议: 1小时后重新检查")
	} else {
		w.line("建议: 按计划进行下次检查")
	}
	if total > ContactThreshold {
		w.line("紧急情况: 建议联系数据库管理员")
	}
}

// capacityHealthy is true when at least one capacity signal reads as
// healthy.
func capacityHealthy(ts *tablespace.Summary, host *hostcheck.Usage) bool {
	if ts != nil && ts.OverallUsagePercent != nil && *ts.OverallUsagePercent <= tablespace.HighUsagePercent {
		return true
	}
	if host == nil {
		return false
	}
	if host.LogDir != nil && host.LogDir.Exists && !host.LogDir.NeedsCleanup() {
		return true
	}
	return host.Disk != nil && host.Disk.UsedPercent <= hostcheck.DiskNoticePercent
}

func usageText(percent float64) string {
	switch tablespace.UsageLabel(percent) {
	case "high":
		return "⚠️ 整体使用率较高，建议关注"
	case "monitor":
		return "📊 整体使用率正常，需要监控"
	default:
		return "✅ 整体使用率良好"
	}
}

// UptimeLabel classifies a database uptime for display.
func UptimeLabel(days int) string {
	switch {
	case days <= uptimeNormalDays:
		return "状态正常"
	case days <= uptimeAttentionDays:
		return "需要关注"
	default:
		return "立即关注，建议立即重启服务器以释放资源"
	}
}

// UptimeText renders an uptime with its label, or the reason it is unknown.
func UptimeText(d metric.Days) string {
	if !d.Known {
		return fmt.Sprintf("无法确定 (%s)", d.Reason)
	}
	return fmt.Sprintf("%d天 %s", d.Value, UptimeLabel(d.Value))
}

// IssueText is the display text of a report issue.
func IssueText(issue analysis.ReportIssue) string {
	switch issue {
	case analysis.IssueArchiveGap:
		return "发现归档日志间隙"
	case analysis.IssueUnappliedLogs:
		return "发现未应用日志"
	case analysis.IssueDanger:
		return "发现危险状态"
	case analysis.IssueError:
		return "发现错误"
	case analysis.IssueException:
		return "发现异常"
	default:
		return string(issue)
	}
}

// CheckText is the display text of a DataGuard self-check state.
func CheckText(s htmlreport.CheckState) string {
	switch s {
	case htmlreport.CheckNormal:
		return "正常"
	case htmlreport.CheckAbnormal:
		return "异常"
	default:
		return "未知"
	}
}

// RootCauseText is the display text of a root cause, empty for none.
func RootCauseText(c analysis.RootCause) string {
	switch c {
	case analysis.RootCauseClientSetup:
		return "Oracle客户端环境配置问题"
	case analysis.RootCauseConnection:
		return "Oracle数据库连接或配置问题"
	case analysis.RootCauseArchiveSync:
		return "归档日志同步问题"
	default:
		return ""
	}
}
