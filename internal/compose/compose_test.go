package compose_test

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/luckyjian/dgwatch/internal/alert"
	"github.com/luckyjian/dgwatch/internal/analysis"
	"github.com/luckyjian/dgwatch/internal/compose"
	"github.com/luckyjian/dgwatch/internal/history"
	"github.com/luckyjian/dgwatch/internal/hostcheck"
	"github.com/luckyjian/dgwatch/internal/metric"
	"github.com/luckyjian/dgwatch/internal/tablespace"
)

func fixtureReport(t *testing.T) *analysis.Report {
	t.Helper()
	b, err := os.ReadFile("../htmlreport/testdata/daily_report.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	doc := string(b)
	return analysis.Analyze(analysis.Input{HTML: &doc, ReportPath: "logs/daily_report.html"}, analysis.DefaultOptions())
}

func TestText_SectionsInOrder(t *testing.T) {
	text := compose.Text(fixtureReport(t))

	headings := []string{
		"1. 基础错误扫描:",
		"2. HTML报告分析:",
		"3. 性能监控分析:",
		"4. 容量和空间分析:",
		"5. 风险预警分析:",
		"6. 智能告警分级:",
		"7. 综合总结:",
	}
	last := -1
	for _, h := range headings {
		idx := strings.Index(text, h)
		if idx < 0 {
			t.Fatalf("expected heading %q in:\n%s", h, text)
		}
		if idx < last {
			t.Errorf("heading %q out of order", h)
		}
		last = idx
	}
}

func TestText_FixtureDetails(t *testing.T) {
	text := compose.Text(fixtureReport(t))

	for _, want := range []string{
		"STATUS: MOUNTED",
		"HOST NAME: PRD-ORA01",
		"PROTECTION MODE: MAXIMUM PERFORMANCE",
		"Standby数据库运行时间: 15天 状态正常",
		"Production数据库运行时间: 67天 立即关注，建议立即重启服务器以释放资源",
		"Opera Version: 5.6.25.4",
		"Oracle Version: 19.0.0.0.0",
		"SESSION_RECID: 1207",
		"表空间统计: 共 3 个表空间",
		"总SIZE (G): 32.30 GB",
		"总MAX SIZE (G): 96.00 GB",
		"🔴 高使用率表空间数量: 1 个 (>80%)",
		"数据库角色检查: 主库和备库角色正常",
		"表空间标记检查: 正常",
		"归档日志间隙检查: 正常",
		"告警级别: 🔴 紧急 - 发现严重问题，需要立即处理",
		"建议: 1小时后重新检查",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "建议联系数据库管理员") {
		t.Error("did not expect DBA contact advice for a single issue")
	}
}

func TestText_TruncatesMatches(t *testing.T) {
	var lines []string
	for i := 0; i < 8; i++ {
		lines = append(lines, fmt.Sprintf("ORA-%05d failure", i))
	}
	r := analysis.Analyze(analysis.Input{StandbyOutput: strings.Join(lines, "\n")}, analysis.DefaultOptions())
	text := compose.Text(r)

	if !strings.Contains(text, "Check Standby: 发现 8 个潜在问题:") {
		t.Errorf("expected match count line, got:\n%s", text)
	}
	if !strings.Contains(text, "... 还有 3 个问题") {
		t.Errorf("expected truncation line, got:\n%s", text)
	}
	if strings.Contains(text, "ORA-00005") {
		t.Error("expected only the first five matches to be listed")
	}
	if !strings.Contains(text, "检测到其他错误数: 8") {
		t.Errorf("expected pattern error count, got:\n%s", text)
	}
	if !strings.Contains(text, "紧急情况: 建议联系数据库管理员") {
		t.Errorf("expected DBA contact advice, got:\n%s", text)
	}
	if !strings.Contains(text, "根因分析: Oracle数据库连接或配置问题") {
		t.Errorf("expected connection root cause, got:\n%s", text)
	}
}

func TestText_ErrorCheckDisabled(t *testing.T) {
	opts := analysis.DefaultOptions()
	opts.ErrorCheckEnabled = false
	text := compose.Text(analysis.Analyze(analysis.Input{ReportPath: "missing.html"}, opts))

	if !strings.Contains(text, "错误检查已禁用") {
		t.Errorf("expected disabled notice, got:\n%s", text)
	}
	if !strings.Contains(text, "HTML报告文件不可用: missing.html") {
		t.Errorf("expected unavailable report line, got:\n%s", text)
	}
	if !strings.Contains(text, "告警级别: 🟡 重要") {
		t.Errorf("expected warning level, got:\n%s", text)
	}
}

func TestText_CapacityAndHost(t *testing.T) {
	usage := 50.0
	r := &analysis.Report{
		Tablespace: &tablespace.Summary{Count: 1, TotalSizeMB: 2097152, TotalMaxSizeMB: 4194304, OverallUsagePercent: &usage},
		Host: &hostcheck.Usage{
			LogDir: &hostcheck.LogDirUsage{Path: "logs", Exists: true, Files: 2, Bytes: 200 * 1024 * 1024},
			Disk:   &hostcheck.DiskUsage{TotalBytes: 100 << 30, FreeBytes: 5 << 30, UsedPercent: 95},
		},
	}
	text := compose.Text(r)

	for _, want := range []string{
		"总SIZE (G): 2,048.00 GB",
		"整体使用率: 50.00%",
		"✅ 整体使用率良好",
		"日志目录: 2 个文件，总大小 200.00 MB",
		"建议: 日志文件较大，建议定期清理",
		"磁盘空间: 总计 100.0 GB，剩余 5.0 GB，使用率 95.0%",
		"警告: 磁盘空间不足，使用率超过90%",
		"容量状态: 正常",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}
}

func TestUptimeLabel(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{31, "状态正常"},
		{32, "需要关注"},
		{62, "需要关注"},
		{63, "立即关注，建议立即重启服务器以释放资源"},
	}
	for _, tt := range tests {
		if got := compose.UptimeLabel(tt.days); got != tt.want {
			t.Errorf("%d days: expected %q, got %q", tt.days, tt.want, got)
		}
	}
	if got := compose.UptimeText(metric.Days{Reason: "start: missing"}); got != "无法确定 (start: missing)" {
		t.Errorf("unexpected unknown uptime text %q", got)
	}
}

func TestSubject(t *testing.T) {
	now := time.Date(2025, 8, 7, 8, 5, 0, 0, time.UTC)
	got := compose.Subject(alert.Critical, now)
	want := "[🔴 紧急] 2025-08-07 08:05 - Opera DataGuard状态监测报告"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestText_DataGuardMarkers(t *testing.T) {
	r := fixtureReport(t)
	r.DataGuard.PhysicalStandbyPresent = false
	r.DataGuard.TablespaceMarker = "danger"

	text := compose.Text(r)
	for _, want := range []string{"数据库角色检查: 未检测到完整的主备角色", "表空间标记检查: 发现DANGER标记"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}

	r.DataGuard.TablespaceMarker = "warning"
	if text := compose.Text(r); !strings.Contains(text, "表空间标记检查: 发现WARNING标记") {
		t.Errorf("expected warning marker line in:\n%s", text)
	}
}

func TestHTMLBody(t *testing.T) {
	r := fixtureReport(t)
	now := time.Date(2025, 8, 7, 8, 5, 0, 0, time.UTC)

	body, err := compose.HTMLBody(r, "a <b> line", now, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, `class="alert-badge alert-critical"`) {
		t.Error("expected critical badge class")
	}
	if !strings.Contains(body, "a &lt;b&gt; line") {
		t.Error("expected report text to be escaped")
	}
	if !strings.Contains(body, "2025年08月07日 08:05") {
		t.Error("expected localized timestamp")
	}
	if !strings.Contains(body, "附件说明") {
		t.Error("expected attachment note when the report is attached")
	}
}

func TestHTMLBody_NoAttachmentNote(t *testing.T) {
	r := fixtureReport(t)
	if !r.ReportAvailable {
		t.Fatal("expected fixture report to be available")
	}

	body, err := compose.HTMLBody(r, "text", time.Now(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(body, "附件说明") {
		t.Error("expected no attachment note when the report file was not attached")
	}
}

func TestTrendLines(t *testing.T) {
	lines := compose.TrendLines(history.Trend{RecentErrors: 3, SQLPlusErrors: 2})
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"历史错误统计: 最近检测到 3 个错误",
		"环境问题: 检测到 2 次Oracle客户端问题",
		"趋势分析: 偶发性问题，建议持续监控",
		"预测建议: 主要问题为环境配置，解决后系统稳定性将显著提升",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in:\n%s", want, joined)
		}
	}

	stable := compose.TrendLines(history.Trend{})
	if stable[len(stable)-1] != "预测建议: 系统整体稳定，建议保持当前监控频率" {
		t.Errorf("unexpected stable prediction %q", stable[len(stable)-1])
	}
}
