package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/luckyjian/dgwatch/internal/cli"
)

const fixture = "../htmlreport/testdata/daily_report.html"

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := cli.NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("expected JSON output: %v\nraw: %s", err, raw)
	}
	return resp
}

// isolate points every path setting into a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DGWATCH_PATHS_LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DGWATCH_PATHS_REPORT_PATH", filepath.Join(dir, "missing.html"))
	t.Setenv("DGWATCH_PATHS_METRICS_FILE", "")
	t.Setenv("DGWATCH_SETTINGS_AUTO_SEND_EMAIL", "false")
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestRootCmd_ListsCommands(t *testing.T) {
	out, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, name := range []string{"analyze", "run", "daemon", "notify", "config", "trend"} {
		if !strings.Contains(out, name) {
			t.Errorf("expected %q in help output", name)
		}
	}
}

func TestRootCmd_InvalidFormat(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "--format", "xml", "config", "show")
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("expected invalid format error, got %v", err)
	}
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("DGWATCH_SETTINGS_RUN_HOUR", "25")
	if _, _, err := execute(t, "config", "show"); err == nil {
		t.Error("expected validation error for run_hour 25")
	}
}

func TestAnalyzeCmd_Fixture(t *testing.T) {
	dir := isolate(t)
	standby := writeFile(t, filepath.Join(dir, "standby.txt"),
		"MRP0 APPLYING_LOG\nRFS IDLE\nDATABASE_ROLE PHYSICAL STANDBY\n")

	out, _, err := execute(t, "analyze", "--standby-output", standby, "--report", fixture)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	resp := decode(t, out)
	if resp["success"] != true {
		t.Fatalf("expected success=true, got %v", resp["success"])
	}
	data := resp["data"].(map[string]any)
	report := data["report"].(map[string]any)
	if report["report_available"] != true {
		t.Error("expected report_available=true")
	}
	assessment := report["assessment"].(map[string]any)
	if assessment["overall"] != "critical" {
		t.Errorf("expected overall critical, got %v", assessment["overall"])
	}
	if !strings.Contains(data["text"].(string), "智能告警分级") {
		t.Error("expected composed text in payload")
	}
}

func TestAnalyzeCmd_TextOutput(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "analyze", "--report", fixture, "--text")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(out, "基础错误扫描") || !strings.Contains(out, "综合总结") {
		t.Errorf("expected composed text report, got:\n%s", out)
	}
}

func TestAnalyzeCmd_MissingReport(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "analyze")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	report := decode(t, out)["data"].(map[string]any)["report"].(map[string]any)
	if report["report_available"] != false {
		t.Error("expected report_available=false")
	}
	overall := report["assessment"].(map[string]any)["overall"]
	if overall == "normal" {
		t.Error("expected at least a warning without the HTML report")
	}
}

func TestAnalyzeCmd_MissingOutputFile(t *testing.T) {
	dir := isolate(t)
	_, errOut, err := execute(t, "analyze", "--daily-output", filepath.Join(dir, "absent.txt"))
	if err == nil {
		t.Fatal("expected error for a missing output file")
	}
	resp := decode(t, errOut)
	if resp["success"] != false {
		t.Errorf("expected success=false, got %v", resp["success"])
	}
}

func TestAnalyzeCmd_TableFormat(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "--format", "table", "analyze", "--report", fixture)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(out, "runtime_age") {
		t.Errorf("expected finding rows in table output, got:\n%s", out)
	}
}

func TestConfigShowCmd_MasksSecrets(t *testing.T) {
	isolate(t)
	t.Setenv("DGWATCH_EMAIL_PASSWORD", "s3cret")

	out, _, err := execute(t, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if strings.Contains(out, "s3cret") {
		t.Fatal("password leaked into config show output")
	}
	data := decode(t, out)["data"].(map[string]any)
	if data["email.password"] != "******" {
		t.Errorf("expected masked password, got %v", data["email.password"])
	}
	if data["settings.run_hour"] != "8" {
		t.Errorf("expected run_hour 8, got %v", data["settings.run_hour"])
	}
}

func TestConfigShowCmd_Table(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "--format", "table", "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "settings.script_encoding") {
		t.Errorf("expected settings rows in table output, got:\n%s", out)
	}
}

func TestTrendCmd(t *testing.T) {
	dir := isolate(t)
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(logDir, "dgwatch.log"), strings.Join([]string{
		`{"level":"warn","message":"ORA-12541: TNS:no listener error"}`,
		`{"level":"warn","message":"'sqlplus' is not recognized as a command, error"}`,
		`{"level":"info","message":"analysis complete"}`,
	}, "\n")+"\n")

	out, _, err := execute(t, "trend")
	if err != nil {
		t.Fatalf("trend failed: %v", err)
	}
	data := decode(t, out)["data"].(map[string]any)
	trend := data["trend"].(map[string]any)
	if trend["recent_errors"] != float64(2) {
		t.Errorf("expected 2 recent errors, got %v", trend["recent_errors"])
	}
	if data["stability"] != "sporadic" {
		t.Errorf("expected sporadic stability, got %v", data["stability"])
	}
}

func TestTrendCmd_AfterCleanRuns(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := isolate(t)
	script := writeFile(t, filepath.Join(dir, "check.sh"), "#!/bin/sh\necho 'MRP0 WAIT_FOR_LOG'\n")
	t.Setenv("DGWATCH_PATHS_CHECK_STANDBY_BAT", script)
	t.Setenv("DGWATCH_PATHS_DAILY_REPORT_BAT", script)

	for i := 0; i < 3; i++ {
		if _, _, err := execute(t, "run"); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
	}

	out, _, err := execute(t, "trend")
	if err != nil {
		t.Fatalf("trend failed: %v", err)
	}
	data := decode(t, out)["data"].(map[string]any)
	trend := data["trend"].(map[string]any)
	if trend["recent_errors"] != float64(0) {
		t.Errorf("expected 0 recent errors after clean runs, got %v", trend["recent_errors"])
	}
	if data["stability"] != "stable" {
		t.Errorf("expected stable, got %v", data["stability"])
	}
}

func TestTrendCmd_NoLog(t *testing.T) {
	isolate(t)
	_, errOut, err := execute(t, "trend")
	if err == nil {
		t.Fatal("expected error without a run log")
	}
	if !strings.Contains(errOut, "no run history") {
		t.Errorf("expected no-history message, got %s", errOut)
	}
}

func TestRunCmd_MissingScripts(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DGWATCH_PATHS_CHECK_STANDBY_BAT", filepath.Join(dir, "check_standby.bat"))
	t.Setenv("DGWATCH_PATHS_DAILY_REPORT_BAT", filepath.Join(dir, "daily_report.bat"))

	_, errOut, err := execute(t, "run")
	if err == nil {
		t.Fatal("expected error for missing scripts")
	}
	if !strings.Contains(errOut, `"success": false`) {
		t.Errorf("expected failure envelope, got %s", errOut)
	}
}

func TestRunCmd_ExecutesScripts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := isolate(t)
	standby := writeFile(t, filepath.Join(dir, "check_standby.sh"),
		"#!/bin/sh\necho 'MRP0 WAIT_FOR_LOG'\necho 'RFS IDLE'\n")
	daily := writeFile(t, filepath.Join(dir, "daily_report.sh"),
		"#!/bin/sh\necho 'last applied 100'\necho 'ORA-01034: ORACLE not available'\n")
	metricsFile := filepath.Join(dir, "metrics", "dgwatch.prom")
	t.Setenv("DGWATCH_PATHS_CHECK_STANDBY_BAT", standby)
	t.Setenv("DGWATCH_PATHS_DAILY_REPORT_BAT", daily)
	t.Setenv("DGWATCH_PATHS_METRICS_FILE", metricsFile)

	out, _, err := execute(t, "run")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	data := decode(t, out)["data"].(map[string]any)
	if data["sent"] != false {
		t.Error("expected no mail without --send")
	}
	report := data["report"].(map[string]any)
	if matches, _ := report["daily_matches"].([]any); len(matches) != 1 {
		t.Errorf("expected 1 daily match, got %v", report["daily_matches"])
	}
	if _, err := os.Stat(metricsFile); err != nil {
		t.Errorf("expected metrics textfile: %v", err)
	}
	logBytes, err := os.ReadFile(filepath.Join(dir, "logs", "dgwatch.log"))
	if err != nil {
		t.Fatalf("expected run log: %v", err)
	}
	if !strings.Contains(string(logBytes), "ORA-01034") {
		t.Error("expected pattern hit in run log")
	}
}

func TestRunCmd_SendWithIncompleteSettings(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := isolate(t)
	script := writeFile(t, filepath.Join(dir, "check.sh"), "#!/bin/sh\necho ok\n")
	t.Setenv("DGWATCH_PATHS_CHECK_STANDBY_BAT", script)
	t.Setenv("DGWATCH_PATHS_DAILY_REPORT_BAT", script)
	t.Setenv("DGWATCH_EMAIL_SMTP_SERVER", "")
	t.Setenv("DGWATCH_EMAIL_RECIPIENT_EMAILS", "")

	_, errOut, err := execute(t, "run", "--send")
	if err == nil {
		t.Fatal("expected send to fail without mail settings")
	}
	if !strings.Contains(errOut, "incomplete mail settings") {
		t.Errorf("expected incomplete settings error, got %s", errOut)
	}
}

func TestNotifyTestCmd_IncompleteSettings(t *testing.T) {
	isolate(t)
	t.Setenv("DGWATCH_EMAIL_SMTP_SERVER", "")
	_, errOut, err := execute(t, "notify", "test")
	if err == nil {
		t.Fatal("expected error without an SMTP server")
	}
	if decode(t, errOut)["success"] != false {
		t.Error("expected failure envelope")
	}
}

func TestNotifyTestCmd_MailgunIncomplete(t *testing.T) {
	isolate(t)
	t.Setenv("DGWATCH_EMAIL_TRANSPORT", "mailgun")
	t.Setenv("DGWATCH_MAILGUN_API_KEY", "")
	if _, _, err := execute(t, "notify", "test"); err == nil {
		t.Error("expected error for mailgun without a key")
	}
}
