package history_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyjian/dgwatch/internal/history"
)

func TestAnalyze_Counts(t *testing.T) {
	tr := history.Analyze([]string{
		`{"level":"error","message":"script failed"}`,
		`'sqlplus' is not recognized as an internal or external command`,
		`ORA-12541: TNS:no listener`,
		`{"level":"info","message":"run complete"}`,
	})
	assert.Equal(t, 4, tr.LinesAnalyzed)
	assert.Equal(t, 1, tr.RecentErrors)
	assert.Equal(t, 1, tr.SQLPlusErrors)
	assert.Equal(t, 1, tr.ConnectionErrors)
	assert.Equal(t, history.Sporadic, tr.Stability())
}

func TestAnalyze_JSONFieldNamesDoNotCount(t *testing.T) {
	tr := history.Analyze([]string{
		`{"level":"info","overall":"normal","findings":0,"pattern_hits":0,"time":"2025-08-07T08:00:00+08:00","message":"analysis complete"}`,
		`{"level":"info","script":"check_standby.bat","exit_code":0,"message":"script finished"}`,
		`{"level":"warn","error":"script timed out","message":"script execution incomplete"}`,
		`{"level":"warn","source":"daily_report","line":3,"message":"ORA-01034: ORACLE not available"}`,
	})
	assert.Equal(t, 0, tr.RecentErrors)
	assert.Equal(t, 1, tr.ConnectionErrors)
	assert.Equal(t, history.Stable, tr.Stability())
}

func TestAnalyze_ErrorFieldCounts(t *testing.T) {
	tr := history.Analyze([]string{
		`{"level":"warn","error":"send report: smtp login failed","message":"run failed"}`,
		`{"level":"error","message":"scheduled run"}`,
	})
	assert.Equal(t, 2, tr.RecentErrors)
}

func TestStability(t *testing.T) {
	assert.Equal(t, history.Stable, history.Trend{}.Stability())
	assert.Equal(t, history.Frequent, history.Trend{RecentErrors: 11}.Stability())
	assert.Equal(t, history.Sporadic, history.Trend{RecentErrors: 10}.Stability())
}

func TestTail_KeepsLastLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	var b strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	require.NoError(t, afero.WriteFile(fs, "logs/dgwatch.log", []byte(b.String()), 0o644))

	lines, err := history.Tail(fs, "logs/dgwatch.log", history.DefaultTailLines)
	require.NoError(t, err)
	require.Len(t, lines, 100)
	assert.Equal(t, "line 50", lines[0])
	assert.Equal(t, "line 149", lines[99])
}

func TestFromLog_Missing(t *testing.T) {
	_, err := history.FromLog(afero.NewMemMapFs(), "logs/dgwatch.log", 100)
	assert.True(t, errors.Is(err, history.ErrNoLog))
}
