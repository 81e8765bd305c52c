package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyjian/dgwatch/internal/logging"
)

func TestNew_WritesConsoleAndJSON(t *testing.T) {
	var console, file bytes.Buffer
	log := logging.New(&console, &file, false)

	log.Debug().Msg("hidden")
	log.Info().Str("script", "check_standby.bat").Msg("script finished")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "script finished")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "check_standby.bat", entry["script"])
	assert.Equal(t, "script finished", entry["message"])
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	var console bytes.Buffer
	log := logging.New(&console, nil, true)
	log.Debug().Msg("details")
	assert.Contains(t, console.String(), "details")
}

func TestOpenFile_Appends(t *testing.T) {
	dir := t.TempDir() + "/logs"
	for _, line := range []string{"first\n", "second\n"} {
		f, err := logging.OpenFile(dir)
		require.NoError(t, err)
		_, err = f.WriteString(line)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	b, err := os.ReadFile(logging.Path(dir))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(b), "\n"))
}
