package hostcheck_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyjian/dgwatch/internal/hostcheck"
)

func TestLogDir_CountsRegularFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("logs/archive", 0o755))
	require.NoError(t, afero.WriteFile(fs, "logs/dgwatch.log", make([]byte, 1024), 0o644))
	require.NoError(t, afero.WriteFile(fs, "logs/daily_report.html", make([]byte, 2048), 0o644))
	require.NoError(t, afero.WriteFile(fs, "logs/archive/old.log", make([]byte, 512), 0o644))

	u, err := hostcheck.NewProber(fs).LogDir("logs")
	require.NoError(t, err)
	assert.True(t, u.Exists)
	assert.Equal(t, 3, u.Files)
	assert.Equal(t, int64(3584), u.Bytes)
	assert.False(t, u.NeedsCleanup())
}

func TestLogDir_Missing(t *testing.T) {
	u, err := hostcheck.NewProber(afero.NewMemMapFs()).LogDir("logs")
	require.NoError(t, err)
	assert.False(t, u.Exists)
	assert.Zero(t, u.Files)
}

func TestLogDir_NeedsCleanup(t *testing.T) {
	u := hostcheck.LogDirUsage{Exists: true, Files: 1, Bytes: 101 * 1024 * 1024}
	assert.True(t, u.NeedsCleanup())
	assert.InDelta(t, 101.0, u.MB(), 1e-9)
}

func TestProbe_DiskFromInjectedSource(t *testing.T) {
	p := hostcheck.NewProber(afero.NewMemMapFs()).WithDiskUsage(
		func(ctx context.Context, path string) (*disk.UsageStat, error) {
			return &disk.UsageStat{Path: path, Total: 100 << 30, Used: 85 << 30, Free: 15 << 30, UsedPercent: 85}, nil
		})

	u := p.Probe(context.Background(), "logs", "/opt/dgwatch")
	require.NotNil(t, u.Disk)
	assert.Equal(t, "/opt/dgwatch", u.Disk.Path)
	assert.InDelta(t, 100.0, u.Disk.TotalGB(), 1e-9)
	assert.InDelta(t, 15.0, u.Disk.FreeGB(), 1e-9)
	assert.Equal(t, 85.0, u.Disk.UsedPercent)
	require.NotNil(t, u.LogDir)
	assert.False(t, u.LogDir.Exists)
}

func TestProbe_DiskFailureRecorded(t *testing.T) {
	p := hostcheck.NewProber(afero.NewMemMapFs()).WithDiskUsage(
		func(context.Context, string) (*disk.UsageStat, error) {
			return nil, errors.New("permission denied")
		})

	u := p.Probe(context.Background(), "logs", "C:\\opera")
	assert.Nil(t, u.Disk)
	assert.Contains(t, u.DiskErr, "permission denied")
}
