// Package hostcheck probes the monitoring host itself: the size of the log
// directory and the usage of the disk the tool runs from.
package hostcheck

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/afero"
)

// Thresholds used by the capacity section.
const (
	LogDirCleanupMB    = 100.0
	DiskWarningPercent = 90.0
	DiskNoticePercent  = 80.0
	bytesPerMB         = 1024 * 1024
	bytesPerGB         = 1024 * 1024 * 1024
)

// LogDirUsage is the file count and total size of the log directory.
type LogDirUsage struct {
	Path   string `json:"path"   yaml:"path"`
	Exists bool   `json:"exists" yaml:"exists"`
	Files  int    `json:"files"  yaml:"files"`
	Bytes  int64  `json:"bytes"  yaml:"bytes"`
}

// MB returns the directory size in megabytes.
func (u LogDirUsage) MB() float64 {
	return float64(u.Bytes) / bytesPerMB
}

// NeedsCleanup reports whether the directory has grown past LogDirCleanupMB.
func (u LogDirUsage) NeedsCleanup() bool {
	return u.MB() > LogDirCleanupMB
}

// DiskUsage is the usage of the filesystem holding Path.
type DiskUsage struct {
	Path        string  `json:"path"         yaml:"path"`
	TotalBytes  uint64  `json:"total_bytes"  yaml:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"   yaml:"used_bytes"`
	FreeBytes   uint64  `json:"free_bytes"   yaml:"free_bytes"`
	UsedPercent float64 `json:"used_percent" yaml:"used_percent"`
}

// TotalGB returns the filesystem size in gigabytes.
func (d DiskUsage) TotalGB() float64 { return float64(d.TotalBytes) / bytesPerGB }

// FreeGB returns the free space in gigabytes.
func (d DiskUsage) FreeGB() float64 { return float64(d.FreeBytes) / bytesPerGB }

// Usage is the combined host probe. A failed probe leaves its field nil and
// records the error text.
type Usage struct {
	LogDir    *LogDirUsage `json:"log_dir,omitempty"       yaml:"log_dir,omitempty"`
	LogDirErr string       `json:"log_dir_error,omitempty" yaml:"log_dir_error,omitempty"`
	Disk      *DiskUsage   `json:"disk,omitempty"          yaml:"disk,omitempty"`
	DiskErr   string       `json:"disk_error,omitempty"    yaml:"disk_error,omitempty"`
}

// Prober collects host usage. The disk function is swappable for tests.
type Prober struct {
	fs        afero.Fs
	diskUsage func(context.Context, string) (*disk.UsageStat, error)
}

// NewProber returns a Prober reading files through fsys and disk usage
// through gopsutil.
func NewProber(fsys afero.Fs) *Prober {
	return &Prober{fs: fsys, diskUsage: disk.UsageWithContext}
}

// WithDiskUsage replaces the disk usage source.
func (p *Prober) WithDiskUsage(fn func(context.Context, string) (*disk.UsageStat, error)) *Prober {
	p.diskUsage = fn
	return p
}

// Probe measures logDir and the disk holding diskPath. Failures are recorded
// in the result rather than returned.
func (p *Prober) Probe(ctx context.Context, logDir, diskPath string) Usage {
	var u Usage
	if ld, err := p.LogDir(logDir); err != nil {
		u.LogDirErr = err.Error()
	} else {
		u.LogDir = &ld
	}
	if d, err := p.Disk(ctx, diskPath); err != nil {
		u.DiskErr = err.Error()
	} else {
		u.Disk = d
	}
	return u
}

// LogDir walks dir and sums the sizes of its regular files. A missing
// directory is not an error; Exists is false.
func (p *Prober) LogDir(dir string) (LogDirUsage, error) {
	u := LogDirUsage{Path: dir}
	if _, err := p.fs.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return u, nil
		}
		return u, fmt.Errorf("stat log dir %s: %w", dir, err)
	}
	u.Exists = true
	err := afero.Walk(p.fs, dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			u.Files++
			u.Bytes += info.Size()
		}
		return nil
	})
	if err != nil {
		return u, fmt.Errorf("walk log dir %s: %w", dir, err)
	}
	return u, nil
}

// Disk returns the usage of the filesystem holding path.
func (p *Prober) Disk(ctx context.Context, path string) (*DiskUsage, error) {
	stat, err := p.diskUsage(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("disk usage %s: %w", path, err)
	}
	return &DiskUsage{
		Path:        path,
		TotalBytes:  stat.Total,
		UsedBytes:   stat.Used,
		FreeBytes:   stat.Free,
		UsedPercent: stat.UsedPercent,
	}, nil
}
