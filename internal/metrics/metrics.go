// Package metrics exports the outcome of each monitoring run as Prometheus
// gauges, written to a node_exporter textfile.
package metrics

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luckyjian/dgwatch/internal/alert"
	"github.com/luckyjian/dgwatch/internal/analysis"
	"github.com/luckyjian/dgwatch/internal/htmlreport"
	"github.com/luckyjian/dgwatch/internal/metric"
)

const namespace = "dgwatch"

// Recorder holds the run gauges on a private registry.
type Recorder struct {
	reg *prometheus.Registry

	overall    prometheus.Gauge
	findings   *prometheus.GaugeVec
	uptime     *prometheus.GaugeVec
	staleness  prometheus.Gauge
	tablespace prometheus.Gauge
	lastRun    prometheus.Gauge
}

// NewRecorder registers the run gauges on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		overall: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overall_severity",
			Help:      "Overall severity of the last run (0 normal, 1 warning, 2 critical).",
		}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "findings",
			Help:      "Number of alert findings of the last run by severity.",
		}, []string{"severity"}),
		uptime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_days",
			Help:      "Database uptime in days by role.",
		}, []string{"role"}),
		staleness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backup_staleness_hours",
			Help:      "Hours between the last backup end and the report system date.",
		}),
		tablespace: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tablespace_usage_percent",
			Help:      "Overall tablespace usage percent.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
	}
	r.reg.MustRegister(r.overall, r.findings, r.uptime, r.staleness, r.tablespace, r.lastRun)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Record sets every gauge from rep. Unknown values are exported as NaN, and
// an unknown uptime drops its role series.
func (r *Recorder) Record(rep *analysis.Report, at time.Time) {
	r.overall.Set(float64(rep.Overall()))
	for _, s := range []alert.Severity{alert.Warning, alert.Critical} {
		r.findings.WithLabelValues(s.String()).Set(float64(rep.Assessment.Count(s)))
	}

	r.setUptime(htmlreport.RoleStandby, rep.StandbyUptime)
	r.setUptime(htmlreport.RoleProduction, rep.ProductionUptime)

	if rep.BackupStaleness.Known {
		r.staleness.Set(rep.BackupStaleness.Value)
	} else {
		r.staleness.Set(math.NaN())
	}

	if ts := rep.Tablespace; ts != nil && ts.OverallUsagePercent != nil {
		r.tablespace.Set(*ts.OverallUsagePercent)
	} else {
		r.tablespace.Set(math.NaN())
	}

	r.lastRun.Set(float64(at.Unix()))
}

func (r *Recorder) setUptime(role htmlreport.Role, d metric.Days) {
	if !d.Known {
		r.uptime.DeleteLabelValues(string(role))
		return
	}
	r.uptime.WithLabelValues(string(role)).Set(float64(d.Value))
}

// WriteTextfile writes the current gauges to path in the text exposition
// format, creating the parent directory if needed.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
