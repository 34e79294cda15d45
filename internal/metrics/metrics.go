// Package metrics 导出单次分析运行的 Prometheus 指标
// Package metrics exposes the outcome of analysis runs as Prometheus
// metrics. The one-shot CLI exports them batch-style, either as a
// node_exporter textfile or through a Pushgateway; the API daemon keeps
// them registered and serves them over /metrics.
package metrics

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"

	"github.com/livp123/logsift/internal/analyzer"
	"github.com/livp123/logsift/internal/config"
	"github.com/livp123/logsift/internal/utils/logger"
)

var (
	runInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logsift_run_info",
			Help: "Outcome of the last analysis run, labeled by status and log date",
		},
		[]string{"status", "log_date"},
	)
	runDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logsift_run_duration_seconds",
			Help: "Wall-clock duration of the last analysis run",
		},
	)
	linesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logsift_lines_total",
			Help: "Lines read from the analyzed log in the last run",
		},
	)
	linesMalformed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logsift_lines_malformed",
			Help: "Lines the parser rejected in the last run",
		},
	)
	urlsDistinct = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logsift_urls_distinct",
			Help: "Distinct URLs aggregated in the last run",
		},
	)
	reportRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logsift_report_rows",
			Help: "Rows written to the report in the last run",
		},
	)
)

// Exporter 按配置将运行指标写到 textfile 或推送到 Pushgateway
// Exporter records run outcomes and ships them per configuration.
// Export is best-effort: a full report with a missed metrics push is
// still a successful run, so failures are logged and swallowed.
type Exporter struct {
	cfg *config.MetricsConfig
}

// NewExporter returns an exporter honoring cfg.
func NewExporter(cfg *config.MetricsConfig) *Exporter {
	return &Exporter{cfg: cfg}
}

// Record sets the run gauges from result. rows is the number of rows
// the report writer actually kept, which the result itself cannot know.
func (e *Exporter) Record(result *analyzer.RunResult, rows int) {
	logDate := ""
	if result.Log != nil {
		logDate = result.Log.Date.Format("2006-01-02")
	}

	// One info series per run: clear older status/date combinations so
	// a long-lived process never reports two terminal states at once.
	runInfo.Reset()
	runInfo.WithLabelValues(string(result.Status), logDate).Set(1)

	runDuration.Set(result.Elapsed.Seconds())
	linesTotal.Set(float64(result.TotalLines))
	linesMalformed.Set(float64(result.MalformedLines))
	urlsDistinct.Set(float64(len(result.Metrics)))
	reportRows.Set(float64(rows))
}

// Export ships the already-recorded gauges to the configured targets.
func (e *Exporter) Export(ctx context.Context) {
	if e.cfg == nil || !e.cfg.Enabled {
		return
	}
	log := logger.Get(ctx)

	if e.cfg.TextfilePath != "" {
		if err := writeTextfile(e.cfg.TextfilePath); err != nil {
			log.Warnf("⚠️ Metrics textfile export failed: %v", err)
		} else {
			log.Debugf("Metrics written to %s", e.cfg.TextfilePath)
		}
	}

	if e.cfg.PushGateway != "" {
		job := e.cfg.Job
		if job == "" {
			job = "logsift"
		}
		if err := push.New(e.cfg.PushGateway, job).
			Gatherer(prometheus.DefaultGatherer).
			Push(); err != nil {
			log.Warnf("⚠️ Could not push metrics to %s: %v", e.cfg.PushGateway, err)
		} else {
			log.Debugf("Metrics pushed to %s", e.cfg.PushGateway)
		}
	}
}

// writeTextfile renders the default registry in the exposition text
// format next to path, then renames into place so node_exporter never
// scrapes a half-written file.
func writeTextfile(path string) error {
	f, err := os.Create(path + ".tmp") // #nosec G304 - path is the configured textfile target
	if err != nil {
		return err
	}

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		_ = f.Close()
		return err
	}

	enc := expfmt.NewEncoder(f, expfmt.Format("text/plain; version=0.0.4"))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(path+".tmp", path)
}
