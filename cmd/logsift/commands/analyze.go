package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/livp123/logsift/internal/analyzer"
	"github.com/livp123/logsift/internal/metrics"
	"github.com/livp123/logsift/internal/report"
	"github.com/livp123/logsift/internal/utils/fmtutil"
	"github.com/livp123/logsift/internal/utils/logger"
)

var (
	analyzeLogDir     string
	analyzeReportDir  string
	analyzeReportSize int
	analyzePattern    string
	analyzeThreshold  float64
)

var AnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis pipeline once",
	// Short: 执行一次分析流水线
	Long: `Locate the newest access log, aggregate per-URL request times and write
the HTML report of the slowest URLs.

Exit codes:
  0  report written, nothing to do, or already reported
  1  hard failure (unreadable input, broken config, report write error)
  2  the malformed-line gate aborted the run`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.Get(ctx)

		cfg, err := loadConfig()
		if err != nil {
			log.Errorf("❌ Failed to load config: %v", err)
			os.Exit(1)
		}

		// Flag overrides apply to this run only, the file stays untouched.
		// 标志覆盖仅对本次运行生效，配置文件保持不变。
		flags := cmd.Flags()
		if flags.Changed("log-dir") {
			cfg.LogDir = analyzeLogDir
		}
		if flags.Changed("report-dir") {
			cfg.ReportDir = analyzeReportDir
		}
		if flags.Changed("report-size") {
			cfg.ReportSize = analyzeReportSize
		}
		if flags.Changed("pattern") {
			cfg.LogPattern = analyzePattern
		}
		if flags.Changed("threshold") {
			cfg.ErrorPercentThreshold = analyzeThreshold
		}

		opts := analyzer.Options{
			LogDir:    cfg.LogDir,
			Pattern:   cfg.LogPattern,
			Threshold: cfg.ErrorPercentThreshold,
			Filter:    cfg.LineFilter,
		}
		writer := report.NewWriter(cfg.ReportDir, cfg.ReportSize)

		result, err := analyzer.Run(ctx, opts, writer)
		if err != nil {
			log.Errorf("❌ Analysis failed: %v", err)
			os.Exit(1)
		}

		rows := 0
		if result.Status == analyzer.StatusReported {
			rows = len(result.Metrics)
			if cfg.ReportSize > 0 && rows > cfg.ReportSize {
				rows = cfg.ReportSize
			}
		}
		exporter := metrics.NewExporter(&cfg.Metrics)
		exporter.Record(result, rows)
		exporter.Export(ctx)

		if result.Status == analyzer.StatusReported {
			size := uint64(0)
			if info, statErr := os.Stat(result.Log.Path); statErr == nil {
				size = uint64(info.Size())
			}
			malformedPct := 0.0
			if result.TotalLines > 0 {
				malformedPct = float64(result.MalformedLines) / float64(result.TotalLines) * 100
			}
			log.Infof("📊 Processed %s lines (%s) in %s, %s malformed, %d report rows",
				fmtutil.FormatNumberWithComma(uint64(result.TotalLines)),
				fmtutil.FormatBytes(size),
				fmtutil.FormatDuration(result.Elapsed),
				fmtutil.FormatPercent(malformedPct),
				rows)
		}

		if result.Status == analyzer.StatusParseFailed {
			os.Exit(2)
		}
	},
}

func init() {
	AnalyzeCmd.Flags().StringVar(&analyzeLogDir, "log-dir", "", "Override LOG_DIR for this run")
	AnalyzeCmd.Flags().StringVar(&analyzeReportDir, "report-dir", "", "Override REPORT_DIR for this run")
	AnalyzeCmd.Flags().IntVar(&analyzeReportSize, "report-size", 0, "Override REPORT_SIZE for this run")
	AnalyzeCmd.Flags().StringVar(&analyzePattern, "pattern", "", "Override FNMATCH_LOG_PATTERN for this run")
	AnalyzeCmd.Flags().Float64Var(&analyzeThreshold, "threshold", 0, "Override ERROR_PERCENT_THRESHOLD for this run")
}
