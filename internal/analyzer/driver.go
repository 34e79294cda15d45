package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/livp123/logsift/internal/utils/logger"
	pkgerrors "github.com/livp123/logsift/pkg/errors"
)

// Run 按固定状态机执行一次完整的分析:定位 → 去重检查 → 聚合 → 统计 → 写报告
// Run executes one full analysis pass: locate the latest log, skip the
// run when its report already exists, aggregate the lines, compute the
// statistics and hand them to the writer. Every early exit is terminal;
// retrying is the scheduler's business, never Run's.
//
// Soft outcomes (no input, already reported, parse gate) come back as a
// RunResult status with a nil error. Only environment failures (an
// unreadable file, a broken writer, an invalid filter or glob) surface
// as errors.
func Run(ctx context.Context, opts Options, writer ReportWriter) (*RunResult, error) {
	start := time.Now()
	log := logger.Get(ctx)
	log.Infof("🚀 Starting analysis of %s (pattern %q, threshold %.2f%%)",
		opts.LogDir, opts.Pattern, opts.Threshold)

	logFile, err := Locate(ctx, opts.LogDir, opts.Pattern)
	if err != nil {
		return nil, err
	}
	if logFile == nil {
		log.Infof("✅ No log matched under %s, nothing to do", opts.LogDir)
		return &RunResult{Status: StatusNoInput, Elapsed: time.Since(start)}, nil
	}

	if writer.Exists(logFile.Date) {
		log.Infof("✅ Report for %s already exists, skipping run",
			logFile.Date.Format("2006-01-02"))
		return &RunResult{Status: StatusAlreadyReported, Log: logFile, Elapsed: time.Since(start)}, nil
	}

	filter, err := CompileLineFilter(opts.Filter)
	if err != nil {
		return nil, err
	}

	reader, err := OpenLog(logFile.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	agg := NewAggregator(NewLineParser(), filter, opts.Threshold)
	state, err := agg.Aggregate(ctx, reader)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrParseGate) || errors.Is(err, pkgerrors.ErrEmptyInput) {
			log.Warnf("⚠️ Run for %s failed the parse gate: %v", logFile.Name, err)
			return &RunResult{
				Status:         StatusParseFailed,
				Log:            logFile,
				TotalLines:     state.TotalLines,
				MalformedLines: state.MalformedLines,
				Elapsed:        time.Since(start),
			}, nil
		}
		return nil, err
	}

	metrics := Compute(state)

	reportPath, err := writer.Write(metrics, logFile.Date)
	if err != nil {
		return nil, err
	}

	log.Infof("✅ Report written to %s (%d URLs from %d lines)",
		reportPath, len(metrics), state.TotalLines)
	return &RunResult{
		Status:         StatusReported,
		Log:            logFile,
		Metrics:        metrics,
		ReportPath:     reportPath,
		TotalLines:     state.TotalLines,
		MalformedLines: state.MalformedLines,
		Elapsed:        time.Since(start),
	}, nil
}
