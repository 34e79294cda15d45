// Package analyzer 实现访问日志分析流水线:日志发现、容错解析、单遍聚合与阈值门控
// Package analyzer implements the access-log analysis pipeline: log
// discovery, tolerant line parsing, single-pass aggregation and the
// malformed-line threshold gate. The pipeline reads exactly one log
// file per run and hands ranked per-URL statistics to a report writer.
package analyzer

import (
	"time"
)

// LogFile 标识一次运行选中的唯一输入文件
// LogFile identifies the single input file selected for a run. The date
// is derived from the file name, never from file metadata, and names
// both the run and its report. Immutable once constructed.
type LogFile struct {
	Name string
	Path string
	Date time.Time
}

// ParsedLine 是一条格式良好的访问日志记录,只保留聚合需要的两个字段
// ParsedLine is one well-formed access-log record reduced to the two
// fields aggregation cares about. Produced per line and folded into the
// aggregate immediately, never retained.
type ParsedLine struct {
	URL      string
	Duration float64
}

// AggregateState 持有一次运行的逐 URL 耗时样本与行计数
// AggregateState holds the per-URL duration samples and line tallies of
// one run. It is owned by the Aggregator while the stream is being
// consumed and read-only afterwards. URLs are remembered in first-seen
// order so repeated runs over the same input produce identical output.
type AggregateState struct {
	perURL map[string][]float64
	order  []string

	TotalLines     int64
	MalformedLines int64
}

// NewAggregateState returns an empty state ready for one run.
func NewAggregateState() *AggregateState {
	return &AggregateState{perURL: make(map[string][]float64)}
}

// Add appends one duration sample for url, creating its sample list on
// first sight.
func (s *AggregateState) Add(url string, duration float64) {
	if _, seen := s.perURL[url]; !seen {
		s.order = append(s.order, url)
	}
	s.perURL[url] = append(s.perURL[url], duration)
}

// URLs returns the distinct URLs in first-seen order. The returned
// slice is shared, callers must not modify it.
func (s *AggregateState) URLs() []string {
	return s.order
}

// Durations returns the duration samples recorded for url, nil when the
// url was never seen. The returned slice is shared, callers must not
// modify it.
func (s *AggregateState) Durations(url string) []float64 {
	return s.perURL[url]
}

// Distinct returns the number of distinct URLs seen.
func (s *AggregateState) Distinct() int {
	return len(s.order)
}

// URLMetric 是报告中的一行:单个 URL 的汇总统计
// URLMetric is one report row: the summary statistics of a single URL.
// All figures are unrounded, presentation decides how to format them.
type URLMetric struct {
	URL        string
	Count      int
	CountShare float64
	TimeSum    float64
	TimeShare  float64
	TimeAvg    float64
	TimeMax    float64
	TimeMedian float64
}

// RunStatus 描述一次流水线运行的终态
// RunStatus classifies how a pipeline run ended. Every status is
// terminal, the driver never retries: re-running is the scheduler's
// job.
type RunStatus string

const (
	// StatusReported means a report was produced for the located log.
	StatusReported RunStatus = "reported"
	// StatusNoInput means no log file matched, there was nothing to do.
	StatusNoInput RunStatus = "no_input"
	// StatusAlreadyReported means the located log's report already
	// exists, the run was skipped before any parsing.
	StatusAlreadyReported RunStatus = "already_reported"
	// StatusParseFailed means the malformed-line gate tripped and the
	// partial aggregate was discarded.
	StatusParseFailed RunStatus = "parse_failed"
)

// RunResult 是一次运行返回给调用方的终值
// RunResult is the terminal value of one pipeline run.
type RunResult struct {
	Status         RunStatus
	Log            *LogFile
	Metrics        []URLMetric
	ReportPath     string
	TotalLines     int64
	MalformedLines int64
	Elapsed        time.Duration
}

// Options 是一次运行的输入参数,由配置层映射而来
// Options carries the per-run inputs mapped from configuration by the
// caller. Report placement and sizing belong to the ReportWriter, not
// here.
type Options struct {
	// LogDir is the directory tree searched for candidate logs.
	LogDir string
	// Pattern is the shell-style glob candidate names must match.
	Pattern string
	// Threshold is the malformed-line ceiling in percent. A run whose
	// malformed ratio reaches it is declared failed.
	Threshold float64
	// Filter is an optional expression over parsed lines; lines it
	// rejects are dropped from aggregation but still counted. Empty
	// means keep everything.
	Filter string
}

// LineSource 是单遍、惰性的文本行序列
// LineSource is a lazy, forward-only sequence of raw text lines,
// consumed at most once. *LogReader satisfies it for real files, tests
// substitute slice-backed fakes.
type LineSource interface {
	Scan() bool
	Text() string
	Err() error
}

// ReportWriter 由报告层实现:存在性检查与渲染写出
// ReportWriter is implemented by the report layer. Exists is consulted
// before any parsing so an already-reported date skips the whole run;
// Write renders the ranked rows and returns the report path.
type ReportWriter interface {
	Exists(date time.Time) bool
	Write(metrics []URLMetric, date time.Time) (string, error)
}
