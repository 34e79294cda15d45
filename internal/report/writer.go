// Package report 将排好序的 URL 统计渲染为带日期的 HTML 报告
// Package report renders ranked URL statistics into dated HTML report
// files. The report file's existence doubles as the completion marker
// for its log date: there is no separate run ledger.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/livp123/logsift/internal/analyzer"
	"github.com/livp123/logsift/internal/utils/fileutil"
	pkgerrors "github.com/livp123/logsift/pkg/errors"
)

// TemplateName is the custom template file looked up under the report
// directory. A missing file falls back to the built-in template.
const TemplateName = "report.html"

// row is one rendered table entry. Field order and key names are part
// of the report contract, the in-page JavaScript reads them verbatim.
type row struct {
	URL       string  `json:"url"`
	Count     int     `json:"count"`
	CountPerc float64 `json:"count_perc"`
	TimeSum   float64 `json:"time_sum"`
	TimePerc  float64 `json:"time_perc"`
	TimeAvg   float64 `json:"time_avg"`
	TimeMax   float64 `json:"time_max"`
	TimeMed   float64 `json:"time_med"`
}

// Writer 将一批 URL 统计写成一份报告文件
// Writer places dated reports under Dir, keeping at most Size rows per
// report. It satisfies the analyzer's ReportWriter contract.
type Writer struct {
	Dir  string
	Size int
}

// NewWriter returns a writer rooted at dir keeping size rows.
func NewWriter(dir string, size int) *Writer {
	return &Writer{Dir: dir, Size: size}
}

// Path returns the report location for a log date.
func (w *Writer) Path(date time.Time) string {
	return filepath.Join(w.Dir, fmt.Sprintf("report-%s.html", date.Format("2006.01.02")))
}

// Exists reports whether date's report has already been produced.
func (w *Writer) Exists(date time.Time) bool {
	if w.Dir == "" {
		return false
	}
	return fileutil.FileExists(w.Path(date))
}

// Write renders metrics into date's report and returns its path. Rows
// are sorted ascending by total time and only the last Size rows (the
// slowest endpoints) are kept, still in ascending order. The file is
// written atomically so a crashed run never leaves a half report that
// would pass the Exists check.
func (w *Writer) Write(metrics []analyzer.URLMetric, date time.Time) (string, error) {
	ranked := rank(metrics, w.Size)

	rows := make([]row, 0, len(ranked))
	for _, m := range ranked {
		rows = append(rows, row{
			URL:       m.URL,
			Count:     m.Count,
			CountPerc: round3(m.CountShare),
			TimeSum:   round3(m.TimeSum),
			TimePerc:  round3(m.TimeShare),
			TimeAvg:   round3(m.TimeAvg),
			TimeMax:   round3(m.TimeMax),
			TimeMed:   round3(m.TimeMedian),
		})
	}

	tableJSON, err := json.Marshal(rows)
	if err != nil {
		return "", pkgerrors.NewReportWriteError(w.Path(date), err)
	}

	tpl, err := w.template()
	if err != nil {
		return "", err
	}
	body := strings.Replace(tpl, "$table_json", string(tableJSON), 1)

	if err := fileutil.EnsureDir(w.Dir); err != nil {
		return "", pkgerrors.NewReportWriteError(w.Dir, err)
	}
	path := w.Path(date)
	if err := fileutil.AtomicWriteFile(path, []byte(body), 0o644); err != nil {
		return "", pkgerrors.NewReportWriteError(path, err)
	}
	return path, nil
}

// template prefers an operator-supplied report.html under Dir and falls
// back to the built-in one.
func (w *Writer) template() (string, error) {
	custom := filepath.Join(w.Dir, TemplateName)
	data, err := os.ReadFile(filepath.Clean(custom)) // #nosec G304 - path is the configured report dir
	if err != nil {
		if os.IsNotExist(err) {
			return defaultTemplate, nil
		}
		return "", pkgerrors.NewTemplateError(custom, err)
	}
	if !strings.Contains(string(data), "$table_json") {
		return "", pkgerrors.NewTemplateError(custom, fmt.Errorf("missing $table_json placeholder"))
	}
	return string(data), nil
}

// rank sorts ascending by TimeSum and keeps the tail: the size largest
// totals, in ascending order within the kept slice. The caller's slice
// is left untouched.
func rank(metrics []analyzer.URLMetric, size int) []analyzer.URLMetric {
	sorted := make([]analyzer.URLMetric, len(metrics))
	copy(sorted, metrics)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeSum < sorted[j].TimeSum
	})

	if size <= 0 || size >= len(sorted) {
		return sorted
	}
	return sorted[len(sorted)-size:]
}

// round3 rounds half away from zero to three decimals, the precision
// the report table displays.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
