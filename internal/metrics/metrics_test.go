package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livp123/logsift/internal/analyzer"
	"github.com/livp123/logsift/internal/config"
)

func sampleResult() *analyzer.RunResult {
	return &analyzer.RunResult{
		Status: analyzer.StatusReported,
		Log: &analyzer.LogFile{
			Name: "nginx-access-ui.log-20170630",
			Date: time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC),
		},
		Metrics:        []analyzer.URLMetric{{URL: "/a"}, {URL: "/b"}},
		TotalLines:     100,
		MalformedLines: 2,
		Elapsed:        1500 * time.Millisecond,
	}
}

// TestExporter_TextfileExport tests the node_exporter textfile path
// TestExporter_TextfileExport 测试 node_exporter textfile 导出
func TestExporter_TextfileExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logsift.prom")
	e := NewExporter(&config.MetricsConfig{Enabled: true, TextfilePath: path})

	e.Record(sampleResult(), 2)
	e.Export(context.Background())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)

	assert.Contains(t, body, `logsift_run_info{log_date="2017-06-30",status="reported"} 1`)
	assert.Contains(t, body, "logsift_lines_total 100")
	assert.Contains(t, body, "logsift_lines_malformed 2")
	assert.Contains(t, body, "logsift_urls_distinct 2")
	assert.Contains(t, body, "logsift_report_rows 2")
	assert.Contains(t, body, "logsift_run_duration_seconds 1.5")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should have been renamed away")
}

// TestExporter_RecordReplacesRunInfo a new run clears the previous series
// TestExporter_RecordReplacesRunInfo 新一次运行应替换旧的状态序列
func TestExporter_RecordReplacesRunInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logsift.prom")
	e := NewExporter(&config.MetricsConfig{Enabled: true, TextfilePath: path})

	e.Record(sampleResult(), 2)

	second := &analyzer.RunResult{Status: analyzer.StatusNoInput, Elapsed: time.Millisecond}
	e.Record(second, 0)
	e.Export(context.Background())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)

	assert.Contains(t, body, `logsift_run_info{log_date="",status="no_input"} 1`)
	assert.NotContains(t, body, `status="reported"`)
}

// TestExporter_Disabled does nothing when metrics are off
// TestExporter_Disabled 关闭时不应有任何输出
func TestExporter_Disabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logsift.prom")
	e := NewExporter(&config.MetricsConfig{Enabled: false, TextfilePath: path})

	e.Record(sampleResult(), 2)
	e.Export(context.Background())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// TestExporter_PushFailureIsSoft an unreachable gateway must not error out
// TestExporter_PushFailureIsSoft 推送失败不应中断流程
func TestExporter_PushFailureIsSoft(t *testing.T) {
	e := NewExporter(&config.MetricsConfig{Enabled: true, PushGateway: "http://127.0.0.1:1"})

	e.Record(sampleResult(), 2)
	assert.NotPanics(t, func() {
		e.Export(context.Background())
	})
}
