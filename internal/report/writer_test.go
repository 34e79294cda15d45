package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livp123/logsift/internal/analyzer"
	pkgerrors "github.com/livp123/logsift/pkg/errors"
)

var reportDate = time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC)

func metric(url string, count int, timeSum float64) analyzer.URLMetric {
	return analyzer.URLMetric{
		URL:        url,
		Count:      count,
		CountShare: float64(count),
		TimeSum:    timeSum,
		TimeShare:  timeSum,
		TimeAvg:    timeSum / float64(count),
		TimeMax:    timeSum,
		TimeMedian: timeSum,
	}
}

// passthrough template turns the report file into bare row JSON.
func usePassthroughTemplate(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TemplateName), []byte("$table_json"), 0o644))
}

func readRows(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &rows))
	return rows
}

// TestWriter_Path tests report naming
// TestWriter_Path 测试报告文件命名
func TestWriter_Path(t *testing.T) {
	w := NewWriter("/srv/reports", 10)
	assert.Equal(t, filepath.Join("/srv/reports", "report-2017.06.30.html"), w.Path(reportDate))
}

// TestWriter_Exists tests the completion marker check
// TestWriter_Exists 测试完成标记检查
func TestWriter_Exists(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 10)

	assert.False(t, w.Exists(reportDate))

	_, err := w.Write(nil, reportDate)
	require.NoError(t, err)
	assert.True(t, w.Exists(reportDate))

	assert.False(t, NewWriter("", 10).Exists(reportDate))
}

// TestWriter_Write tests ranking, rounding and rendering
// TestWriter_Write 测试排序、舍入与渲染
func TestWriter_Write(t *testing.T) {
	t.Run("Keeps the slowest rows in ascending order", func(t *testing.T) {
		dir := t.TempDir()
		usePassthroughTemplate(t, dir)
		w := NewWriter(dir, 2)

		metrics := []analyzer.URLMetric{
			metric("/mid", 1, 5.0),
			metric("/slowest", 1, 9.0),
			metric("/fast", 1, 1.0),
		}

		path, err := w.Write(metrics, reportDate)
		require.NoError(t, err)

		rows := readRows(t, path)
		require.Len(t, rows, 2)
		assert.Equal(t, "/mid", rows[0]["url"])
		assert.Equal(t, "/slowest", rows[1]["url"])
	})

	t.Run("Rounds to three decimals", func(t *testing.T) {
		dir := t.TempDir()
		usePassthroughTemplate(t, dir)
		w := NewWriter(dir, 10)

		m := analyzer.URLMetric{
			URL:        "/a",
			Count:      3,
			CountShare: 100.0 / 3,
			TimeSum:    1.23456,
			TimeShare:  66.66666,
			TimeAvg:    0.0005,
			TimeMax:    0.99999,
			TimeMedian: 0.1,
		}

		path, err := w.Write([]analyzer.URLMetric{m}, reportDate)
		require.NoError(t, err)

		rows := readRows(t, path)
		require.Len(t, rows, 1)
		assert.InDelta(t, 33.333, rows[0]["count_perc"], 1e-9)
		assert.InDelta(t, 1.235, rows[0]["time_sum"], 1e-9)
		assert.InDelta(t, 66.667, rows[0]["time_perc"], 1e-9)
		assert.InDelta(t, 0.001, rows[0]["time_avg"], 1e-9)
		assert.InDelta(t, 1.0, rows[0]["time_max"], 1e-9)
		assert.Equal(t, float64(3), rows[0]["count"])
	})

	t.Run("Size zero keeps every row", func(t *testing.T) {
		dir := t.TempDir()
		usePassthroughTemplate(t, dir)
		w := NewWriter(dir, 0)

		path, err := w.Write([]analyzer.URLMetric{
			metric("/a", 1, 1),
			metric("/b", 1, 2),
		}, reportDate)
		require.NoError(t, err)
		assert.Len(t, readRows(t, path), 2)
	})

	t.Run("Empty metrics render an empty table", func(t *testing.T) {
		dir := t.TempDir()
		usePassthroughTemplate(t, dir)
		w := NewWriter(dir, 10)

		path, err := w.Write(nil, reportDate)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})

	t.Run("Built-in template substitutes the placeholder", func(t *testing.T) {
		dir := t.TempDir()
		w := NewWriter(dir, 10)

		path, err := w.Write([]analyzer.URLMetric{metric("/a", 1, 1)}, reportDate)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		body := string(data)
		assert.Contains(t, body, "<!DOCTYPE html>")
		assert.Contains(t, body, `"/a"`)
		assert.NotContains(t, body, "$table_json")
	})

	t.Run("Caller slice is not reordered", func(t *testing.T) {
		dir := t.TempDir()
		usePassthroughTemplate(t, dir)
		w := NewWriter(dir, 10)

		metrics := []analyzer.URLMetric{
			metric("/slow", 1, 9),
			metric("/fast", 1, 1),
		}
		_, err := w.Write(metrics, reportDate)
		require.NoError(t, err)
		assert.Equal(t, "/slow", metrics[0].URL)
	})

	t.Run("Template without placeholder is rejected", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, TemplateName), []byte("<html></html>"), 0o644))
		w := NewWriter(dir, 10)

		_, err := w.Write(nil, reportDate)
		assert.True(t, errors.Is(err, pkgerrors.ErrTemplateInvalid))
	})

	t.Run("No temp residue next to the report", func(t *testing.T) {
		dir := t.TempDir()
		w := NewWriter(dir, 10)

		_, err := w.Write([]analyzer.URLMetric{metric("/a", 1, 1)}, reportDate)
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasSuffix(e.Name(), ".tmp"),
				"leftover temp file %s", e.Name())
		}
	})
}

// TestWriteTemplate tests materializing the built-in template
// TestWriteTemplate 测试落盘内置模板
func TestWriteTemplate(t *testing.T) {
	t.Run("Creates the file", func(t *testing.T) {
		dir := t.TempDir()
		path, err := WriteTemplate(dir, false)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "$table_json")
	})

	t.Run("Refuses to clobber without force", func(t *testing.T) {
		dir := t.TempDir()
		_, err := WriteTemplate(dir, false)
		require.NoError(t, err)

		_, err = WriteTemplate(dir, false)
		assert.Error(t, err)
	})

	t.Run("Force replaces", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, TemplateName), []byte("old"), 0o644))

		path, err := WriteTemplate(dir, true)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotEqual(t, "old", string(data))
	})
}
