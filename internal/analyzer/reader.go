package analyzer

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/livp123/logsift/pkg/errors"
)

// Scanner sizing: lines longer than maxLineBytes abort the run as a
// read error rather than silently truncating a record.
const (
	initialLineBytes = 64 * 1024
	maxLineBytes     = 1024 * 1024
)

// LogReader 按行流式读取普通或 gzip 压缩的日志文件
// LogReader streams the lines of a plain or gzip-compressed log file.
// Decompression is transparent and keyed on the .gz suffix, matching
// how the rotation that produced the files names them. It satisfies
// LineSource; close it when done regardless of outcome.
type LogReader struct {
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
}

// OpenLog opens path for a single forward pass.
func OpenLog(path string) (*LogReader, error) {
	file, err := os.Open(filepath.Clean(path)) // #nosec G304 - path comes from the locator walk
	if err != nil {
		return nil, pkgerrors.NewLogOpenError(path, err)
	}

	r := &LogReader{file: file}
	var src io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, pkgerrors.NewLogOpenError(path, err)
		}
		r.gz = gz
		src = gz
	}

	r.scanner = bufio.NewScanner(src)
	r.scanner.Buffer(make([]byte, 0, initialLineBytes), maxLineBytes)
	return r, nil
}

// Scan advances to the next line.
func (r *LogReader) Scan() bool {
	return r.scanner.Scan()
}

// Text returns the current line without its trailing newline.
func (r *LogReader) Text() string {
	return r.scanner.Text()
}

// Err reports the first error hit by the scan, nil on clean EOF.
func (r *LogReader) Err() error {
	return r.scanner.Err()
}

// Close releases the decompressor and the underlying file.
func (r *LogReader) Close() error {
	var first error
	if r.gz != nil {
		if err := r.gz.Close(); err != nil {
			first = err
		}
	}
	if err := r.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
