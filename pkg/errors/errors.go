// Package errors 定义 logsift 各子系统共享的哨兵错误
// Package errors defines the sentinel errors shared across logsift
// subsystems. Callers branch with errors.Is; the constructors attach
// the offending path or measurement to the wrapped sentinel.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound  = errors.New("config not found")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrLogOpen         = errors.New("log file open failed")
	ErrParseGate       = errors.New("malformed line ratio over threshold")
	ErrEmptyInput      = errors.New("log file contains no lines")
	ErrFilterInvalid   = errors.New("invalid line filter expression")
	ErrTemplateInvalid = errors.New("invalid report template")
	ErrReportWrite     = errors.New("report write failed")
)

func NewConfigError(field, message string) error {
	return fmt.Errorf("%w: %s: %s", ErrConfigInvalid, field, message)
}

func NewLogOpenError(path string, reason error) error {
	return fmt.Errorf("%w: %s: %v", ErrLogOpen, path, reason)
}

func NewGateError(malformed, total int64, threshold float64) error {
	return fmt.Errorf("%w: %d of %d lines malformed, threshold %.2f%%", ErrParseGate, malformed, total, threshold)
}

func NewFilterError(expression string, reason error) error {
	return fmt.Errorf("%w: %q: %v", ErrFilterInvalid, expression, reason)
}

func NewTemplateError(path string, reason error) error {
	return fmt.Errorf("%w: %s: %v", ErrTemplateInvalid, path, reason)
}

func NewReportWriteError(path string, reason error) error {
	return fmt.Errorf("%w: %s: %v", ErrReportWrite, path, reason)
}
