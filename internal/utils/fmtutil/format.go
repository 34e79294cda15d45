// Package fmtutil provides formatting utilities for human-readable output.
// Package fmtutil 提供用于人类可读输出的格式化工具。
package fmtutil

import (
	"fmt"
	"math"
	"time"
)

// FormatNumberWithComma formats a number with thousand separators.
// FormatNumberWithComma 格式化数字，添加千位分隔符。
func FormatNumberWithComma(n uint64) string {
	s := fmt.Sprintf("%d", n)
	result := ""
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}

// FormatBytes formats bytes to human readable format.
// FormatBytes 将字节格式化为可读格式。
func FormatBytes(b uint64) string {
	if b < 1024 {
		return fmt.Sprintf("%dB", b)
	}
	if b < 1048576 {
		return fmt.Sprintf("%.2fKB", float64(b)/1024)
	}
	if b < 1073741824 {
		return fmt.Sprintf("%.2fMB", float64(b)/1048576)
	}
	return fmt.Sprintf("%.2fGB", float64(b)/1073741824)
}

// FormatDuration formats a duration to human readable format.
// FormatDuration 将持续时间格式化为可读格式。
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	result := ""
	for i, part := range parts {
		if i > 0 {
			result += " "
		}
		result += part
	}
	return result
}

// FormatPercent formats a percentage value with proper precision.
// FormatPercent 格式化百分比值，使用适当的精度。
func FormatPercent(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", value)
}
