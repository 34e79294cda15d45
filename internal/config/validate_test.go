package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidate_Defaults tests that the default config validates cleanly
// TestValidate_Defaults 测试默认配置通过验证
func TestValidate_Defaults(t *testing.T) {
	cfg := Default()
	result := Validate(&cfg)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

// TestValidate_Analyzer tests analyzer option validation
// TestValidate_Analyzer 测试分析器选项验证
func TestValidate_Analyzer(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantValid bool
	}{
		{
			name:      "empty log dir",
			mutate:    func(c *Config) { c.LogDir = "" },
			wantField: "LOG_DIR",
		},
		{
			name:      "empty report dir",
			mutate:    func(c *Config) { c.ReportDir = "" },
			wantField: "REPORT_DIR",
		},
		{
			name:      "zero report size",
			mutate:    func(c *Config) { c.ReportSize = 0 },
			wantField: "REPORT_SIZE",
		},
		{
			name:      "negative threshold",
			mutate:    func(c *Config) { c.ErrorPercentThreshold = -1 },
			wantField: "ERROR_PERCENT_THRESHOLD",
		},
		{
			name:      "threshold over 100",
			mutate:    func(c *Config) { c.ErrorPercentThreshold = 101 },
			wantField: "ERROR_PERCENT_THRESHOLD",
		},
		{
			name:      "empty glob",
			mutate:    func(c *Config) { c.LogPattern = "" },
			wantField: "FNMATCH_LOG_PATTERN",
		},
		{
			name:      "malformed glob",
			mutate:    func(c *Config) { c.LogPattern = "nginx-[" },
			wantField: "FNMATCH_LOG_PATTERN",
		},
		{
			name:      "malformed filter expression",
			mutate:    func(c *Config) { c.LineFilter = "Url ~~ nonsense((" },
			wantField: "LINE_FILTER",
		},
		{
			name:      "valid filter expression",
			mutate:    func(c *Config) { c.LineFilter = `URL startsWith "/health"` },
			wantValid: true,
		},
		{
			name:      "boundary threshold 100 is allowed",
			mutate:    func(c *Config) { c.ErrorPercentThreshold = 100 },
			wantValid: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			result := Validate(&cfg)
			if tc.wantValid {
				assert.True(t, result.Valid)
				return
			}
			require.False(t, result.Valid)
			found := false
			for _, e := range result.Errors {
				if e.Field == tc.wantField {
					found = true
					break
				}
			}
			assert.True(t, found, "expected an error for field %s, got %+v", tc.wantField, result.Errors)
		})
	}
}

// TestValidate_ZeroThresholdWarns tests the >= gate footgun warning
// TestValidate_ZeroThresholdWarns 测试 >= 门限为 0 的警告
func TestValidate_ZeroThresholdWarns(t *testing.T) {
	cfg := Default()
	cfg.ErrorPercentThreshold = 0
	result := Validate(&cfg)

	// Zero is within range, so still valid, but warned about
	// 0 在范围内，因此仍然有效，但会给出警告
	assert.True(t, result.Valid)
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, "ERROR_PERCENT_THRESHOLD", result.Warnings[0].Field)
}

// TestValidate_Logging tests logging validation
// TestValidate_Logging 测试日志验证
func TestValidate_Logging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	result := Validate(&cfg)
	assert.False(t, result.Valid)

	cfg = Default()
	cfg.Logging.Enabled = true
	cfg.Logging.Path = ""
	result = Validate(&cfg)
	assert.False(t, result.Valid)

	cfg = Default()
	cfg.Logging.Enabled = true
	cfg.Logging.MaxBackups = -1
	result = Validate(&cfg)
	assert.False(t, result.Valid)
}

// TestValidate_Metrics tests metrics validation
// TestValidate_Metrics 测试指标验证
func TestValidate_Metrics(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = true
	result := Validate(&cfg)
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings, "no export target should warn")

	cfg.Metrics.PushGateway = "pushgw:9091"
	cfg.Metrics.Job = ""
	result = Validate(&cfg)
	assert.False(t, result.Valid)
}

// TestValidate_API tests listen address validation
// TestValidate_API 测试监听地址验证
func TestValidate_API(t *testing.T) {
	cfg := Default()
	cfg.API.Listen = "no-port-here"
	result := Validate(&cfg)
	assert.False(t, result.Valid)

	cfg.API.Listen = ":8080"
	result = Validate(&cfg)
	assert.True(t, result.Valid)
}

// TestValidate_MCP tests MCP port validation
// TestValidate_MCP 测试 MCP 端口验证
func TestValidate_MCP(t *testing.T) {
	cfg := Default()
	cfg.MCP.Port = 70000
	result := Validate(&cfg)
	assert.False(t, result.Valid)
}

// TestValidateConfig_Syntax tests raw YAML validation
// TestValidateConfig_Syntax 测试原始 YAML 验证
func TestValidateConfig_Syntax(t *testing.T) {
	result, err := ValidateConfig([]byte("REPORT_SIZE: [unclosed"))
	require.NoError(t, err)
	assert.False(t, result.Valid)

	result, err = ValidateConfig([]byte("REPORT_SIZE: 10\n"))
	require.NoError(t, err)
	assert.True(t, result.Valid)
}
