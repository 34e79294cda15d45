package config

import (
	"fmt"
	"net"
	"path"
	"strings"

	"github.com/expr-lang/expr"
	"gopkg.in/yaml.v3"
)

// ValidationError represents a single validation error.
// ValidationError 表示单个验证错误。
type ValidationError struct {
	Field   string `json:"field"`   // Field path (e.g., "REPORT_SIZE")
	Message string `json:"message"` // Error message
	Value   any    `json:"value"`   // The invalid value (optional)
}

// ValidationWarning represents a potential issue that's not critical.
// ValidationWarning 表示非关键的潜在问题。
type ValidationWarning struct {
	Field   string `json:"field"`   // Field path
	Message string `json:"message"` // Warning message
	Value   any    `json:"value"`   // The value causing warning (optional)
}

// ValidationResult contains all validation errors and warnings.
// ValidationResult 包含所有验证错误和警告。
type ValidationResult struct {
	Valid    bool                `json:"valid"`    // Whether the config is valid
	Errors   []ValidationError   `json:"errors"`   // Critical errors
	Warnings []ValidationWarning `json:"warnings"` // Non-critical warnings
}

// AddError adds a validation error.
// AddError 添加验证错误。
func (r *ValidationResult) AddError(field, message string, value any) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
	r.Valid = false
}

// AddWarning adds a validation warning.
// AddWarning 添加验证警告。
func (r *ValidationResult) AddWarning(field, message string, value any) {
	r.Warnings = append(r.Warnings, ValidationWarning{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// Validate validates the entire configuration.
// Validate 验证整个配置。
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{Valid: true, Errors: []ValidationError{}, Warnings: []ValidationWarning{}}

	// Validate each section / 验证每个部分
	validateAnalyzer(cfg, result)
	validateLogging(cfg, result)
	validateMetrics(cfg, result)
	validateAPI(cfg, result)
	validateMCP(cfg, result)

	return result
}

// validateAnalyzer validates the analyzer options.
// validateAnalyzer 验证分析器选项。
func validateAnalyzer(cfg *Config, result *ValidationResult) {
	if cfg.LogDir == "" {
		result.AddError("LOG_DIR", "Log directory is required", nil)
	}
	if cfg.ReportDir == "" {
		result.AddError("REPORT_DIR", "Report directory is required", nil)
	}

	if cfg.ReportSize < 1 {
		result.AddError("REPORT_SIZE", "Report size must be at least 1", cfg.ReportSize)
	} else if cfg.ReportSize > 1000000 {
		result.AddWarning("REPORT_SIZE", "Very large report size may produce huge HTML files", cfg.ReportSize)
	}

	// Validate threshold range / 验证阈值范围
	if cfg.ErrorPercentThreshold < 0 || cfg.ErrorPercentThreshold > 100 {
		result.AddError("ERROR_PERCENT_THRESHOLD",
			"Threshold must be a percentage between 0 and 100", cfg.ErrorPercentThreshold)
	} else if cfg.ErrorPercentThreshold == 0 {
		// The gate compares with >=, so 0 fails even a fully well-formed file.
		// 门限使用 >= 比较，0 会让完全正常的文件也失败。
		result.AddWarning("ERROR_PERCENT_THRESHOLD",
			"Threshold 0 declares every run failed; use a small positive value instead", cfg.ErrorPercentThreshold)
	}

	// Validate glob syntax / 验证 glob 语法
	if cfg.LogPattern == "" {
		result.AddError("FNMATCH_LOG_PATTERN", "Filename glob is required", nil)
	} else if _, err := path.Match(cfg.LogPattern, "probe"); err != nil {
		result.AddError("FNMATCH_LOG_PATTERN",
			fmt.Sprintf("Invalid glob pattern: %v", err), cfg.LogPattern)
	}

	// Validate filter expression syntax; the typed check against the line env
	// happens when the run compiles it.
	// 验证过滤表达式语法；针对行环境的类型检查在运行编译时进行。
	if cfg.LineFilter != "" {
		if _, err := expr.Compile(cfg.LineFilter); err != nil {
			result.AddError("LINE_FILTER",
				fmt.Sprintf("Invalid expression: %v", err), cfg.LineFilter)
		}
	}
}

// validateLogging validates logging configuration.
// validateLogging 验证日志配置。
func validateLogging(cfg *Config, result *ValidationResult) {
	lc := &cfg.Logging

	// Validate log level / 验证日志级别
	if lc.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if strings.ToLower(lc.Level) == level {
				valid = true
				break
			}
		}
		if !valid {
			result.AddError("logging.level",
				fmt.Sprintf("Log level must be one of: %v", validLevels), lc.Level)
		}
	}

	if !lc.Enabled {
		return
	}

	// Validate path / 验证路径
	if lc.Path == "" {
		result.AddError("logging.path",
			"Log path is required when logging is enabled", nil)
	}

	// Validate max size / 验证最大大小
	if lc.MaxSize < 0 {
		result.AddError("logging.max_size_mb",
			"Max size cannot be negative", lc.MaxSize)
	} else if lc.MaxSize > 1000 {
		result.AddWarning("logging.max_size_mb",
			"Very large log file size may cause disk space issues", lc.MaxSize)
	}

	// Validate max backups / 验证最大备份数
	if lc.MaxBackups < 0 {
		result.AddError("logging.max_backups",
			"Max backups cannot be negative", lc.MaxBackups)
	}

	// Validate max age / 验证最大保留天数
	if lc.MaxAge < 0 {
		result.AddError("logging.max_age_days",
			"Max age cannot be negative", lc.MaxAge)
	}
}

// validateMetrics validates metrics configuration.
// validateMetrics 验证指标配置。
func validateMetrics(cfg *Config, result *ValidationResult) {
	mc := &cfg.Metrics
	if !mc.Enabled {
		return
	}

	if mc.TextfilePath == "" && mc.PushGateway == "" {
		result.AddWarning("metrics.enabled",
			"Metrics are enabled but neither textfile_path nor push_gateway is set", nil)
	}

	if mc.PushGateway != "" && mc.Job == "" {
		result.AddError("metrics.job",
			"Job name is required when push_gateway is set", nil)
	}
}

// validateAPI validates the scoring API configuration.
// validateAPI 验证评分 API 配置。
func validateAPI(cfg *Config, result *ValidationResult) {
	if cfg.API.Listen == "" {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.API.Listen); err != nil {
		result.AddError("api.listen",
			fmt.Sprintf("Invalid listen address: %v", err), cfg.API.Listen)
	}
}

// validateMCP validates the MCP configuration.
// validateMCP 验证 MCP 配置。
func validateMCP(cfg *Config, result *ValidationResult) {
	if cfg.MCP.Port != 0 && (cfg.MCP.Port < 1 || cfg.MCP.Port > 65535) {
		result.AddError("mcp.port",
			"Port must be between 1 and 65535", cfg.MCP.Port)
	}
}

// ValidateConfig validates a configuration from raw YAML data.
// ValidateConfig 从原始 YAML 数据验证配置。
func ValidateConfig(configData []byte) (*ValidationResult, error) {
	// First validate syntax / 首先验证语法
	var raw map[string]any
	if err := yaml.Unmarshal(configData, &raw); err != nil {
		result := &ValidationResult{Valid: true, Errors: []ValidationError{}, Warnings: []ValidationWarning{}}
		result.AddError("config", fmt.Sprintf("YAML syntax error: %v", err), nil)
		return result, nil
	}

	// Parse configuration over defaults / 在默认值之上解析配置
	cfg := Default()
	if err := yaml.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate parsed config / 验证解析后的配置
	return Validate(&cfg), nil
}
