package config

import "github.com/livp123/logsift/internal/runtime"

const (
	// DefaultConfigPath is the standard location for the logsift configuration file.
	// DefaultConfigPath 是 logsift 配置文件的标准位置。
	DefaultConfigPath = "/etc/logsift/config.yaml"
)

// GetConfigPath resolves the configuration file path.
// It prioritizes the CLI flag (runtime.ConfigPath) over the default.
// GetConfigPath 解析配置文件路径。
// 优先使用 CLI 标志 (runtime.ConfigPath)，其次是默认值。
func GetConfigPath() string {
	if runtime.ConfigPath != "" {
		return runtime.ConfigPath
	}
	return DefaultConfigPath
}
