package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/livp123/logsift/internal/utils/fileutil"
	"github.com/livp123/logsift/internal/utils/logger"
	pkgerrors "github.com/livp123/logsift/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfigMu protects concurrent access to the configuration file.
// ConfigMu 保护对配置文件的并发访问。
var ConfigMu sync.RWMutex

// DefaultConfigTemplate defines the default configuration file structure with bilingual comments.
// This template is used to initialize new config files and to repair missing sections in existing files
// while preserving documentation.
const DefaultConfigTemplate = `# logsift Configuration File / logsift 配置文件
#
# Analyzer options keep their historical uppercase names so existing
# JSON/YAML deployment configs keep working unchanged (JSON is valid YAML).
# 分析器选项保留历史大写名称，现有 JSON/YAML 部署配置无需修改即可继续使用。

# Directory scanned recursively for candidate access logs.
# 递归扫描候选访问日志的目录。
LOG_DIR: "./log"

# Directory where HTML reports are written.
# HTML 报告的输出目录。
REPORT_DIR: "./reports"

# Maximum number of rows kept in a report.
# 报告中保留的最大行数。
REPORT_SIZE: 1000

# Shell glob that candidate file names must match.
# 候选文件名必须匹配的 shell glob。
FNMATCH_LOG_PATTERN: "nginx-access-ui.log-*"

# Abort the run when malformed lines reach this percentage of all lines.
# 当畸形行达到全部行数的该百分比时中止运行。
ERROR_PERCENT_THRESHOLD: 5

# Optional boolean expression selecting which parsed lines to aggregate.
# Lines it rejects still count toward the total. Empty = keep everything.
# Fields: URL, Duration. Helpers: Match, Contains, IContains, Prefix, Suffix.
# 可选的布尔表达式，用于选择哪些已解析的行参与聚合。
# 被排除的行仍计入总数。为空 = 全部保留。
# Example / 示例: '!Prefix("/health") && Duration < 60.0'
LINE_FILTER: ""

# Logging Configuration / 日志配置
logging:
  enabled: false
  # Log file path (empty = stdout) / 日志文件路径（为空时输出到 stdout）
  path: "/var/log/logsift/logsift.log"
  # Log level (debug, info, warn, error) / 日志级别
  level: "info"
  # Max size in MB before rotation / 轮转前的最大大小 (MB)
  max_size_mb: 10
  # Max number of old files to keep / 保留的旧文件最大数量
  max_backups: 3
  # Max number of days to keep old files / 保留旧文件的最大天数
  max_age_days: 30
  # Whether to compress old files / 是否压缩旧文件
  compress: true

# Metrics Configuration / 监控指标配置
# Batch runs export once on completion; the API daemon serves /metrics itself.
# 批处理运行在完成时导出一次；API 守护进程自带 /metrics。
metrics:
  enabled: false
  # Prometheus text exposition file for the node_exporter textfile collector.
  # 为 node_exporter textfile 收集器写入的 Prometheus 文本文件。
  textfile_path: ""
  # Pushgateway address to push run metrics to (empty = off).
  # 运行指标推送到的 Pushgateway 地址（为空 = 关闭）。
  push_gateway: ""
  # Job name used for pushes / 推送使用的任务名
  job: "logsift"

# Scoring API Configuration / 评分 API 配置
api:
  listen: ":8080"

# MCP Configuration / MCP 配置
mcp:
  port: 11852
  token: ""
`

// Config represents the top-level configuration structure.
// Analyzer options use their historical uppercase keys; service sections are
// lowercase.
// Config 表示顶级配置结构。
// 分析器选项使用历史大写键名，服务部分使用小写。
type Config struct {
	LogDir                string  `yaml:"LOG_DIR"`
	ReportDir             string  `yaml:"REPORT_DIR"`
	ReportSize            int     `yaml:"REPORT_SIZE"`
	LogPattern            string  `yaml:"FNMATCH_LOG_PATTERN"`
	ErrorPercentThreshold float64 `yaml:"ERROR_PERCENT_THRESHOLD"`
	LineFilter            string  `yaml:"LINE_FILTER"`

	Logging logger.LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig        `yaml:"metrics"`
	API     APIConfig            `yaml:"api"`
	MCP     MCPConfig            `yaml:"mcp"`
}

// MetricsConfig defines the configuration for run metrics export.
// MetricsConfig 定义运行指标导出配置。
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Prometheus text exposition file path / Prometheus 文本格式文件路径
	TextfilePath string `yaml:"textfile_path"`
	// Pushgateway address / Pushgateway 地址
	PushGateway string `yaml:"push_gateway"`
	// Push job name / 推送任务名
	Job string `yaml:"job"`
}

// APIConfig defines the configuration for the scoring API daemon.
// APIConfig 定义评分 API 守护进程配置。
type APIConfig struct {
	Listen string `yaml:"listen"`
}

// MCPConfig defines the configuration for Model Context Protocol.
// MCPConfig 定义模型上下文协议 (MCP) 配置。
type MCPConfig struct {
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

// Default returns the configuration used when no file overrides anything.
// Default 返回在没有任何文件覆盖时使用的配置。
func Default() Config {
	return Config{
		LogDir:                "./log",
		ReportDir:             "./reports",
		ReportSize:            1000,
		LogPattern:            "nginx-access-ui.log-*",
		ErrorPercentThreshold: 5,
		LineFilter:            "",
		Logging: logger.LoggingConfig{
			Enabled:    false,
			Path:       "/var/log/logsift/logsift.log",
			Level:      "info",
			MaxSize:    10, // 10MB
			MaxBackups: 3,
			MaxAge:     30, // 30 days
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Job:     "logsift",
		},
		API: APIConfig{
			Listen: ":8080",
		},
		MCP: MCPConfig{
			Port: 11852,
		},
	}
}

// Load loads the configuration from a YAML (or JSON) file.
// Load 从 YAML（或 JSON）文件加载配置。
func Load(path string) (*Config, error) {
	safePath := filepath.Clean(path) // Sanitize path to prevent directory traversal
	data, err := os.ReadFile(safePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", pkgerrors.ErrConfigNotFound, safePath)
		}
		return nil, err
	}

	// Initialize with defaults, then let the file override.
	// 使用默认值初始化，再由文件覆盖。
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrConfigInvalid, err)
	}

	// Validate configuration / 验证配置
	if result := Validate(&cfg); !result.Valid {
		return nil, pkgerrors.NewConfigError(result.Errors[0].Field, result.Errors[0].Message)
	}

	// Check for missing keys and update file if needed
	checkForUpdates(path, data)

	return &cfg, nil
}

// checkForUpdates repairs the config file structure against the template,
// keeping the user's values and preserving comments.
// checkForUpdates 按模板修复配置文件结构，保留用户的值与注释。
func checkForUpdates(path string, data []byte) {
	log := logger.Get(nil)
	// 1. Unmarshal default config (TEMPLATE) to Node (Source of Truth for structure & comments)
	// We use DefaultConfigTemplate instead of marshaling cfg to preserve comments.
	var defaultNode yaml.Node
	if err := yaml.Unmarshal([]byte(DefaultConfigTemplate), &defaultNode); err != nil {
		log.Warnf("[WARN]  Failed to parse default config template: %v", err)
		return
	}

	// 2. Unmarshal existing file to Node (Target to update)
	var fileNode yaml.Node
	if err := yaml.Unmarshal(data, &fileNode); err != nil {
		log.Warnf("[WARN]  Config file seems malformed, skipping auto-update check: %v", err)
		return
	}

	// 3. Merge missing keys from defaultNode into fileNode.
	// defaultNode has comments, fileNode has user values; after the merge
	// defaultNode carries structure + comments + user values + user extra keys.
	MergeYamlNodes(&defaultNode, &fileNode)

	// Check if content changed before writing
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&defaultNode); err != nil {
		log.Warnf("[ERROR] Failed to encode updated config: %v", err)
		return
	}

	if bytes.Equal(buf.Bytes(), data) {
		// No changes (including comments), skip write
		return
	}

	log.Infof("[RELOAD] Refreshing configuration file structure and comments...")

	// Backup original
	backupPath := path + ".bak." + time.Now().Format("20060102-150405")
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		log.Warnf("[WARN]  Failed to backup config file, skipping update: %v", err)
		return
	}

	// Cleanup old backups (Keep latest 3) / 清理旧备份（保留最近 3 个）
	cleanupBackups(path, 3)

	// Write new config (defaultNode now contains merged state)
	// yaml.v3 Encoder adds a newline
	if err := fileutil.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		log.Warnf("[ERROR] Failed to update config file: %v", err)
	} else {
		log.Infof("[OK] Configuration file updated (comments restored/preserved).")
	}
}

// Save writes cfg to path, preserving comments of an existing file.
// Save 将 cfg 写入 path，并保留现有文件的注释。
func Save(path string, cfg *Config) error {
	// 1. Marshal new config to Node
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var newNode yaml.Node
	if unmarshalErr := yaml.Unmarshal(data, &newNode); unmarshalErr != nil {
		return unmarshalErr
	}

	// 2. Read existing file to Node (if exists)
	safePath := filepath.Clean(path) // Sanitize path to prevent directory traversal
	fileData, readErr := os.ReadFile(safePath)
	if readErr == nil {
		var fileNode yaml.Node
		if unmarshalErr := yaml.Unmarshal(fileData, &fileNode); unmarshalErr == nil {
			// 3. Merge new config INTO file config (preserving comments)
			MergeYamlNodes(&fileNode, &newNode)

			// Encode back
			var buf bytes.Buffer
			enc := yaml.NewEncoder(&buf)
			enc.SetIndent(2)
			if encodeErr := enc.Encode(&fileNode); encodeErr != nil {
				return encodeErr
			}
			return fileutil.AtomicWriteFile(path, buf.Bytes(), 0600)
		}
	}

	// Fallback if file doesn't exist or is malformed: just write the new config
	return fileutil.AtomicWriteFile(path, data, 0600)
}

// WriteDefault materializes the default config template at path.
// Existing files are left alone unless force is set.
// WriteDefault 在 path 写入默认配置模板。
// 除非设置 force，否则不改动已存在的文件。
func WriteDefault(path string, force bool) error {
	safePath := filepath.Clean(path)
	if !force {
		if _, err := os.Stat(safePath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", safePath)
		}
	}
	if err := fileutil.EnsureDir(filepath.Dir(safePath)); err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(safePath, []byte(DefaultConfigTemplate), 0600)
}

// MergeYamlNodes updates target (existing file) with source (new config).
// It preserves comments from target where possible.
func MergeYamlNodes(target, source *yaml.Node) {
	if target.Kind == yaml.DocumentNode {
		if source.Kind == yaml.DocumentNode {
			MergeYamlNodes(target.Content[0], source.Content[0])
		}
		return
	}

	if target.Kind != yaml.MappingNode || source.Kind != yaml.MappingNode {
		// Replace target with source, but try to keep comments
		// Copy comments from target (old) to source (new)
		if source.HeadComment == "" {
			source.HeadComment = target.HeadComment
		}
		if source.LineComment == "" {
			source.LineComment = target.LineComment
		}
		if source.FootComment == "" {
			source.FootComment = target.FootComment
		}

		*target = *source
		return
	}

	// Both are MappingNodes.
	// We want to preserve Target's structure/comments (Default Config)
	// and update it with Source's values (User Config).
	// We also want to keep any extra keys from Source that are not in Target.

	// 1. Map Source keys for lookup
	sourceMap := make(map[string]int)
	for i := 0; i < len(source.Content); i += 2 {
		sourceMap[source.Content[i].Value] = i
	}

	var newContent []*yaml.Node
	processedSourceKeys := make(map[string]bool)

	// 2. Iterate Target (Default) keys
	for i := 0; i < len(target.Content); i += 2 {
		tKey := target.Content[i]
		tVal := target.Content[i+1]

		if sIdx, ok := sourceMap[tKey.Value]; ok {
			// Key exists in Source: Merge Source value into Target value
			sVal := source.Content[sIdx+1]
			MergeYamlNodes(tVal, sVal)
			processedSourceKeys[tKey.Value] = true
		}
		// Always append Target key/value (to keep comments and order)
		newContent = append(newContent, tKey, tVal)
	}

	// 3. Append keys from Source that were not in Target
	for i := 0; i < len(source.Content); i += 2 {
		sKey := source.Content[i]
		sVal := source.Content[i+1]
		if !processedSourceKeys[sKey.Value] {
			newContent = append(newContent, sKey, sVal)
		}
	}

	target.Content = newContent
}

// cleanupBackups keeps only the latest N backup files.
func cleanupBackups(originalPath string, keep int) {
	log := logger.Get(nil)
	dir := filepath.Dir(originalPath)
	baseName := filepath.Base(originalPath)
	pattern := baseName + ".bak.*"

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return
	}

	if len(matches) <= keep {
		return
	}

	// Sort by name (timestamp allows chronological sorting)
	sort.Strings(matches)

	// Remove oldest
	toRemove := matches[:len(matches)-keep]
	for _, f := range toRemove {
		if err := os.Remove(f); err == nil {
			log.Infof("[DELETE] Removed old backup: %s", f)
		}
	}
}
