package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/livp123/logsift/internal/config"
	"github.com/livp123/logsift/internal/runtime"
	"github.com/livp123/logsift/internal/utils/logger"
)

var RootCmd = &cobra.Command{
	Use:   "logsift",
	Short: "Nginx access log analyzer",
	// Short: nginx 访问日志分析器
	Long: `logsift scans a log directory for the newest nginx access log, aggregates
per-URL request times and renders an HTML report of the slowest URLs.
logsift 扫描日志目录中最新的 nginx 访问日志，聚合每个 URL 的请求耗时，
并渲染最慢 URL 的 HTML 报告。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load configuration to get logging settings
		// 加载配置以获取日志设置
		cfg, err := loadConfig()
		if err != nil {
			// If config fails to load, use default logging config (console only)
			// 如果加载配置失败，使用默认日志配置（仅控制台）
			logger.Init(logger.LoggingConfig{
				Enabled: true,
				Level:   "info",
			})
		} else {
			logger.Init(cfg.Logging)
		}

		// Inject logger into context
		// 将 Logger 注入 Context
		ctx := logger.WithContext(cmd.Context(), logger.Get(nil))
		cmd.SetContext(ctx)
	},
}

func init() {
	// Config file path
	// 配置文件路径
	RootCmd.PersistentFlags().StringVarP(&runtime.ConfigPath, "config", "c", "",
		fmt.Sprintf("Path to configuration file (default: %s)", config.DefaultConfigPath))

	RootCmd.AddCommand(AnalyzeCmd)
	RootCmd.AddCommand(InitCmd)
	RootCmd.AddCommand(CheckCmd)
	RootCmd.AddCommand(VersionCmd)
}

// resolveConfigPath returns the config file path, honoring the --config flag.
// resolveConfigPath 返回配置文件路径，优先使用 --config 标志。
func resolveConfigPath() string {
	if runtime.ConfigPath != "" {
		return runtime.ConfigPath
	}
	return config.GetConfigPath()
}

// loadConfig loads the effective configuration. An explicitly flagged path
// must exist; the default path falls back to built-in defaults when absent.
func loadConfig() (*config.Config, error) {
	path := resolveConfigPath()
	if runtime.ConfigPath == "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg := config.Default()
			return &cfg, nil
		}
	}
	return config.Load(path)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
