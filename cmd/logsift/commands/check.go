package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/livp123/logsift/internal/config"
	"github.com/livp123/logsift/internal/runtime"
)

var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and print effective settings",
	// Short: 校验配置并打印生效的设置
	Run: func(cmd *cobra.Command, args []string) {
		path := resolveConfigPath()

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) && runtime.ConfigPath == "" {
				fmt.Printf("No config file at %s, built-in defaults apply.\n\n", path)
				def := config.Default()
				printEffective(&def)
				return
			}
			fmt.Fprintf(os.Stderr, "❌ Cannot read %s: %v\n", path, err)
			os.Exit(1)
		}

		result, err := config.ValidateConfig(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Cannot parse %s: %v\n", path, err)
			os.Exit(1)
		}

		for _, w := range result.Warnings {
			fmt.Printf("⚠️  %s: %s (value: %v)\n", w.Field, w.Message, w.Value)
		}
		if !result.Valid {
			for _, e := range result.Errors {
				fmt.Fprintf(os.Stderr, "❌ %s: %s (value: %v)\n", e.Field, e.Message, e.Value)
			}
			os.Exit(1)
		}

		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to load %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("✅ %s is valid.\n\n", path)
		printEffective(cfg)
	},
}

func printEffective(cfg *config.Config) {
	fmt.Println("Effective settings:")
	fmt.Printf("  LOG_DIR:                 %s\n", cfg.LogDir)
	fmt.Printf("  REPORT_DIR:              %s\n", cfg.ReportDir)
	fmt.Printf("  REPORT_SIZE:             %d\n", cfg.ReportSize)
	fmt.Printf("  FNMATCH_LOG_PATTERN:     %s\n", cfg.LogPattern)
	fmt.Printf("  ERROR_PERCENT_THRESHOLD: %.2f\n", cfg.ErrorPercentThreshold)
	fmt.Printf("  LINE_FILTER:             %q\n", cfg.LineFilter)
	fmt.Printf("  logging:                 enabled=%t level=%s path=%s\n",
		cfg.Logging.Enabled, cfg.Logging.Level, cfg.Logging.Path)
	fmt.Printf("  metrics:                 enabled=%t textfile=%q push=%q\n",
		cfg.Metrics.Enabled, cfg.Metrics.TextfilePath, cfg.Metrics.PushGateway)
	fmt.Printf("  api.listen:              %s\n", cfg.API.Listen)
	fmt.Printf("  mcp.port:                %d\n", cfg.MCP.Port)
}
