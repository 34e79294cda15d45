package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/livp123/logsift/internal/config"
	"github.com/livp123/logsift/internal/report"
	"github.com/livp123/logsift/internal/utils/logger"
)

var initForce bool

var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file and report template",
	// Short: 写入默认配置文件和报告模板
	Long: `Write the commented default configuration to the config path and the
default HTML report template to REPORT_DIR. Existing files are left alone
unless --force is set.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get(cmd.Context())
		path := resolveConfigPath()

		if err := config.WriteDefault(path, initForce); err != nil {
			log.Errorf("❌ Failed to write config: %v", err)
			os.Exit(1)
		}
		log.Infof("✅ Config written to %s", path)

		cfg, err := config.Load(path)
		if err != nil {
			log.Errorf("❌ Failed to load freshly written config: %v", err)
			os.Exit(1)
		}
		tplPath, err := report.WriteTemplate(cfg.ReportDir, initForce)
		if err != nil {
			log.Errorf("❌ Failed to write report template: %v", err)
			os.Exit(1)
		}
		log.Infof("✅ Report template written to %s", tplPath)
	},
}

func init() {
	InitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config and template")
}
