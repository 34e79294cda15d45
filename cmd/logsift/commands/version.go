package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livp123/logsift/internal/version"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Show the current version of logsift`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("logsift %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}
