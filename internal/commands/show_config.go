// internal/commands/show_config.go
package capeval

import (
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
)

// showCmd groups inspection commands.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group commands for inspecting the loaded configuration",
}

// showConfigCmd displays the effective configuration after flag overrides.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = pp.Fprintln(cmd.OutOrStdout(), GetConfig())
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.AddCommand(showConfigCmd)
}
