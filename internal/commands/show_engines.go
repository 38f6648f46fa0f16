// internal/commands/show_engines.go
package capeval

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capeval/capeval/internal/enginefactory"
)

// showEnginesCmd lists the engines available from the configured hosts.
var showEnginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List the engines registered from the configured hosts",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := GetConfig()
		out := cmd.OutOrStdout()
		heading := color.New(color.FgCyan, color.Bold)

		fmt.Fprintln(out, heading.Sprint("Caption engines:"))
		for _, name := range enginefactory.CaptionRegistry(cfg).Names() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		fmt.Fprintln(out, heading.Sprint("LM engines:"))
		for _, name := range enginefactory.LMRegistry(cfg).Names() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		fmt.Fprintln(out, heading.Sprint("Plugins:"))
		for _, name := range enginefactory.PluginRegistry(cfg).Names() {
			fmt.Fprintf(out, "  %s\n", name)
		}
	},
}

func init() {
	showCmd.AddCommand(showEnginesCmd)
}
