// Command orch runs the chat orchestrator and offers one-shot access to
// its pipeline from the command line.
//
// Configuration is read from a YAML file (--config, ORCH_CONFIG,
// ./config.yaml or /etc/orch/config.yaml) with ORCH_* environment
// overrides. See pkg/config for the full list.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "orch",
	Short: "Chat orchestrator with MCP resource context",
	Long: `orch accepts chat messages over HTTP, optionally enriches them with the
content of a file or resource read through an MCP resource server, and
forwards the composed prompt to a completion service.

Run "orch serve" to start the HTTP server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")

	rootCmd.AddCommand(serveCmd, chatCmd, resourcesCmd)
	resourcesCmd.AddCommand(resourcesListCmd, resourcesReadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
