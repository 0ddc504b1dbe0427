package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sandbox-llm/orch/pkg/api"
)

var resourcesJSON bool

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Inspect the resources offered by the resource server",
}

var resourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources",
	Args:  cobra.NoArgs,
	RunE:  runResourcesList,
}

var resourcesReadCmd = &cobra.Command{
	Use:   "read <uri-or-path>",
	Short: "Read one resource",
	Long: `Reads one resource through the bridge. An argument containing "://"
is used as a URI; anything else is a file path relative to the bridge root.`,
	Args: cobra.ExactArgs(1),
	RunE: runResourcesRead,
}

func init() {
	resourcesCmd.PersistentFlags().BoolVar(&resourcesJSON, "json", false, "print JSON")
}

func newBridgedApp(cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Bridge.Enabled {
		return nil, errors.New("resource bridge is disabled in the configuration")
	}
	return newApp(contextOrBackground(cmd), cfg, logger)
}

func runResourcesList(cmd *cobra.Command, _ []string) error {
	a, err := newBridgedApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	resources, err := a.orchestrator.Resources(contextOrBackground(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resourcesJSON {
		return json.NewEncoder(out).Encode(api.ResourceList{Resources: resources})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "URI\tNAME\tMIME TYPE\tSIZE")
	for _, r := range resources {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.URI, r.Name, r.MIMEType, r.Size)
	}
	return tw.Flush()
}

func runResourcesRead(cmd *cobra.Command, args []string) error {
	a, err := newBridgedApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	file, resource := args[0], ""
	if strings.Contains(args[0], "://") {
		file, resource = "", args[0]
	}
	uri, apiErr := a.orchestrator.ResolveURI(file, resource)
	if apiErr != nil {
		return apiErr
	}

	content, err := a.orchestrator.ReadResource(contextOrBackground(cmd), uri)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case resourcesJSON:
		return json.NewEncoder(out).Encode(content)
	case content.Binary:
		fmt.Fprintf(out, "[binary resource %s (%s, %d bytes)]\n", content.URI, content.MIMEType, content.Size())
	default:
		fmt.Fprint(out, content.Text)
		if content.Truncated {
			fmt.Fprintln(cmd.ErrOrStderr(), "\nwarning: content truncated")
		}
	}
	return nil
}
