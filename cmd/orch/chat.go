package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandbox-llm/orch/pkg/api"
)

var (
	chatFile        string
	chatResource    string
	chatMaxTokens   int
	chatTemperature float64
	chatJSON        bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one chat message through the pipeline",
	Long: `Runs one chat request without starting the HTTP server: the named file
or resource is read through the resource bridge, the prompt is sent to the
completion service, and the answer is printed.

Example:
  orch chat --file README.md "Summarize this file"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatFile, "file", "f", "", "file to read as context, relative to the bridge root")
	chatCmd.Flags().StringVarP(&chatResource, "resource", "r", "", "resource URI to read as context")
	chatCmd.Flags().IntVar(&chatMaxTokens, "max-tokens", 0, "override the configured token limit")
	chatCmd.Flags().Float64Var(&chatTemperature, "temperature", 0, "override the configured temperature")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "print the full JSON response")
	chatCmd.MarkFlagsMutuallyExclusive("file", "resource")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := contextOrBackground(cmd)
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	req := &api.ChatRequest{
		Message:  strings.Join(args, " "),
		File:     chatFile,
		Resource: chatResource,
	}
	if cmd.Flags().Changed("max-tokens") {
		req.MaxTokens = &chatMaxTokens
	}
	if cmd.Flags().Changed("temperature") {
		req.Temperature = &chatTemperature
	}

	resp, err := a.orchestrator.Chat(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if chatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Context != nil && resp.Context.Error != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: context %s not used: %s\n", resp.Context.URI, resp.Context.Error)
	}
	fmt.Fprintln(out, strings.TrimSpace(resp.Response))
	return nil
}
