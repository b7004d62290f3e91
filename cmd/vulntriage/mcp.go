package main

import (
	"github.com/hakim/vulntriage/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the triage tools over MCP stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout.

Tools: dashboard_stats, list_reports, get_report_tree,
update_instance_status, batch_update_status, save_report_notes.

Logs go to stderr; stdout carries the protocol only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		srv := mcpserver.New(mcpserver.Config{
			API:         newClient(nil),
			Version:     version,
			PageSize:    cfg.UI.PageSize,
			RecentLimit: cfg.UI.RecentLimit,
			Logger:      logger,
		})
		return srv.RunStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
