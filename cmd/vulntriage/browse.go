package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/termui"
	"github.com/hakim/vulntriage/internal/view"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print aggregate triage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient(nil)

		stats, err := client.DashboardStats(cmd.Context())
		if err != nil {
			return failure("Loading dashboard", err)
		}

		termui.Dashboard(os.Stdout, view.BuildDashboard(stats, cfg.UI.RecentLimit))
		return nil
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List imported reports",
	Long: `List imported reports one page at a time, newest first.

Examples:
  vulntriage reports
  vulntriage reports --page 3
  vulntriage reports --search shop.example`,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		search, _ := cmd.Flags().GetString("search")
		if page < 1 {
			page = 1
		}

		client := newClient(nil)
		result, err := client.ListReports(cmd.Context(), page, cfg.UI.PageSize, search)
		if err != nil {
			return failure("Loading reports", err)
		}

		termui.ReportList(os.Stdout, view.BuildReportList(result, search))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search instances across every report",
	Long: `Search instance URLs, vulnerability titles and report site URLs across
all reports, optionally narrowed by severity and fix status.

Examples:
  vulntriage search login
  vulntriage search "" --severity High --status pending`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := models.SearchQuery{PerPage: cfg.UI.PageSize}
		if len(args) == 1 {
			query.Query = args[0]
		}
		query.Page, _ = cmd.Flags().GetInt("page")

		if sev, _ := cmd.Flags().GetString("severity"); sev != "" {
			query.Severity = models.Severity(sev)
			if !query.Severity.Known() {
				return fmt.Errorf("unknown severity %q (want High, Medium, Low or Informational)", sev)
			}
		}
		if raw, _ := cmd.Flags().GetString("status"); raw != "" {
			status, err := models.ParseFixStatus(raw)
			if err != nil {
				return err
			}
			query.Status = status
		}

		client := newClient(nil)
		result, err := client.Search(cmd.Context(), query)
		if err != nil {
			return failure("Search", err)
		}

		termui.SearchResults(os.Stdout, result)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the backend operation log",
	Long: `Show the backend operation log, newest first.

Examples:
  vulntriage logs
  vulntriage logs --type status --page 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		rawType, _ := cmd.Flags().GetString("type")
		actionType := normalizeActionType(rawType)
		if page < 1 {
			page = 1
		}

		client := newClient(nil)
		result, err := client.Logs(cmd.Context(), page, cfg.UI.PageSize, actionType)
		if err != nil {
			return failure("Loading logs", err)
		}

		termui.Logs(os.Stdout, result)
		return nil
	},
}

// normalizeActionType matches the backend's upper-case action types
// (IMPORT, STATUS, DELETE, EXPORT), which are filtered by exact match.
func normalizeActionType(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func init() {
	reportsCmd.Flags().Int("page", 1, "page number")
	reportsCmd.Flags().String("search", "", "filter by site URL")

	searchCmd.Flags().Int("page", 1, "page number")
	searchCmd.Flags().String("severity", "", "only this severity (High, Medium, Low, Informational)")
	searchCmd.Flags().String("status", "", "only this fix status")

	logsCmd.Flags().Int("page", 1, "page number")
	logsCmd.Flags().String("type", "", "only this action type: import, status, delete or export")

	rootCmd.AddCommand(dashboardCmd, reportsCmd, searchCmd, logsCmd)
}
