package main

import (
	"fmt"

	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/view"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Update instance fix statuses",
}

var statusSetCmd = &cobra.Command{
	Use:   "set <instance-id>",
	Short: "Set the fix status of one instance",
	Long: `Set the fix status of one instance.

Statuses: pending, in_progress, fixed, wont_fix, false_positive

Examples:
  vulntriage status set 4711 --status fixed --by dana --notes "patched in 2.4.1"
  vulntriage status set 4711 --status false-positive`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("instance", args[0])
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("status")
		fixedBy, _ := cmd.Flags().GetString("by")
		notes, _ := cmd.Flags().GetString("notes")

		status, err := models.ParseFixStatus(raw)
		if err != nil {
			return err
		}

		client := newClient(nil)
		_, err = client.UpdateInstanceStatus(cmd.Context(), id, models.StatusUpdate{
			Status:  status,
			FixedBy: fixedBy,
			Notes:   notes,
		})
		if err != nil {
			return failure("Update", err)
		}

		fmt.Printf("[+] Status updated: instance %d is %s\n", id, status.Label())
		return nil
	},
}

var statusBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Set one fix status on several instances",
	Long: `Apply one fix status to a list of instances in a single request.

Examples:
  vulntriage status batch --ids 4711,4712,4713 --status in_progress`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawIDs, _ := cmd.Flags().GetString("ids")
		raw, _ := cmd.Flags().GetString("status")

		ids, err := parseIDs("instance", rawIDs)
		if err != nil {
			return err
		}

		sel := view.NewSelection(ids...)
		status, err := view.ValidateBatch(raw, sel)
		if err != nil {
			fmt.Printf("[!] %v\n", err)
			return err
		}

		client := newClient(nil)
		res, err := client.BatchUpdateStatus(cmd.Context(), models.BatchStatusUpdate{
			InstanceIDs: sel.IDs(),
			Status:      status,
		})
		if err != nil {
			return failure("Batch update", err)
		}

		updated := res.UpdatedCount
		if updated == 0 {
			updated = sel.Len()
		}
		fmt.Printf("[+] Updated %d instances to %s\n", updated, status.Label())
		return nil
	},
}

func init() {
	statusSetCmd.Flags().String("status", "", "new fix status (required)")
	statusSetCmd.Flags().String("by", "", "who fixed it")
	statusSetCmd.Flags().String("notes", "", "fix notes")
	statusSetCmd.MarkFlagRequired("status")

	statusBatchCmd.Flags().String("ids", "", "comma-separated instance ids")
	statusBatchCmd.Flags().String("status", "", "new fix status")

	statusCmd.AddCommand(statusSetCmd, statusBatchCmd)
	rootCmd.AddCommand(statusCmd)
}
