package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hakim/vulntriage/internal/diff"
	"github.com/hakim/vulntriage/internal/jsonutil"
	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/report"
	"github.com/hakim/vulntriage/internal/termui"
	"github.com/hakim/vulntriage/internal/view"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect, annotate, export, diff or delete a single report",
}

var reportShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the severity tree and instance table of a report",
	Long: `Print a report as a severity > vulnerability > instance tree followed by
the flat instance table. Pass --instance to also print the detail panel of
one instance.

Examples:
  vulntriage report show 12
  vulntriage report show 12 --collapse
  vulntriage report show 12 --instance 4711
  vulntriage report show 12 --server-tree`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("report", args[0])
		if err != nil {
			return err
		}
		collapse, _ := cmd.Flags().GetBool("collapse")
		instanceID, _ := cmd.Flags().GetInt("instance")
		serverTree, _ := cmd.Flags().GetBool("server-tree")

		client := newClient(nil)
		if serverTree {
			nodes, err := client.Tree(cmd.Context(), id)
			if err != nil {
				return failure("Loading tree", err)
			}
			termui.RemoteTree(os.Stdout, nodes)
			return nil
		}

		r, err := client.GetReport(cmd.Context(), id)
		if err != nil {
			return failure("Loading report", err)
		}

		tree := view.BuildTree(r.Vulnerabilities)
		var state view.TreeState
		if collapse {
			state.CollapseAll(tree.BranchIDs())
		}
		if instanceID != 0 && !state.Select(tree.LeafIDs(), instanceID) {
			return fmt.Errorf("instance %d is not part of report %d", instanceID, id)
		}

		fmt.Println(termui.TitleStyle.Render(r.DisplayName()))
		fmt.Println(termui.MutedStyle.Render(fmt.Sprintf("#%d  imported %s  %d instances",
			r.ID, view.FormatDate(r.ImportedAt), tree.Total)))
		if r.Notes != "" {
			fmt.Println(termui.SectionStyle.Render("Notes"))
			fmt.Println(r.Notes)
		}

		fmt.Println(termui.SectionStyle.Render("Findings"))
		termui.Tree(os.Stdout, tree, state)

		if !collapse {
			fmt.Println(termui.SectionStyle.Render("Instances"))
			termui.Rows(os.Stdout, view.Rows(r.Vulnerabilities), view.NewSelection())
		}

		if instanceID != 0 {
			if d, ok := view.InstanceDetail(r, instanceID); ok {
				termui.Detail(os.Stdout, d)
			}
		}
		return nil
	},
}

var reportNotesCmd = &cobra.Command{
	Use:   "notes <id> <text>",
	Short: "Replace the notes of a report",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("report", args[0])
		if err != nil {
			return err
		}

		client := newClient(nil)
		if err := client.UpdateNotes(cmd.Context(), id, args[1]); err != nil {
			return failure("Save", err)
		}
		fmt.Println("[+] Notes saved")
		return nil
	},
}

var reportDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a report and all of its findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("report", args[0])
		if err != nil {
			return err
		}
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("refusing to delete report %d without confirmation; pass --yes", id)
			}
			ok, err := confirm(os.Stdin, fmt.Sprintf("Delete report #%d and all its findings? [y/N] ", id))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("[*] Cancelled")
				return nil
			}
		}

		client := newClient(nil)
		if err := client.DeleteReport(cmd.Context(), id); err != nil {
			return failure("Delete", err)
		}
		fmt.Println("[+] Report deleted")
		return nil
	},
}

// confirm asks prompt and reports whether the answer was yes.
func confirm(in io.Reader, prompt string) (bool, error) {
	fmt.Print(prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

var reportExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a report as JSON, markdown or PDF",
	Long: `Export a report.

--format json downloads the backend's own export file. --format md and
--format pdf render the report locally.

Examples:
  vulntriage report export 12
  vulntriage report export 12 --format md -o shop.md
  vulntriage report export 12 --format pdf --include-status=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("report", args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		includeStatus, _ := cmd.Flags().GetBool("include-status")

		client := newClient(nil)
		ctx := cmd.Context()

		switch format {
		case "json":
			dl, err := client.ExportReport(ctx, id, includeStatus)
			if err != nil {
				return failure("Export", err)
			}
			defer dl.Body.Close()

			if output == "" {
				output = filepath.Base(dl.Filename)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if _, err := io.Copy(f, dl.Body); err != nil {
				f.Close()
				return fmt.Errorf("writing %s: %w", output, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

		case "md", "pdf":
			r, err := client.GetReport(ctx, id)
			if err != nil {
				return failure("Loading report", err)
			}
			if !includeStatus {
				stripStatus(r)
			}
			if output == "" {
				output = fmt.Sprintf("report_%d.%s", id, format)
			}
			if format == "md" {
				err = report.WriteReport(r, output)
			} else {
				err = report.WritePDFFile(r, output)
			}
			if err != nil {
				return err
			}

		default:
			return fmt.Errorf("unknown format %q (want json, md or pdf)", format)
		}

		fmt.Printf("[+] Report exported to %s\n", output)
		return nil
	},
}

var reportDiffCmd = &cobra.Command{
	Use:   "diff <current-id> <previous-id>",
	Short: "Compare two reports and show what changed",
	Long: `Compare two reports of the same site.

Findings are matched by severity, title, URL, method and parameter since
instance ids differ between imports. The result lists new findings,
resolved findings and findings whose fix status changed.

Examples:
  vulntriage report diff 14 12
  vulntriage report diff 14 12 -o diff.md
  vulntriage report diff 14 12 --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		currentID, err := parseID("report", args[0])
		if err != nil {
			return err
		}
		previousID, err := parseID("report", args[1])
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		asJSON, _ := cmd.Flags().GetBool("json")

		client := newClient(nil)
		current, previous, err := diff.Fetch(cmd.Context(), client, currentID, previousID)
		if err != nil {
			return failure("Loading reports", err)
		}

		result := diff.ComputeDiff(current, previous)

		if asJSON {
			return jsonutil.Encode(os.Stdout, result)
		}

		if output != "" {
			if err := report.WriteDiffReport(result, output); err != nil {
				return err
			}
			fmt.Printf("[+] Diff report written to %s\n", output)
		}

		fmt.Printf("[*] Current:  #%d %s (%d instances)\n", result.Current.ID, result.Current.Name, result.CurrentCount)
		fmt.Printf("[*] Previous: #%d %s (%d instances)\n", result.Previous.ID, result.Previous.Name, result.PreviousCount)
		if result.Empty() {
			fmt.Println("[+] No changes detected")
			return nil
		}
		fmt.Printf("[+] Findings: +%d new, -%d resolved, %d status changes, %d unchanged\n",
			len(result.NewFindings), len(result.ResolvedFindings), len(result.StatusChanges), result.Unchanged)
		for _, f := range result.NewFindings {
			fmt.Printf("    + [%s] %s %s\n", f.Severity.Label(), f.Title, f.URL)
		}
		for _, f := range result.ResolvedFindings {
			fmt.Printf("    - [%s] %s %s\n", f.Severity.Label(), f.Title, f.URL)
		}
		for _, c := range result.StatusChanges {
			fmt.Printf("    ~ [%s] %s %s: %s → %s\n",
				c.Finding.Severity.Label(), c.Finding.Title, c.Finding.URL, c.From.Label(), c.To.Label())
		}
		return nil
	},
}

func init() {
	reportShowCmd.Flags().Bool("collapse", false, "show only the severity groups")
	reportShowCmd.Flags().Int("instance", 0, "also print the detail of this instance")
	reportShowCmd.Flags().Bool("server-tree", false, "print the tree as built by the backend")

	reportDeleteCmd.Flags().Bool("yes", false, "skip the confirmation prompt")

	reportExportCmd.Flags().String("format", "json", "export format: json, md or pdf")
	reportExportCmd.Flags().StringP("output", "o", "", "output file (default: derived from the report id)")
	reportExportCmd.Flags().Bool("include-status", true, "include fix status and notes")

	reportDiffCmd.Flags().StringP("output", "o", "", "also write a markdown diff report to this file")
	reportDiffCmd.Flags().Bool("json", false, "print the diff as JSON")

	reportCmd.AddCommand(reportShowCmd, reportNotesCmd, reportDeleteCmd, reportExportCmd, reportDiffCmd)
	rootCmd.AddCommand(reportCmd)
}

// stripStatus resets triage data so a local export shows findings only.
func stripStatus(r *models.Report) {
	for vi := range r.Vulnerabilities {
		for ii := range r.Vulnerabilities[vi].Instances {
			inst := &r.Vulnerabilities[vi].Instances[ii]
			inst.FixStatus = models.StatusPending
			inst.FixedAt = ""
			inst.FixedBy = ""
			inst.FixNotes = ""
		}
	}
}
