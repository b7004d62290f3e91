package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hakim/vulntriage/internal/apiclient"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Upload scan report files to the backend",
	Long: `Upload one or more scan report files.

A single file goes through the single-file import; several files are sent
in one bulk import and every failed file is listed.

Examples:
  vulntriage import shop.json
  vulntriage import scans/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")

		var total int64
		for _, path := range args {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			total += info.Size()
		}

		var bar *progressbar.ProgressBar
		if !quiet {
			bar = progressbar.DefaultBytes(total, "reading")
		}

		files := make([]apiclient.File, 0, len(args))
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()

			var r io.Reader = f
			if bar != nil {
				r = io.TeeReader(f, bar)
			}
			files = append(files, apiclient.File{Name: filepath.Base(path), Content: r})
		}

		client := newClient(nil)
		ctx := cmd.Context()

		if len(files) == 1 {
			res, err := client.Import(ctx, files[0])
			finishBar(bar)
			if err != nil {
				return failure("Import", err)
			}
			if !res.Success && res.Error != "" {
				fmt.Printf("[!] Import failed: %s\n", res.Error)
				return fmt.Errorf("import: %s", res.Error)
			}
			fmt.Printf("[+] Imported: %s (report #%d)\n", res.SiteURL, res.ReportID)
			return nil
		}

		res, err := client.BulkImport(ctx, files)
		finishBar(bar)
		if err != nil {
			return failure("Import", err)
		}

		for _, imp := range res.Imported {
			fmt.Printf("[+] %s → report #%d (%s)\n", imp.File, imp.ReportID, imp.SiteURL)
		}
		for _, e := range res.Errors {
			fmt.Printf("[!] %s: %s\n", e.File, e.Error)
		}
		fmt.Printf("[*] Imported %d, failed %d\n", len(res.Imported), len(res.Errors))
		if len(res.Imported) == 0 && len(res.Errors) > 0 {
			return fmt.Errorf("no file could be imported")
		}
		return nil
	},
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar == nil {
		return
	}
	_ = bar.Finish()
	fmt.Println()
}

func init() {
	importCmd.Flags().BoolP("quiet", "q", false, "hide the progress bar")
	rootCmd.AddCommand(importCmd)
}
