package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hakim/vulntriage/internal/config"
	"github.com/hakim/vulntriage/internal/session"
	"github.com/spf13/cobra"
)

var (
	initForce bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize vulntriage with default configuration",
	Long: `Creates a default configuration file (vulntriage.yaml) and the session
database that holds per-browser dashboard state.

This is typically the first command you run when setting up vulntriage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := filepath.Join(initDir, "vulntriage.yaml")

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("config file already exists at %s. Use --force to overwrite", configPath)
		}

		// Create default config
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		fmt.Printf("[+] Created %s with default configuration\n", configPath)

		// Load the config we just created to get paths
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		dbPath := loaded.Session.DBPath
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(initDir, dbPath)
		}

		// Initialize database
		store, err := session.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize session database: %w", err)
		}
		defer store.Close()
		fmt.Printf("[+] Initialized session database: %s\n", dbPath)

		fmt.Println()
		fmt.Println("VulnTriage initialized successfully!")
		fmt.Printf("Point api.base_url at your report backend (currently %s), then run 'vulntriage serve'.\n", loaded.API.BaseURL)

		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "output directory")
	rootCmd.AddCommand(initCmd)
}
