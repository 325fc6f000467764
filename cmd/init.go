/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the devlog storage backend",
	Long: `Initialize the configured storage backend.

For the git-backed backends this creates (or clones) the devlog repository,
writes the index and metadata files, and appends the storage rules to
.gitignore. For the file and sqlite backends it creates the data file or
database schema. Running init on an already-initialized backend is a no-op.

Examples:
  devlog init
  devlog init --verbose`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	provider, err := GetProvider()
	if err != nil {
		return err
	}
	defer func() { _ = provider.Dispose() }()

	if err := provider.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	config := GetConfig()
	fmt.Printf("✓ Initialized %s storage for workspace %q\n", config.Storage.Type, config.Workspace)
	if provider.IsGitBased() {
		fmt.Printf("  repository: %s\n", config.Storage.RootDir)
		if config.Storage.Git.Repository != "" {
			fmt.Printf("  remote:     %s\n", config.Storage.Git.Repository)
		}
	}
	return nil
}
