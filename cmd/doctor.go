/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codervisor/devlog/internal/repository"
	"github.com/codervisor/devlog/types"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check devlog storage for consistency problems",
	Long: `Check the git-backed repository layout for consistency problems: missing
directories, a corrupted index, and entry files the index does not know
about. With --fix, rebuild index records for orphaned files and drop index
records whose files are gone.

Examples:
  devlog doctor
  devlog doctor --fix`,
	RunE: runDoctor,
}

var doctorFix bool

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "repair the index/file mismatches found")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	config := GetConfig()
	switch config.Storage.Type {
	case types.StorageGitJSON, types.StorageGitWithCache:
	default:
		return fmt.Errorf("doctor requires a git-backed storage type (configured: %s)", config.Storage.Type)
	}

	repo := repository.New(config.Storage.RootDir)

	if doctorFix {
		actions, err := repo.Repair()
		if err != nil {
			return fmt.Errorf("repair failed: %w", err)
		}
		if len(actions) == 0 {
			fmt.Println("✓ Nothing to repair")
			return nil
		}
		for _, action := range actions {
			fmt.Printf("  fixed: %s\n", action)
		}
		fmt.Printf("✓ Repaired %d issue(s)\n", len(actions))
		return nil
	}

	result, err := repo.Validate()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if isJSON() {
		return printJSON(result)
	}

	if result.Valid {
		fmt.Println("✓ Storage is consistent")
		return nil
	}
	for _, issue := range result.Issues {
		fmt.Printf("  issue: %s\n", issue)
	}
	return fmt.Errorf("%d issue(s) found (run with --fix to repair)", len(result.Issues))
}
