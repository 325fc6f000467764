/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry",
	Long: `Delete an entry from storage. Deleting an id that does not exist is a
no-op.

Examples:
  devlog delete 42`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseEntryID(args[0])
	if err != nil {
		return err
	}

	provider, err := GetProvider()
	if err != nil {
		return err
	}
	defer func() { _ = provider.Dispose() }()

	if err := provider.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := provider.Delete(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}

	fmt.Printf("✓ Deleted #%d\n", id)
	return nil
}
