/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codervisor/devlog/models"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an entry's fields",
	Long: `Update the title, status, or priority of an entry.

Examples:
  devlog update 42 --status in-progress
  devlog update 42 --status done
  devlog update 42 --priority critical --title "Webhook retries (urgent)"`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

var (
	updateTitle    string
	updateStatus   string
	updatePriority string
)

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	updateCmd.Flags().StringVar(&updateStatus, "status", "", "new status (new, in-progress, blocked, in-review, testing, done, closed)")
	updateCmd.Flags().StringVar(&updatePriority, "priority", "", "new priority (low, medium, high, critical)")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseEntryID(args[0])
	if err != nil {
		return err
	}
	if updateTitle == "" && updateStatus == "" && updatePriority == "" {
		return fmt.Errorf("nothing to update: pass --title, --status, or --priority")
	}

	provider, err := GetProvider()
	if err != nil {
		return err
	}
	defer func() { _ = provider.Dispose() }()

	if err := provider.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	entry, err := provider.Get(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load entry %d: %w", id, err)
	}
	if entry == nil {
		return fmt.Errorf("entry %d not found", id)
	}

	if updateTitle != "" {
		entry.Title = updateTitle
	}
	if updateStatus != "" {
		status, ok := models.ParseStatus(updateStatus)
		if !ok {
			return fmt.Errorf("invalid status %q", updateStatus)
		}
		entry.Status = status
	}
	if updatePriority != "" {
		priority, ok := models.ParsePriority(updatePriority)
		if !ok {
			return fmt.Errorf("invalid priority %q", updatePriority)
		}
		entry.Priority = priority
	}

	if err := provider.Save(cmd.Context(), entry); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}

	if isJSON() {
		return printJSON(entry)
	}
	fmt.Printf("✓ Updated #%d [%s/%s]: %s\n", entry.ID, entry.Status, entry.Priority, entry.Title)
	return nil
}
