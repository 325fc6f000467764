/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codervisor/devlog/models"
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a new devlog entry",
	Long: `Add a new entry to the devlog.

New entries start with status "new" and priority "medium" unless overridden.

Examples:
  devlog add "Implement webhook retries" --type feature
  devlog add "Login page 500s on empty password" --type bugfix --priority high
  devlog add "Upgrade CI runners" --description "Current runners EOL in March"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addType        string
	addPriority    string
	addDescription string
)

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVarP(&addType, "type", "t", "task", "entry type (feature, bugfix, task, refactor, docs)")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "priority (low, medium, high, critical)")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "longer description of the work")
}

func runAdd(cmd *cobra.Command, args []string) error {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return fmt.Errorf("title cannot be empty")
	}

	entryType, ok := models.ParseType(addType)
	if !ok {
		return fmt.Errorf("invalid type %q (expected feature, bugfix, task, refactor, or docs)", addType)
	}

	entry := models.NewEntry(0, title, entryType)
	entry.Description = addDescription
	if addPriority != "" {
		priority, ok := models.ParsePriority(addPriority)
		if !ok {
			return fmt.Errorf("invalid priority %q (expected low, medium, high, or critical)", addPriority)
		}
		entry.Priority = priority
	}

	provider, err := GetProvider()
	if err != nil {
		return err
	}
	defer func() { _ = provider.Dispose() }()

	if err := provider.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := provider.Save(cmd.Context(), entry); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}

	if isJSON() {
		return printJSON(entry)
	}
	fmt.Printf("✓ Added #%d [%s/%s]: %s\n", entry.ID, entry.Type, entry.Priority, entry.Title)
	return nil
}
