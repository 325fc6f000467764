/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codervisor/devlog/internal/utils"
	"github.com/codervisor/devlog/models"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one entry in full",
	Long: `Show a single entry with its notes, decisions, context, and external
references.

Examples:
  devlog show 42
  devlog show 42 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
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

	entry, err := provider.Get(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load entry %d: %w", id, err)
	}
	if entry == nil {
		return fmt.Errorf("entry %d not found", id)
	}

	if isJSON() {
		return printJSON(entry)
	}
	renderEntry(cmd, entry)
	return nil
}

func renderEntry(cmd *cobra.Command, e *models.Entry) {
	cmd.Printf("#%d %s\n", e.ID, e.Title)
	cmd.Printf("  type: %s  status: %s  priority: %s\n", e.Type, e.Status, e.Priority)
	cmd.Printf("  created: %s  updated: %s\n",
		e.CreatedAt.Local().Format("2006-01-02 15:04"),
		e.UpdatedAt.Local().Format("2006-01-02 15:04"))
	if e.Description != "" {
		cmd.Printf("\n%s\n", e.Description)
	}
	if len(e.Notes) > 0 {
		cmd.Println("\nNotes:")
		for _, n := range e.Notes {
			label := ""
			if n.Category != "" {
				label = utils.ToTitle(n.Category) + ": "
			}
			cmd.Printf("  [%s] %s%s\n", n.Timestamp.Local().Format("2006-01-02 15:04"), label, n.Content)
		}
	}
	if len(e.Decisions) > 0 {
		cmd.Println("\nDecisions:")
		for _, d := range e.Decisions {
			cmd.Printf("  [%s] %s\n", d.Timestamp.Local().Format("2006-01-02 15:04"), d.Decision)
			if d.Rationale != "" {
				cmd.Printf("      %s\n", d.Rationale)
			}
		}
	}
	if len(e.ExternalReferences) > 0 {
		cmd.Println("\nExternal references:")
		for _, ref := range e.ExternalReferences {
			cmd.Printf("  %s #%s", ref.System, ref.ID)
			if ref.URL != "" {
				cmd.Printf("  %s", ref.URL)
			}
			cmd.Println()
		}
	}
}
