/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codervisor/devlog/internal/utils"
	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/store"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List devlog entries",
	Long: `List entries, newest activity first.

Filters combine with AND; repeat a flag to allow multiple values for it.

Examples:
  devlog list
  devlog list --status in-progress --status blocked
  devlog list --type bugfix --priority high
  devlog list --search "webhook retry"`,
	RunE: runList,
}

var (
	listStatuses   []string
	listTypes      []string
	listPriorities []string
	listSearch     string
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringSliceVar(&listStatuses, "status", nil, "filter by status")
	listCmd.Flags().StringSliceVar(&listTypes, "type", nil, "filter by type")
	listCmd.Flags().StringSliceVar(&listPriorities, "priority", nil, "filter by priority")
	listCmd.Flags().StringVar(&listSearch, "search", "", "keyword search over title, description, and notes")
}

func buildFilter() (*store.ListFilter, error) {
	if len(listStatuses) == 0 && len(listTypes) == 0 && len(listPriorities) == 0 {
		return nil, nil
	}
	filter := &store.ListFilter{}
	for _, raw := range listStatuses {
		status, ok := models.ParseStatus(raw)
		if !ok {
			return nil, fmt.Errorf("invalid status %q", raw)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range listTypes {
		entryType, ok := models.ParseType(raw)
		if !ok {
			return nil, fmt.Errorf("invalid type %q", raw)
		}
		filter.Types = append(filter.Types, entryType)
	}
	for _, raw := range listPriorities {
		priority, ok := models.ParsePriority(raw)
		if !ok {
			return nil, fmt.Errorf("invalid priority %q", raw)
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	return filter, nil
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := buildFilter()
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

	var entries []*models.Entry
	if listSearch != "" {
		entries, err = provider.Search(cmd.Context(), listSearch)
	} else {
		entries, err = provider.List(cmd.Context(), filter)
	}
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	// Search results still respect the structured filters.
	if listSearch != "" && filter != nil {
		filtered := entries[:0]
		for _, e := range entries {
			if filter.Matches(e) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if isJSON() {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		cmd.Println("No entries found.")
		cmd.Println("Add one with: devlog add \"Your title here\"")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPRIORITY\tUPDATED\tTITLE")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Type, e.Status, e.Priority,
			e.UpdatedAt.Local().Format("2006-01-02 15:04"), utils.Truncate(e.Title, 60))
	}
	return w.Flush()
}
