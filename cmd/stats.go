/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate entry counts",
	Long: `Show entry counts broken down by status, type, and priority.

Examples:
  devlog stats
  devlog stats --json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	provider, err := GetProvider()
	if err != nil {
		return err
	}
	defer func() { _ = provider.Dispose() }()

	if err := provider.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	stats, err := provider.GetStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	if isJSON() {
		return printJSON(stats)
	}

	fmt.Printf("Total entries: %d\n", stats.TotalEntries)
	printBreakdown := func(label string, counts map[string]int) {
		if len(counts) == 0 {
			return
		}
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Printf("%s:\n", label)
		for _, k := range keys {
			fmt.Printf("  %-12s %d\n", k, counts[k])
		}
	}
	printBreakdown("By status", stats.ByStatus)
	printBreakdown("By type", stats.ByType)
	printBreakdown("By priority", stats.ByPriority)
	return nil
}
