/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codervisor/devlog/internal/syncer"
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Publish an entry to the configured external issue trackers",
	Long: `Publish an entry to every configured external system (or one specific
system with --system), creating an issue on first publish and updating the
existing issue afterwards.

Systems are synchronized concurrently and independently: one system failing
does not stop the others, and each system's outcome is reported.

Examples:
  devlog publish 42
  devlog publish 42 --system github-main`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

var publishSystem string

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishSystem, "system", "", "publish to one named system only")
}

func runPublish(cmd *cobra.Command, args []string) error {
	id, err := parseEntryID(args[0])
	if err != nil {
		return err
	}

	orch, err := syncer.FromConfig(GetConfig().External)
	if err != nil {
		return fmt.Errorf("failed to configure external systems: %w", err)
	}

	provider, err := GetProvider()
	if err != nil {
		return err
	}
	defer func() { _ = provider.Dispose() }()

	ctx := cmd.Context()
	if err := provider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	entry, err := provider.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load entry %d: %w", id, err)
	}
	if entry == nil {
		return fmt.Errorf("entry %d not found", id)
	}

	var results []syncer.Result
	if publishSystem != "" {
		ref, err := orch.Sync(ctx, entry, publishSystem)
		results = []syncer.Result{{System: publishSystem, Ref: ref, Err: err}}
	} else {
		results, err = orch.SyncAll(ctx, entry)
		if err != nil {
			return err
		}
	}

	// Persist references from the systems that succeeded even when
	// others failed.
	if err := provider.Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to save entry references: %w", err)
	}

	if isJSON() {
		return printJSON(results)
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.System, res.Err)
			continue
		}
		fmt.Printf("✓ %s #%s", res.System, res.Ref.ID)
		if res.Ref.URL != "" {
			fmt.Printf("  %s", res.Ref.URL)
		}
		fmt.Println()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d systems failed", failed, len(results))
	}
	return nil
}
