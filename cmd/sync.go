/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codervisor/devlog/store"
	"github.com/codervisor/devlog/types"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the git-backed store with its remote",
	Long: `Pull remote changes, reconcile conflicting entries through the configured
conflict policy, and push local changes.

Only the git-backed backends support sync. The --resolve flag overrides the
configured conflict policy for this run.

Examples:
  devlog sync
  devlog sync --resolve local-wins
  devlog sync --status`,
	RunE: runSync,
}

var (
	syncResolve    string
	syncStatusOnly bool
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncResolve, "resolve", "", "conflict policy override (timestamp-wins, local-wins, remote-wins, manual)")
	syncCmd.Flags().BoolVar(&syncStatusOnly, "status", false, "report the local/remote relation without syncing")
}

func runSync(cmd *cobra.Command, args []string) error {
	provider, err := GetProvider()
	if err != nil {
		return err
	}
	defer func() { _ = provider.Dispose() }()

	gitProvider, ok := provider.(store.GitProvider)
	if !ok {
		return fmt.Errorf("sync requires a git-backed storage type (configured: %s)", GetConfig().Storage.Type)
	}

	ctx := cmd.Context()
	if err := gitProvider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if syncStatusOnly {
		status, err := gitProvider.RemoteStatus(ctx)
		if err != nil {
			return fmt.Errorf("failed to check remote status: %w", err)
		}
		if isJSON() {
			return printJSON(status)
		}
		fmt.Printf("Status: %s (ahead %d, behind %d", status.Status, status.Ahead, status.Behind)
		if status.Dirty {
			fmt.Print(", uncommitted changes")
		}
		fmt.Println(")")
		return nil
	}

	if syncResolve != "" {
		policy := types.ConflictPolicy(syncResolve)
		switch policy {
		case types.ConflictTimestampWins, types.ConflictLocalWins, types.ConflictRemoteWins, types.ConflictManual:
		default:
			return fmt.Errorf("invalid conflict policy %q", syncResolve)
		}
		if err := gitProvider.ResolveConflicts(ctx, policy); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
	} else {
		if err := gitProvider.Pull(ctx); err != nil {
			return fmt.Errorf("pull failed: %w", err)
		}
	}

	if err := gitProvider.Push(ctx, "devlog: sync"); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	fmt.Println("✓ Synced with remote")
	return nil
}
