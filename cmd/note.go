/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codervisor/devlog/models"
)

// noteCmd represents the note command
var noteCmd = &cobra.Command{
	Use:   "note <id> <text>",
	Short: "Append a note to an entry",
	Long: `Append a timestamped note to an entry. Notes are append-only: existing
notes are never edited or reordered.

Examples:
  devlog note 42 "Retry queue drains correctly after the backoff fix"
  devlog note 42 --category blocker "Waiting on infra for the new queue"
  devlog note 42 --file internal/webhook/retry.go "Backoff lives here"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runNote,
}

var (
	noteCategory string
	noteFiles    []string
)

func init() {
	rootCmd.AddCommand(noteCmd)

	noteCmd.Flags().StringVar(&noteCategory, "category", "", "note category (e.g. progress, blocker, idea)")
	noteCmd.Flags().StringSliceVar(&noteFiles, "file", nil, "file path the note refers to (repeatable)")
}

func runNote(cmd *cobra.Command, args []string) error {
	id, err := parseEntryID(args[0])
	if err != nil {
		return err
	}
	content := strings.TrimSpace(strings.Join(args[1:], " "))
	if content == "" {
		return fmt.Errorf("note content cannot be empty")
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

	entry.Notes = append(entry.Notes, models.Note{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Category:  noteCategory,
		Content:   content,
		Files:     noteFiles,
	})

	if err := provider.Save(cmd.Context(), entry); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}

	if isJSON() {
		return printJSON(entry)
	}
	fmt.Printf("✓ Noted on #%d (%d notes)\n", entry.ID, len(entry.Notes))
	return nil
}
