package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/dexter/internal/app"
	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/infrastructure/cli/helpers"
	"github.com/doeshing/dexter/internal/ports"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect executed commands",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistorySearchCommand(container),
		newHistoryClearCommand(container),
		newHistoryPinCommand(container, true),
		newHistoryPinCommand(container, false),
		newHistoryExportCommand(container),
		newHistoryStatsCommand(container),
	)

	return historyCmd
}

// newHistoryListCommand creates the 'history list' subcommand
func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.OutOrStdout(), container.HistoryStore, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max entries to show")
	return cmd
}

// newHistorySearchCommand creates the 'history search' subcommand
func newHistorySearchCommand(container *app.Container) *cobra.Command {
	var query string
	var searchLimit int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search history for a keyword",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				return errors.New(ErrQueryRequired)
			}
			return searchHistoryEntries(cmd.OutOrStdout(), container.HistoryStore, query, searchLimit)
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Search keyword")
	cmd.Flags().IntVar(&searchLimit, "limit", DefaultHistorySearchLimit, "Limit search results")
	return cmd
}

// newHistoryClearCommand creates the 'history clear' subcommand
func newHistoryClearCommand(container *app.Container) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every history entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				reader := bufio.NewReader(cmd.InOrStdin())
				if !helpers.PromptForConfirmation(cmd.OutOrStdout(), reader, "Delete every history entry?") {
					return nil
				}
			}
			return clearHistory(container.HistoryStore)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}

// newHistoryPinCommand creates the 'history pin' and 'history unpin' subcommands
func newHistoryPinCommand(container *app.Container, pinned bool) *cobra.Command {
	use, short := "pin <id>", "Keep an entry at the top of the list"
	if !pinned {
		use, short = "unpin <id>", "Return a pinned entry to its place in the list"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return pinHistoryEntry(cmd.OutOrStdout(), container.HistoryStore, args[0], pinned)
		},
	}
}

// newHistoryExportCommand creates the 'history export' subcommand
func newHistoryExportCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export history to JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportHistory(cmd.OutOrStdout(), container.HistoryStore, args[0])
		},
	}
}

// newHistoryStatsCommand creates the 'history stats' subcommand
func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show success rate and most used plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryStats(cmd.OutOrStdout(), container.HistoryStore)
		},
	}
}

// listHistoryEntries lists recent history entries
func listHistoryEntries(out io.Writer, store ports.HistoryRepository, limit int) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	records, err := store.Records(limit, "")
	if err != nil {
		return fmt.Errorf("failed to retrieve history records: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	for _, rec := range records {
		mark := " "
		if rec.Pinned() {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s | %s | %-8s | %s | %s\n",
			mark,
			shortID(rec.ID),
			rec.ProposedAt.Local().Format(TimestampFormat),
			rec.PluginID,
			outcome(rec),
			rec.Command)
	}

	return nil
}

// searchHistoryEntries searches history for a keyword
func searchHistoryEntries(out io.Writer, store ports.HistoryRepository, query string, limit int) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	records, err := store.Records(limit, query)
	if err != nil {
		return fmt.Errorf("failed to search history: %w", err)
	}

	for _, rec := range records {
		fmt.Fprintf(out, "%s | %s\n",
			rec.ProposedAt.Local().Format(TimestampFormat),
			rec.Command)
		if rec.Utterance != "" {
			fmt.Fprintf(out, "    asked: %s\n", rec.Utterance)
		}
	}

	return nil
}

// clearHistory clears every stored record
func clearHistory(store ports.HistoryRepository) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	return nil
}

// pinHistoryEntry pins or unpins the entry whose id starts with prefix
func pinHistoryEntry(out io.Writer, store ports.HistoryRepository, prefix string, pinned bool) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	id, err := resolveHistoryID(store, prefix)
	if err != nil {
		return err
	}
	if err := store.SetPinned(id, pinned); err != nil {
		return fmt.Errorf("failed to update pin: %w", err)
	}

	verb := "Pinned"
	if !pinned {
		verb = "Unpinned"
	}
	fmt.Fprintf(out, "%s %s\n", verb, shortID(id))
	return nil
}

// resolveHistoryID expands a unique, case-insensitive id prefix
func resolveHistoryID(store ports.HistoryRepository, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", errors.New(ErrHistoryIDRequired)
	}

	records, err := store.Records(0, "")
	if err != nil {
		return "", fmt.Errorf("failed to retrieve history records: %w", err)
	}

	var matches []string
	for _, rec := range records {
		if strings.HasPrefix(strings.ToLower(rec.ID), prefix) {
			matches = append(matches, rec.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", domain.ErrHistoryNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id %q matches %d entries, use a longer prefix", prefix, len(matches))
	}
}

// shortID trims a record id for display
func shortID(id string) string {
	if len(id) > HistoryIDWidth {
		return id[:HistoryIDWidth]
	}
	return id
}

// exportHistory exports history to a JSONL file
func exportHistory(out io.Writer, store ports.HistoryRepository, path string) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	if err := store.ExportJSON(path); err != nil {
		return fmt.Errorf("failed to export history to %s: %w", path, err)
	}

	fmt.Fprintf(out, "History exported to %s\n", path)
	return nil
}

// showHistoryStats displays success rate and top plugins
func showHistoryStats(out io.Writer, store ports.HistoryRepository) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	records, err := store.Records(MaxHistoryAnalysisRecords, "")
	if err != nil {
		return fmt.Errorf("failed to retrieve history for analysis: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	stats := analyzeHistoryRecords(records)
	displayHistoryStatistics(out, stats, records)

	return nil
}

// outcome renders the final state of a record, with the exit code for failures
func outcome(rec domain.ExecutionRecord) string {
	if rec.State == domain.StateFailed {
		return fmt.Sprintf("failed(%d)", rec.ExitCode)
	}
	return string(rec.State)
}

// historyStatistics holds analyzed history statistics
type historyStatistics struct {
	executed   int
	successful int
	pluginFreq map[string]int
	stateFreq  map[string]int
}

// analyzeHistoryRecords analyzes history records and computes statistics
func analyzeHistoryRecords(records []domain.ExecutionRecord) historyStatistics {
	stats := historyStatistics{
		pluginFreq: make(map[string]int),
		stateFreq:  make(map[string]int),
	}

	for _, rec := range records {
		switch rec.State {
		case domain.StateSucceeded:
			stats.executed++
			stats.successful++
		case domain.StateFailed:
			stats.executed++
		}
		stats.pluginFreq[rec.PluginID]++
		stats.stateFreq[string(rec.State)]++
	}

	return stats
}

// displayHistoryStatistics displays formatted history statistics
func displayHistoryStatistics(out io.Writer, stats historyStatistics, records []domain.ExecutionRecord) {
	fmt.Fprintf(out, "Entries analyzed: %d\nExecuted: %d\nSuccess rate: %.1f%%\n",
		len(records),
		stats.executed,
		helpers.CalculateSuccessRate(stats.successful, stats.executed))

	fmt.Fprintln(out, "Top plugins:")
	for _, stat := range helpers.CalculateTop(stats.pluginFreq, TopPluginCount) {
		fmt.Fprintf(out, "  %s (%d)\n", stat.Name, stat.Count)
	}

	fmt.Fprintln(out, "Outcomes:")
	for _, stat := range helpers.CalculateTop(stats.stateFreq, 0) {
		fmt.Fprintf(out, "  %s: %d\n", stat.Name, stat.Count)
	}

	hints := helpers.DeriveUndoHints(records)
	if len(hints) > 0 {
		fmt.Fprintln(out, "Undo hints:")
		for _, hint := range hints {
			fmt.Fprintf(out, "  - %s\n", hint)
		}
	}
}
