package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/locapp/backend/internal/storage/models"
)

var (
	syncSourceID   string
	syncPropertyID string
	syncAll        bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync calendar sources once and print the outcome",
	Long: `Sync fetches calendar sources right away, without the server running.

Exactly one of --source, --property or --all selects what to sync. The
command fails when any selected source fails.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncSourceID, "source", "", "ID of the calendar source to sync")
	syncCmd.Flags().StringVar(&syncPropertyID, "property", "", "ID of the property whose active sources to sync")
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every active source")
	syncCmd.Flags().Int("concurrency", 0, "sources of one property synced at once (default 1)")
	syncCmd.Flags().Duration("timeout", 0, "timeout of one feed download (default 30s)")
	syncCmd.MarkFlagsMutuallyExclusive("source", "property", "all")
	syncCmd.MarkFlagsOneRequired("source", "property", "all")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	db, store, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncService := newSyncService(store, nil)
	out := cmd.OutOrStdout()

	switch {
	case syncSourceID != "":
		result, err := syncService.SyncSource(ctx, syncSourceID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ %s: %s\n", result.SourceName, result.Message)
		return nil

	case syncPropertyID != "":
		outcomes, err := syncService.SyncProperty(ctx, syncPropertyID)
		if err != nil {
			return err
		}
		return reportOutcomes(out, syncPropertyID, outcomes)

	default:
		results, err := syncService.SyncAllActive(ctx)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "No active calendar sources.")
			return nil
		}
		var failed error
		for _, r := range results {
			if err := reportOutcomes(out, r.PropertyID, r.Sources); err != nil {
				failed = err
			}
		}
		return failed
	}
}

// reportOutcomes prints one line per source and returns an error when any
// of them failed.
func reportOutcomes(out io.Writer, propertyID string, outcomes []models.SourceSyncOutcome) error {
	fmt.Fprintf(out, "Property %s:\n", propertyID)
	if len(outcomes) == 0 {
		fmt.Fprintln(out, "  no active calendar sources")
		return nil
	}

	failures := 0
	for _, o := range outcomes {
		if o.Success && o.EventsCount != nil {
			fmt.Fprintf(out, "  ✓ %s: %d events\n", o.SourceName, *o.EventsCount)
			continue
		}
		failures++
		fmt.Fprintf(out, "  ✗ %s: %s\n", o.SourceName, o.Error)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d sources failed for property %s", failures, len(outcomes), propertyID)
	}
	return nil
}
