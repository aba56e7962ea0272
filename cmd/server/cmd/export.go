package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/locapp/backend/internal/calendar"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <slug>",
	Short: "Write the iCal feed of a property",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write (default is stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	db, store, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	p, err := store.Properties.GetBySlug(ctx, args[0])
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("no property with slug %q", args[0])
	}

	body, err := calendar.NewExporter(store).Export(ctx, p.ID, p.Name, p.Slug)
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(body)
		return err
	}
	if err := os.WriteFile(exportOutput, body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", exportOutput, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", exportOutput)
	return nil
}
