// Package cmd implements the locapp command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/locapp/backend/internal/calendar"
	"github.com/locapp/backend/internal/config"
	"github.com/locapp/backend/internal/storage"
)

var (
	cfgFile  string
	envFiles []string

	v   = config.New()
	cfg *config.Config

	version = "dev"
)

// flagKeys maps command line flags to configuration keys. A flag only
// overrides the configuration when it is set explicitly.
var flagKeys = map[string]string{
	"addr":          "server.addr",
	"data-dir":      "server.data_dir",
	"static":        "server.static_dir",
	"sync-interval": "calendar.sync_interval",
	"concurrency":   "calendar.sync_concurrency",
	"timeout":       "calendar.fetch_timeout",
}

var rootCmd = &cobra.Command{
	Use:   "locapp",
	Short: "Calendar sync server for LocApp rentals",
	Long: `locapp imports the iCal feeds of booking platforms (Airbnb, Booking.com,
VRBO, ...), reconciles them into one calendar per property and publishes
the result as an iCal feed the platforms can subscribe to.

Configuration is read from locapp.yaml, a .env file and LOCAPP_* variables.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute(ver string) {
	if ver != "" {
		version = ver
	}
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./locapp.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load, missing files are skipped")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the SQLite database")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}
	if err := bindFlags(cmd); err != nil {
		return err
	}

	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// bindFlags binds the flags of the command being run. Binding happens here
// rather than in init because several commands share a configuration key.
func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func openStore() (*storage.DB, *storage.CalendarStore, error) {
	db, err := storage.Open(cfg.Server.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return db, storage.NewCalendarStore(db), nil
}

func newSyncService(store *storage.CalendarStore, notifier calendar.Notifier) *calendar.SyncService {
	fetcher := calendar.NewFetcher(cfg.Calendar.FetchTimeout, cfg.Calendar.UserAgent)
	return calendar.NewSyncService(store, fetcher, calendar.SyncOptions{
		Concurrency: cfg.Calendar.SyncConcurrency,
		Notifier:    notifier,
	})
}
