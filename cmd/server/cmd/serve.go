package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/locapp/backend/internal/api"
	"github.com/locapp/backend/internal/calendar"
	"github.com/locapp/backend/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background calendar sync",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP server address (default :8099)")
	serveCmd.Flags().String("static", "", "directory for static frontend files")
	serveCmd.Flags().Duration("sync-interval", 0, "background sync interval, 0 disables it (default 30m)")
	serveCmd.Flags().Int("concurrency", 0, "sources of one property synced at once (default 1)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Printf("Starting LocApp calendar server (version: %s)...", version)

	db, store, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	log.Println("Database migrations complete")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	syncService := newSyncService(store, websocket.NewEventBroadcaster(hub))

	var scheduler *calendar.Scheduler
	if cfg.Calendar.SchedulerEnabled() {
		scheduler = calendar.NewScheduler(syncService, cfg.Calendar.SyncInterval)
		if err := scheduler.Start(); err != nil {
			log.Printf("Warning: Failed to start calendar scheduler: %v", err)
			scheduler = nil
		} else {
			defer scheduler.Stop()
			go scheduler.RunOnce(ctx)
		}
	} else {
		log.Println("Background calendar sync disabled")
	}

	router := api.NewRouter(api.Dependencies{
		DB:          db,
		Store:       store,
		SyncService: syncService,
		Hub:         hub,
		Scheduler:   scheduler,
		StaticDir:   cfg.Server.StaticDir,
	})

	// Manual sync requests block until every source has been fetched.
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
