package cmd

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var healthCheckCmd = &cobra.Command{
	Use:   "health-check",
	Short: "Check that a local server answers /api/health",
	Long:  `health-check exits non-zero unless the server reports itself healthy. It is meant for container HEALTHCHECK instructions.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runHealthCheck(healthURL(cfg.Server.Addr)); err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		return nil
	},
}

func init() {
	healthCheckCmd.Flags().String("addr", "", "address the server listens on (default :8099)")
	rootCmd.AddCommand(healthCheckCmd)
}

// healthURL builds the local health endpoint for a listen address.
func healthURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/api/health"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/api/health"
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
