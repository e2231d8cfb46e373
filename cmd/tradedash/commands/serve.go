package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alphadesk/tradedash/internal/api"
	"github.com/alphadesk/tradedash/internal/api/handlers"
	"github.com/alphadesk/tradedash/internal/runner"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the performance dashboard HTTP server.

Endpoints:
  GET  /              - HTML dashboard (?source=remote|local|latest|dataset)
  GET  /api/view      - full view as JSON
  GET  /api/kpis      - metric cards
  GET  /api/trend     - historical Sharpe series
  GET  /api/runs      - recent batch runs
  GET  /ws            - live view over websocket
  GET  /health        - health check
  GET  /metrics       - Prometheus metrics

Example:
  go run ./cmd/tradedash serve
  go run ./cmd/tradedash serve --port 8080`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "dashboard port (default $PORT or 8501)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== tradedash Dashboard ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	cfg, log := d.cfg, d.log
	if servePort != "" {
		cfg.Port = servePort
	}

	svc := d.newDashboard()

	var runs runner.RunStore
	if d.db != nil {
		runs, err = d.runStore(cmd.Context())
		if err != nil {
			return fmt.Errorf("init run store: %w", err)
		}
	}

	dash := handlers.NewDashboardHandler(svc, runs, log)
	live := handlers.NewLiveHandler(dash, cfg.Dashboard.WSInterval)
	router := api.NewRouter(dash, live, api.RouterConfig{
		MetricsEnabled: cfg.MetricsEnabled,
		Version:        Version,
		DB:             d.db,
	}, log)

	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	PrintSuccess(fmt.Sprintf("Server running on http://localhost:%s", cfg.Port))
	fmt.Println("\nSources:")
	PrintList(svc.Sources())
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
