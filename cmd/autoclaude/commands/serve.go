package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/r3e-network/AutoClaude-sub004/internal/httpapi"
	"github.com/r3e-network/AutoClaude-sub004/internal/printer"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline with an HTTP API",
	Long: `Serve starts the coordinator and exposes it over HTTP:

  POST /tasks       submit a task
  GET  /tasks/{id}  poll task status
  GET  /queue       queue and progress counters
  GET  /agents      agent pool status
  GET  /locks       resource lock table
  GET  /healthz     liveness probe

The server runs until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", "127.0.0.1:8750", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return printer.Error("Could not start pipeline", err.Error(), nil)
	}
	defer a.shutdown()

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           httpapi.NewServer(a.coord),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	printer.Success("Listening on http://%s\n", serveAddr)

	select {
	case <-ctx.Done():
		printer.Step("Shutting down\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return printer.Error("Server failed", err.Error(), []string{
			"Check that the listen address is free",
		})
	}
}
