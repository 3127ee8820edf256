package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/easygit/internal/api"
	"github.com/sprite-ai/easygit/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP bridge",
	Long: `Start a loopback HTTP server that drives the same session as the
interactive browser, for other front ends.

Endpoints:
  GET  /health        Health check
  GET  /api/session   Current state snapshot
  POST /api/login     Sign in with {"token": "..."}
  POST /api/logout    Sign out
  POST /api/refresh   Reload repositories
  GET  /api/ws        WebSocket: send selections and actions, receive state`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "127.0.0.1", "address to listen on")
	serveCmd.Flags().IntP("port", "p", 6142, "port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	port, _ := cmd.Flags().GetInt("port")

	e, err := setup(cmd, logStderr)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	bridge := api.NewBridge(e.controller(), e.sub("[bridge] "))
	go bridge.Run(ctx)
	if _, err := bridge.Do(ctx, (*app.Controller).Restore); err != nil {
		return err
	}

	if w := e.watch(); w != nil {
		defer w.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-w.Changes():
					bridge.Do(ctx, (*app.Controller).SyncWithStore)
				}
			}
		}()
	}

	srv := api.New(fmt.Sprintf("%s:%d", addr, port), bridge, e.sub("[api] "))
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		e.logger.Printf("shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	}
}
