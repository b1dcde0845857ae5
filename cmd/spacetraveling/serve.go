package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iMitio/spacetraveling/internal/api"
	"github.com/iMitio/spacetraveling/internal/api/handlers"
	"github.com/iMitio/spacetraveling/internal/pagination"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the listing page and the posts API",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				if port < 1 || port > 65535 {
					return fmt.Errorf("invalid --port %d: must be between 1 and 65535", port)
				}
				a.cfg.Server.Port = port
			}
			return a.serve(cmd.Context())
		}),
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (overrides server.port)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	client, err := a.client()
	if err != nil {
		return fmt.Errorf("creating prismic client: %w", err)
	}
	view, err := a.view()
	if err != nil {
		return err
	}

	// Drop cache entries nobody can read any more. With the cache disabled
	// that is all of them.
	n, err := a.store.PurgeCachedPages(ctx, a.cfg.Cache.TTL())
	if err != nil {
		slog.Warn("failed to purge page cache", "error", err)
	} else if n > 0 {
		slog.Info("purged stale cached pages", "count", n)
	}

	listing := &handlers.Listing{
		Loader:     a.loader(client),
		Controller: pagination.NewController(client),
		View:       view,
		Title:      a.cfg.Site.Title,
		MaxPages:   a.cfg.Site.MaxPages,
	}
	router := api.NewRouter(listing, a.store)

	// Determine server address (localhost only for security).
	addr := fmt.Sprintf("localhost:%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      a.cfg.CMS.Timeout() * time.Duration(a.cfg.Site.MaxPages+1),
		IdleTimeout:       2 * time.Minute,
	}

	// Auto-open browser after a short delay to let the server start.
	if a.cfg.Server.AutoOpenBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser("http://" + addr)
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// openBrowser opens the given URL in the user's default browser.
// It is a fire-and-forget operation; errors are silently ignored.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}
