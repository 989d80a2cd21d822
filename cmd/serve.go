package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/rntrec/internal/api"
	"github.com/KaramelBytes/rntrec/internal/logging"
	"github.com/KaramelBytes/rntrec/internal/snapshot"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations and reports as JSON over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") && serveAddr != "" {
			c.ListenAddr = serveAddr
		}
		store, err := snapshot.New(c.CacheSize)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logging.Component("serve")
		loader := api.StoreLoader(store, c.Source, c.DatasetOptions())
		// Warm the cache; a missing source is reported per request, not fatal.
		if _, err := loader(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v\n", err)
		}

		srv := &http.Server{
			Addr:              c.ListenAddr,
			Handler:           api.NewServer(c, loader).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on http://%s (source %s)\n", c.ListenAddr, c.Source)
		log.Info().Str("addr", c.ListenAddr).Str("source", c.Source).Msg("server started")

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("listen: %w", err)
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}
