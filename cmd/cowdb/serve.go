package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/a-poor/cowdb/db"
	"github.com/a-poor/cowdb/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		listen     string
		autoCommit bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the store over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.Listen = listen
			}
			if cmd.Flags().Changed("auto-commit") {
				a.cfg.AutoCommit = autoCommit
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.withDB(func(d *db.DB) error {
				return a.serve(ctx, d)
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default \":3000\")")
	cmd.Flags().BoolVar(&autoCommit, "auto-commit", false, "commit after every write request")
	return cmd
}

// serve runs the HTTP server until ctx is done or the listener fails.
func (a *app) serve(ctx context.Context, d *db.DB) error {
	srv := server.New(d, a.log, a.cfg.AutoCommit)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Listen(a.cfg.Listen)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		a.log.Info("shutting down", zap.String("addr", a.cfg.Listen))
		if err := srv.Shutdown(); err != nil {
			return err
		}
		return <-errc
	}
}
