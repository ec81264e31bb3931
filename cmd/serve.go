package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/procuroid/procurement-engine/internal/api"
)

var (
	servePort   int
	serveNoPoll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and transcript webhook server",
	Long:  "Serves procurement intake, workflow inspection and approval, the transcript webhook, and supplier management. Also runs the transcript poller unless --no-poll is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// The poller backstops webhook delivery: calls whose webhook never
		// arrived are picked up from the conversation listing.
		if !serveNoPoll {
			go func() {
				if err := env.Poller.Run(ctx); err != nil && ctx.Err() == nil {
					zap.L().Error("poller exited", zap.Error(err))
				}
			}()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.NewServer(env.Store, env.Coordinator, env.Reconciler).Router(cfg.Server),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoPoll, "no-poll", false, "disable the background transcript poller")
	rootCmd.AddCommand(serveCmd)
}
