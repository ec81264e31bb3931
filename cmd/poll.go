package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var pollWatch bool

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Reconcile finished calls from the provider's conversation listing",
	Long:  "Performs one reconciliation sweep over recent conversations, or keeps polling with --watch. Calls already reconciled via webhook are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if pollWatch {
			if err := env.Poller.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		}
		return env.Poller.Sweep(ctx)
	},
}

func init() {
	pollCmd.Flags().BoolVar(&pollWatch, "watch", false, "poll continuously until interrupted")
	rootCmd.AddCommand(pollCmd)
}
