/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/recipebox/apiserver/config"
	"github.com/recipebox/apiserver/internal/logger"
	"github.com/recipebox/apiserver/internal/mq"
	"github.com/recipebox/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume and log recipe events from the configured broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

		broker, err := mq.NewFromConfig(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND must be configured to consume events")
		}
		defer broker.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info("consuming recipe events", "channel", cfg.MQ.EventsChannel)
		err = broker.Subscribe(ctx, cfg.MQ.EventsChannel, services.NewRecipeEventLogger(log))
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
