//go:build !tinygo

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harveysanders/glucopanel/glucosemonitor/config"
	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
	"github.com/harveysanders/glucopanel/glucosemonitor/relay"
	"github.com/harveysanders/glucopanel/glucosemonitor/touch"
	"github.com/harveysanders/glucopanel/xslog"
)

func relayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Publish the latest reading to MQTT for panels without HTTPS",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.MQTT.Addr == "" {
				return errors.New("MQTT_ADDR is required for relay")
			}
			logger := xslog.NewLogger(os.Stderr, cfg.LogLevel)

			share, err := newShareClient(cfg, logger)
			if err != nil {
				return err
			}
			pub := newPublisher(cfg, logger)
			defer pub.Close()

			b := &relay.Bridge{
				Client:   glucose.NewClient(share, logger),
				Pub:      pub,
				Username: cfg.Dexcom.Username,
				Password: cfg.Dexcom.Password,
				Interval: cfg.RefreshInterval,
				Sleep:    touch.Sleep,
				Logger:   logger,
			}
			return ignoreCanceled(b.Run(cmd.Context()))
		},
	}
}
