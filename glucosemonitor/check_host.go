//go:build !tinygo

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harveysanders/glucopanel/glucosemonitor/config"
	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
	"github.com/harveysanders/glucopanel/xslog"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Log in once and print the latest reading",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger := xslog.NewLogger(os.Stderr, cfg.LogLevel)
			share, err := newShareClient(cfg, logger)
			if err != nil {
				return err
			}

			client := glucose.NewClient(share, logger)
			out := cmd.OutOrStdout()
			status := client.Login(cmd.Context(), cfg.Dexcom.Username, cfg.Dexcom.Password)
			fmt.Fprintln(out, status.Message())
			if status != glucose.StatusLoggedIn {
				return fmt.Errorf("login: %s", status)
			}

			r := client.PollLatest(cmd.Context())
			if !r.Available() {
				fmt.Fprintln(out, "No glucose data")
				return nil
			}
			fmt.Fprintln(out, r.Text())
			fmt.Fprintln(out, r.Trend.Text())
			if !r.Time.IsZero() {
				fmt.Fprintln(out, r.Time.Local().Format("15:04"))
			}
			return nil
		},
	}
}
