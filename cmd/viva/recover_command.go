package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"viva/internal/correlate"
	"viva/internal/recovery"
	"viva/internal/services/voice"
	"viva/internal/store"
)

func newRecoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Run one recovery sweep over stuck submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			logger := ctx.cliLogger()
			engine := correlate.NewEngine(st, cfg.Grading.MinCallSeconds, logger)
			client := voice.NewClient(voice.Config{
				APIKey:         cfg.Voice.APIKey,
				BaseURL:        cfg.Voice.BaseURL,
				AgentID:        cfg.Voice.AgentID,
				TimeoutSeconds: cfg.Voice.TimeoutSeconds,
			})
			scanner := recovery.NewScanner(
				st, client, engine,
				time.Duration(cfg.Recovery.GracePeriodSeconds)*time.Second,
				time.Duration(cfg.Recovery.SweepIntervalSeconds)*time.Second,
				logger,
			)

			outcome, err := scanner.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"scanned %d stuck submission(s): %d recovered, %d still pending, %d failed\n",
				outcome.Scanned, outcome.Recovered, outcome.Pending, outcome.Failed)
			return nil
		},
	}
}
