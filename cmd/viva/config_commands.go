package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"viva/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCommand(ctx))
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = *ctx.configFlag
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}

			if _, err := os.Stat(path); err == nil && !forceFlag {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote sample config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing config file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "data_dir:        %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "log_dir:         %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "template_dir:    %s\n", cfg.Paths.TemplateDir)
			fmt.Fprintf(out, "question_bank:   %s\n", orDefault(cfg.Paths.QuestionBank, "<embedded>"))
			fmt.Fprintf(out, "api_bind:        %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "api_token:       %s\n", maskSecret(cfg.Paths.APIToken))
			fmt.Fprintf(out, "max_essay_chars: %d\n", cfg.Intake.MaxEssayChars)
			fmt.Fprintf(out, "questions:       %d content + %d process\n",
				cfg.Intake.ContentQuestions, cfg.Intake.ProcessQuestions)
			fmt.Fprintf(out, "voice:           %s (key %s, webhook secret %s)\n",
				cfg.Voice.BaseURL, maskSecret(cfg.Voice.APIKey), maskSecret(cfg.Voice.WebhookSecret))
			fmt.Fprintf(out, "scorer:          %s model=%s (key %s)\n",
				cfg.Scorer.BaseURL, cfg.Scorer.Model, maskSecret(cfg.Scorer.APIKey))
			fmt.Fprintf(out, "min_call:        %ds\n", cfg.Grading.MinCallSeconds)
			fmt.Fprintf(out, "recovery:        grace %ds, sweep every %ds\n",
				cfg.Recovery.GracePeriodSeconds, cfg.Recovery.SweepIntervalSeconds)
			fmt.Fprintf(out, "logging:         %s/%s\n", cfg.Logging.Format, cfg.Logging.Level)
			return nil
		},
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func maskSecret(value string) string {
	if value == "" {
		return "<unset>"
	}
	return "set"
}
