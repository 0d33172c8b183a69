package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"viva/internal/grading"
	"viva/internal/services/scorer"
	"viva/internal/store"
)

func newGradeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "grade [session-id]",
		Short: "Grade one submission, or every eligible submission",
		Long: `Grade runs the AI scorer over completed defenses. With a session id it
grades that one submission; without arguments it grades everything in
defense_complete. Excluded submissions are always skipped.`,
		Args: cobra.MaximumNArgs(1),
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

			client := scorer.NewClient(scorer.Config{
				APIKey:         cfg.Scorer.APIKey,
				BaseURL:        cfg.Scorer.BaseURL,
				Model:          cfg.Scorer.Model,
				TimeoutSeconds: cfg.Scorer.TimeoutSeconds,
			})
			grader := grading.NewGrader(st, client, ctx.cliLogger())

			if len(args) == 1 {
				sub, err := grader.Grade(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "graded %s: multiplier %s\n",
					sub.SessionID, grading.FormatMultiplier(sub.GradeMultiplier))
				return nil
			}

			outcome, err := grader.GradeEligible(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "graded %d submission(s), %d failed\n",
				outcome.Graded, outcome.Failed)
			return nil
		},
	}
}
