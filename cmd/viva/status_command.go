package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"viva/internal/config"
	"viva/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show submission counts per lifecycle state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				health, err := st.Health(cmd.Context())
				if err != nil {
					return err
				}

				rows := [][]string{
					{"total", fmt.Sprint(health.Total)},
					{"open", fmt.Sprint(health.Open)},
					{"defense_complete", fmt.Sprint(health.DefenseComplete)},
					{"excluded", fmt.Sprint(health.Excluded)},
					{"graded", fmt.Sprint(health.Graded)},
					{"reviewed", fmt.Sprint(health.Reviewed)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"STATE", "COUNT"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				fmt.Fprintf(cmd.OutOrStdout(), "database: %s\n", st.Path())
				return nil
			})
		},
	}
}
