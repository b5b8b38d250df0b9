package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompaniesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "companies",
		Short: "List and create companies",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List company ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.store.ListCompanyIDs(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create ID NAME",
		Short: "Create a company",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.CreateCompany(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Company created successfully.")
			return nil
		},
	})

	return cmd
}
