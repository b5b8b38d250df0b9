package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/clearledger/internal/bootstrap"
	"github.com/dvloznov/clearledger/internal/infra/bigquery"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export COMPANY",
		Short: "Export a company's transactions to BigQuery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateExport(); err != nil {
				return err
			}
			ctx := cmd.Context()

			txs, err := a.store.Transactions(ctx, args[0])
			if err != nil {
				return err
			}

			bq := a.cfg.BigQuery
			exporter, err := bigquery.NewExporter(ctx, bq.Project, bq.Dataset, bq.Table, bootstrap.ClientOptions(bq.CredentialsFile)...)
			if err != nil {
				return err
			}
			defer exporter.Close()

			a.log.Info().
				Str("company_id", args[0]).
				Int("transactions", len(txs)).
				Str("table", fmt.Sprintf("%s.%s.%s", bq.Project, bq.Dataset, bq.Table)).
				Msg("Exporting transactions")

			sent, err := exporter.Export(ctx, txs)
			if err != nil {
				a.log.Error().Err(err).Int("sent", sent).Msg("Export failed")
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions.\n", sent)
			return nil
		},
	}
}
