package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dvloznov/clearledger/internal/ledger"
)

func newTxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Add, list, edit and delete transactions",
	}
	cmd.AddCommand(
		newTxAddCmd(a),
		newTxListCmd(a),
		newTxEditCmd(a),
		newTxDeleteCmd(a),
	)
	return cmd
}

func newTxAddCmd(a *app) *cobra.Command {
	var description, amount, category string

	cmd := &cobra.Command{
		Use:   "add COMPANY",
		Short: "Add a transaction dated today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("amount must be a number: %q", amount)
			}
			company := ledger.NormalizeCompanyID(args[0])
			tx := ledger.NewTransaction(company, description, value, category)
			if err := a.store.AddTransaction(cmd.Context(), company, tx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transaction added: %s\n", tx.TransactionID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "transaction description")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "signed amount, e.g. -12.50")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category used for summaries")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newTxListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list COMPANY",
		Short: "List a company's transactions with their index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := a.store.Transactions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(txs)
			}
			if len(txs) == 0 {
				fmt.Fprintln(out, "No transactions found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tDATE\tDESCRIPTION\tAMOUNT\tCATEGORY")
			for i, t := range txs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, t.Date, t.Description, t.Amount.StringFixed(2), t.Category)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print transactions as JSON")
	return cmd
}

func newTxEditCmd(a *app) *cobra.Command {
	var description, amount, category string

	cmd := &cobra.Command{
		Use:   "edit COMPANY INDEX",
		Short: "Change fields of the transaction at INDEX",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}

			var upd ledger.TransactionUpdate
			flags := cmd.Flags()
			if flags.Changed("description") {
				upd.Description = &description
			}
			if flags.Changed("category") {
				upd.Category = &category
			}
			if flags.Changed("amount") {
				value, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("amount must be a number: %q", amount)
				}
				upd.Amount = &value
			}
			if upd.IsEmpty() {
				return errors.New("nothing to update: set --description, --amount or --category")
			}

			if err := a.store.UpdateTransaction(cmd.Context(), args[0], index, upd); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Transaction updated.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "new amount")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")
	return cmd
}

func newTxDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete COMPANY INDEX",
		Short: "Delete the transaction at INDEX",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			if err := a.store.DeleteTransaction(cmd.Context(), args[0], index); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Transaction deleted.")
			return nil
		},
	}
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary COMPANY",
		Short: "Sum amounts by category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			totals, err := a.store.CategoryTotals(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(totals) == 0 {
				fmt.Fprintln(out, "No data to summarize.")
				return nil
			}
			for _, ct := range totals {
				fmt.Fprintf(out, "%s: %s\n", ct.Category, ct.Total.StringFixed(2))
			}
			return nil
		},
	}
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ledger.ErrInvalidIndex, s)
	}
	return index, nil
}
