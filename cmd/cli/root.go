package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/clearledger/internal/bootstrap"
	"github.com/dvloznov/clearledger/internal/config"
	"github.com/dvloznov/clearledger/internal/ledger"
	"github.com/dvloznov/clearledger/internal/logger"
	"github.com/dvloznov/clearledger/internal/shell"
)

// app carries what every subcommand needs once the root has initialised.
type app struct {
	configPath string
	openStore  func(context.Context, *config.Config, zerolog.Logger) (*ledger.Store, func() error, error)

	cfg        *config.Config
	log        zerolog.Logger
	store      *ledger.Store
	closeStore func() error
}

// newCLI builds the command tree and the state its commands share. Callers
// run it with execute so the store is released whatever the outcome.
func newCLI() (*cobra.Command, *app) {
	a := &app{openStore: bootstrap.OpenStore}

	root := &cobra.Command{
		Use:   "clearledger",
		Short: "Keep per-company transaction ledgers",
		Long: `ClearLedger records monetary transactions for any number of companies,
each kept in its own isolated ledger, and summarizes them by category.

Run without a command to start the interactive session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, a)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file (toml, yaml or json)")

	root.AddCommand(
		newShellCmd(a),
		newCompaniesCmd(a),
		newTxCmd(a),
		newSummaryCmd(a),
		newExportCmd(a),
	)
	return root, a
}

// execute runs root and then closes the store opened for it. Cobra skips
// post-run hooks when a command fails, so closing happens here.
func execute(root *cobra.Command, a *app) error {
	err := root.Execute()
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (a *app) close() error {
	if a.closeStore == nil {
		return nil
	}
	closeStore := a.closeStore
	a.closeStore = nil
	return closeStore()
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	log, err := bootstrap.Logger(cfg)
	if err != nil {
		return err
	}
	log = logger.WithFields(log, map[string]interface{}{"component": "cli"})
	store, closeStore, err := a.openStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.store = store
	a.closeStore = closeStore
	return nil
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, a)
		},
	}
}

func runShell(cmd *cobra.Command, a *app) error {
	ctx := logger.WithContext(cmd.Context(), a.log)
	if err := shell.New(a.store, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx); err != nil {
		a.log.Error().Err(err).Msg("Session ended with error")
		return err
	}
	return nil
}
