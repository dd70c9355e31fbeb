// Package synccmder provides the `strata sync` CLI command.
package synccmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/cliui"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/stack"
)

type syncCommander struct {
	debug bool
	cfg   *config.Config

	storageProvider string
	sqlitePath      string
	postgresDSN     string
	vectorProvider  string
	vectorTarget    string
	vectorDBPath    string
	collection      string
	embedProvider   string
	embedTarget     string
	embedModel      string
	embedDims       uint
}

var syncFlags = []string{
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorDBPath,
	config.FlagCollection,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
}

const syncLongDesc string = `Finish pending index reconciliations.

A version whose commit succeeded but whose reconciliation failed (the
embedding provider or the vector index was unavailable) stays marked
pending. Sync replays reconciliation for every pending document; the
plan is recomputed from the version store, so re-running it never
duplicates index work.

Examples:
  strata sync`

const syncShortDesc string = "Finish pending index reconciliations"

func NewSyncCmd() *cobra.Command {
	cmder := &syncCommander{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: syncShortDesc,
		Long:  syncLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.CommandFlags, syncFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	fs := config.CommandFlags
	config.AddStringFlag(cmd, fs, config.FlagStorageProvider, &cmder.storageProvider)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, fs, config.FlagVectorDBPath, &cmder.vectorDBPath)
	config.AddStringFlag(cmd, fs, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingProv, &cmder.embedProvider)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &cmder.embedDims)

	return cmd
}

func (c *syncCommander) run(ctx context.Context) error {
	log := logger.New(logger.WithDebug(c.debug))

	st, err := stack.Build(c.cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var synced int
	if err := cliui.Step(os.Stdout, "Reconciling pending documents", func() error {
		var syncErr error
		synced, syncErr = st.Indexer.Resync(ctx)
		return syncErr
	}); err != nil {
		if synced > 0 {
			fmt.Printf("\n  %s %d documents synced before the failure\n\n", cliui.DimStyle.Render("●"), synced)
		}
		return err
	}

	if synced == 0 {
		fmt.Printf("\n  %s Nothing pending, the index is up to date\n\n", cliui.SuccessMark)
		return nil
	}

	fmt.Printf("\n  %s %d documents reconciled\n\n", cliui.SuccessMark, synced)
	return nil
}
