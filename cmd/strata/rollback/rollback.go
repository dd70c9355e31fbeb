// Package rollbackcmder provides the rollback command for restoring an
// earlier version of a document.
package rollbackcmder

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/cliui"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/reconciler"
	"github.com/papercomputeco/strata/pkg/stack"
)

type rollbackCommander struct {
	docID  string
	target int64
	debug  bool
	cfg    *config.Config

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
	brokers         string
	topic           string
}

var rollbackFlags = []string{
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
	config.FlagBrokers,
	config.FlagTopic,
}

const rollbackLongDesc string = `Restore an earlier version of a document.

Rollback never rewrites history: it commits a new version whose chunk
list is identical to the target version's. Chunk ids carry over, so
embeddings that already exist in the index are reused and only ids the
index has since dropped get re-embedded.

Examples:
  strata rollback notes/roadmap.md 3
  strata rollback handbook.md 1`

const rollbackShortDesc string = "Restore an earlier version of a document"

func NewRollbackCmd() *cobra.Command {
	cmder := &rollbackCommander{}

	cmd := &cobra.Command{
		Use:   "rollback <doc-id> <target-version>",
		Short: rollbackShortDesc,
		Long:  rollbackLongDesc,
		Args:  cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.CommandFlags, rollbackFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.docID = args[0]

			var err error
			cmder.target, err = strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid target version %q: %w", args[1], err)
			}

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
	config.AddStringFlag(cmd, fs, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, fs, config.FlagTopic, &cmder.topic)

	return cmd
}

func (c *rollbackCommander) run(ctx context.Context) error {
	log := logger.New(logger.WithDebug(c.debug))

	st, err := stack.Build(c.cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	result, err := st.Indexer.Rollback(ctx, c.docID, c.target)
	if err != nil && !errors.Is(err, reconciler.ErrIndexSyncFailure) {
		return err
	}

	if result.NoChange {
		fmt.Printf("\n  %s %s already has the content of version %d\n\n",
			cliui.DimStyle.Render("●"),
			cliui.ValueStyle.Render(c.docID),
			c.target,
		)
		return nil
	}

	fmt.Printf("\n  %s %s restored to the content of version %d as version %d\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(c.docID),
		c.target,
		result.Version.Number,
	)
	if result.Plan != nil {
		fmt.Printf("  %s %d upserts, %d deletes\n\n",
			cliui.KeyStyle.Render("Index:"),
			len(result.Plan.Upserts),
			len(result.Plan.Deletes),
		)
	}

	if err != nil {
		fmt.Printf("  %s version committed but the index is behind: %v\n", cliui.FailMark, err)
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Run \"strata sync\" to finish reconciliation."))
	}
	return nil
}
