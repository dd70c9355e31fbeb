// Package stratacmder
package stratacmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/strata/cmd/strata/config"
	diffcmder "github.com/papercomputeco/strata/cmd/strata/diff"
	evalcmder "github.com/papercomputeco/strata/cmd/strata/eval"
	ingestcmder "github.com/papercomputeco/strata/cmd/strata/ingest"
	initcmder "github.com/papercomputeco/strata/cmd/strata/init"
	querycmder "github.com/papercomputeco/strata/cmd/strata/query"
	rollbackcmder "github.com/papercomputeco/strata/cmd/strata/rollback"
	statuscmder "github.com/papercomputeco/strata/cmd/strata/status"
	synccmder "github.com/papercomputeco/strata/cmd/strata/sync"
	versioncmder "github.com/papercomputeco/strata/cmd/strata/version"
	watchcmder "github.com/papercomputeco/strata/cmd/strata/watch"
)

const strataLongDesc string = `Strata is an incremental indexing and versioning engine for a mutable
document corpus.

Every ingest commits an immutable version of a document, re-embeds only
the chunks whose content actually changed, and keeps the vector index
reconciled with the latest version of every document. Queries are gated
by confidence before anything downstream sees them.

Typical flow:
  strata init                      Create a local .strata/ directory
  strata ingest ./docs             Index a directory of documents
  strata query "how do I ..."      Ask a question against the index
  strata status                    Show every document's head version
  strata diff mydoc 1 2            Compare two versions of a document
  strata rollback mydoc 1          Restore an earlier version`

const strataShortDesc string = "Strata - Incremental Corpus Indexing"

func NewStrataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strata",
		Short: strataShortDesc,
		Long:  strataLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .strata/ directory location")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(diffcmder.NewDiffCmd())
	cmd.AddCommand(rollbackcmder.NewRollbackCmd())
	cmd.AddCommand(synccmder.NewSyncCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(evalcmder.NewEvalCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
