// Package statuscmder provides the status command for listing every
// document's head version and sync state.
package statuscmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/cliui"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/dotdir"
	"github.com/papercomputeco/strata/pkg/stack"
	"github.com/papercomputeco/strata/pkg/versions"
)

type statusCommander struct {
	configDir string
	cfg       *config.Config

	storageProvider string
	sqlitePath      string
	postgresDSN     string
}

var statusFlags = []string{
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagPostgres,
}

const statusLongDesc string = `List every document with its latest version, chunk count, content
hash, and whether the vector index has caught up with it.

A document marked "pending" has a committed version whose
reconciliation has not finished; "strata sync" completes it.

Examples:
  strata status`

const statusShortDesc string = "Show every document's head version"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.CommandFlags, statusFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	fs := config.CommandFlags
	config.AddStringFlag(cmd, fs, config.FlagStorageProvider, &cmder.storageProvider)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgres, &cmder.postgresDSN)

	return cmd
}

func (c *statusCommander) run(ctx context.Context) error {
	store, err := stack.NewStore(c.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	statuses, err := store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	printBinding(c.configDir)

	if len(statuses) == 0 {
		fmt.Printf("  %s No documents ingested yet. Run \"strata ingest <path>\" first.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("%d documents", len(statuses))))

	for _, status := range statuses {
		printStatus(status)
	}

	fmt.Println()
	return nil
}

// printBinding shows which corpus root the last ingest scan bound, when
// one is recorded.
func printBinding(configDir string) {
	state, err := dotdir.NewManager().LoadCorpusState(configDir)
	if err != nil || state == nil {
		return
	}

	fmt.Printf("\n  %s %s  %s\n",
		cliui.KeyStyle.Render("Corpus:"),
		cliui.ValueStyle.Render(state.Root),
		cliui.DimStyle.Render(fmt.Sprintf("last scan %s, %d documents, %d chunks",
			state.LastScan.Local().Format(time.RFC3339), state.Documents, state.Chunks)),
	)
}

func printStatus(status versions.DocumentStatus) {
	sync := cliui.AddedStyle.Render("synced")
	if !status.Synced {
		sync = cliui.RemovedStyle.Render("pending")
	}

	fmt.Printf("  %s  %s  %s  %s  %s\n",
		cliui.KeyStyle.Render(status.ID),
		cliui.ValueStyle.Render(fmt.Sprintf("v%d", status.LatestVersion)),
		cliui.DimStyle.Render(fmt.Sprintf("%d chunks", status.ChunkCount)),
		cliui.HashStyle.Render(shortHash(status.ContentHash)),
		sync,
	)
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
