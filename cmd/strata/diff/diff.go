// Package diffcmder provides the diff command for comparing two
// versions of a document.
package diffcmder

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/cliui"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/indexer"
	"github.com/papercomputeco/strata/pkg/stack"
)

type diffCommander struct {
	docID string
	from  int64
	to    int64
	quiet bool
	cfg   *config.Config

	storageProvider string
	sqlitePath      string
	postgresDSN     string
}

var diffFlags = []string{
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagPostgres,
}

const diffLongDesc string = `Compare two versions of a document.

Reports which chunks were added, removed, and carried over unchanged
between the versions, followed by a unified text diff of every chunk
position whose content moved. Unchanged chunks keep their chunk id and
their embedding across versions, so the added/removed sets are exactly
the index work the edit caused.

Use --quiet to print only the summary counts.

Examples:
  strata diff notes/roadmap.md 1 2
  strata diff handbook.md 3 7 --quiet`

const diffShortDesc string = "Compare two versions of a document"

func NewDiffCmd() *cobra.Command {
	cmder := &diffCommander{}

	cmd := &cobra.Command{
		Use:   "diff <doc-id> <from-version> <to-version>",
		Short: diffShortDesc,
		Long:  diffLongDesc,
		Args:  cobra.ExactArgs(3),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.CommandFlags, diffFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.docID = args[0]

			var err error
			cmder.from, err = strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid from-version %q: %w", args[1], err)
			}
			cmder.to, err = strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid to-version %q: %w", args[2], err)
			}

			return cmder.run(cmd.Context())
		},
	}

	fs := config.CommandFlags
	config.AddStringFlag(cmd, fs, config.FlagStorageProvider, &cmder.storageProvider)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgres, &cmder.postgresDSN)
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only summary counts")

	return cmd
}

func (c *diffCommander) run(ctx context.Context) error {
	store, err := stack.NewStore(c.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	diff, err := indexer.DiffVersions(ctx, store, c.docID, c.from, c.to)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s %s\n\n",
		cliui.HeaderStyle.Render("Diff:"),
		cliui.HashStyle.Render(fmt.Sprintf("%s v%d → v%d", diff.DocumentID, diff.FromVersion, diff.ToVersion)),
	)
	fmt.Printf("  %s %s  %s  %s\n\n",
		cliui.KeyStyle.Render("Chunks:"),
		cliui.AddedStyle.Render(fmt.Sprintf("+%d added", len(diff.Added))),
		cliui.RemovedStyle.Render(fmt.Sprintf("-%d removed", len(diff.Removed))),
		cliui.DimStyle.Render(fmt.Sprintf("%d unchanged", len(diff.Unchanged))),
	)

	if c.quiet || diff.Unified == "" {
		return nil
	}

	for _, line := range strings.Split(strings.TrimRight(diff.Unified, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			fmt.Printf("  %s\n", cliui.AddedStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Printf("  %s\n", cliui.RemovedStyle.Render(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Printf("  %s\n", cliui.HashStyle.Render(line))
		default:
			fmt.Printf("  %s\n", cliui.DimStyle.Render(line))
		}
	}
	fmt.Println()

	return nil
}
