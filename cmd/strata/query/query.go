// Package querycmder provides the query command for gated retrieval
// over the indexed corpus.
package querycmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/cliui"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/retrieval"
	"github.com/papercomputeco/strata/pkg/stack"
	"github.com/papercomputeco/strata/pkg/utils"
)

type queryCommander struct {
	query string
	quiet bool
	full  bool
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
	topK            uint
	minScore        float64
	floorScore      float64
	scoreWindow     float64
	maxContexts     uint
	minMatches      uint
}

var queryFlags = []string{
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
	config.FlagTopK,
	config.FlagMinScore,
	config.FlagFloorScore,
	config.FlagScoreWindow,
	config.FlagMaxContexts,
	config.FlagMinMatches,
}

const queryLongDesc string = `Run a gated retrieval query against the indexed corpus.

The question is embedded and matched against the vector index; hits
that are no longer part of their document's latest version are dropped,
and the remainder must clear the confidence gate. A query whose best
match falls below --min-score is rejected with "insufficient
information" rather than returning weak evidence.

Use --quiet to output only chunk ids, one per line, for piping.

Examples:
  strata query "how is rollback implemented"
  strata query "release schedule" --min-score 0.5 --top-k 12
  strata query "deploy steps" --quiet`

const queryShortDesc string = "Query the corpus with confidence gating"

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.CommandFlags, queryFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

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
	config.AddUintFlag(cmd, fs, config.FlagTopK, &cmder.topK)
	config.AddFloat64Flag(cmd, fs, config.FlagMinScore, &cmder.minScore)
	config.AddFloat64Flag(cmd, fs, config.FlagFloorScore, &cmder.floorScore)
	config.AddFloat64Flag(cmd, fs, config.FlagScoreWindow, &cmder.scoreWindow)
	config.AddUintFlag(cmd, fs, config.FlagMaxContexts, &cmder.maxContexts)
	config.AddUintFlag(cmd, fs, config.FlagMinMatches, &cmder.minMatches)
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only chunk ids, one per line (for piping)")
	cmd.Flags().BoolVar(&cmder.full, "full", false, "Print full chunk text instead of a one-line preview")

	return cmd
}

func (c *queryCommander) run(ctx context.Context) error {
	log := logger.New(logger.WithDebug(c.debug))

	st, err := stack.Build(c.cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	outcome, err := st.Retriever.Query(ctx, c.query)
	if err != nil {
		return err
	}

	if !outcome.Accepted() {
		if c.quiet {
			return nil
		}
		fmt.Printf("\n  %s %s\n\n",
			cliui.DimStyle.Render("●"),
			cliui.DimStyle.Render(outcome.Reason),
		)
		return nil
	}

	if c.quiet {
		for _, context := range outcome.Contexts {
			fmt.Println(context.ChunkID)
		}
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		cliui.HeaderStyle.Render("Evidence for:"),
		cliui.HashStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, context := range outcome.Contexts {
		c.printContext(i+1, context)
	}

	return nil
}

func (c *queryCommander) printContext(rank int, context retrieval.Context) {
	fmt.Printf("  %s  %s  %s\n",
		cliui.RankStyle.Render(fmt.Sprintf("#%d", rank)),
		cliui.ScoreStyle.Render(fmt.Sprintf("score: %.4f", context.Score)),
		cliui.HashStyle.Render(fmt.Sprintf("%s v%d [%d:%d]",
			context.DocumentID, context.Version, context.StartOffset, context.EndOffset)),
	)

	if c.full {
		for _, line := range strings.Split(strings.TrimRight(context.Text, "\n"), "\n") {
			fmt.Printf("  %s\n", cliui.PreviewStyle.Render(line))
		}
		fmt.Println()
		return
	}

	preview := strings.ReplaceAll(context.Text, "\n", " ")
	fmt.Printf("  %s\n\n", cliui.PreviewStyle.Render(utils.Truncate(preview, 100)))
}
