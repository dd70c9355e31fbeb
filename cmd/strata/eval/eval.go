// Package evalcmder provides the eval command for replaying a golden
// question set through gated retrieval.
package evalcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/cliui"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/evaluate"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/retrieval"
	"github.com/papercomputeco/strata/pkg/stack"
)

type evalCommander struct {
	goldenPath string
	verbose    bool
	debug      bool
	cfg        *config.Config

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

var evalFlags = []string{
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

const evalLongDesc string = `Replay a golden question set through gated retrieval and score it.

The golden file is a JSON array of cases:

  [{"id": "q1", "question": "...", "must_cite": ["docs/a.md"]}]

A case passes when any must-cite document id appears among the accepted
chunks' documents. A case with an empty must_cite list expects the gate
to reject the question; it fails if anything is forwarded. No language
model is involved, this measures retrieval and gating only.

Examples:
  strata eval golden.json
  strata eval golden.json --min-score 0.5 --verbose`

const evalShortDesc string = "Score gated retrieval against a golden set"

func NewEvalCmd() *cobra.Command {
	cmder := &evalCommander{}

	cmd := &cobra.Command{
		Use:   "eval <golden-file>",
		Short: evalShortDesc,
		Long:  evalLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.CommandFlags, evalFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.goldenPath = args[0]

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
	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "Show every case, not only failures")

	return cmd
}

func (c *evalCommander) run(ctx context.Context) error {
	cases, err := evaluate.LoadCases(c.goldenPath)
	if err != nil {
		return err
	}

	log := logger.New(logger.WithDebug(c.debug))

	st, err := stack.Build(c.cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	runner, err := evaluate.NewRunner(st.Retriever, log)
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx, cases)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s %s\n\n",
		cliui.HeaderStyle.Render("Golden set:"),
		cliui.HashStyle.Render(c.goldenPath),
	)

	for _, result := range report.Results {
		if result.Passed && !c.verbose {
			continue
		}
		printResult(result)
	}

	fmt.Printf("\n  %s %d/%d passed (%.0f%%)\n\n",
		cliui.Mark(failErr(report)),
		report.Passed,
		report.Passed+report.Failed,
		report.PassRate()*100,
	)

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d cases failed", report.Failed, report.Passed+report.Failed)
	}
	return nil
}

func printResult(result evaluate.Result) {
	state := string(result.State)
	if result.State == retrieval.StateAccepted {
		state = fmt.Sprintf("%s → %s", state, strings.Join(result.Cited, ", "))
	}

	fmt.Printf("  %s %s  %s\n",
		cliui.Mark(failCase(result)),
		cliui.KeyStyle.Render(result.Case.ID),
		cliui.DimStyle.Render(state),
	)
}

// failErr turns a failed report into a non-nil error for Mark.
func failErr(report *evaluate.Report) error {
	if report.Failed > 0 {
		return fmt.Errorf("failed")
	}
	return nil
}

func failCase(result evaluate.Result) error {
	if !result.Passed {
		return fmt.Errorf("failed")
	}
	return nil
}
