// Package ingestcmder provides the ingest command for indexing a file
// or a directory of documents.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/cliui"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/corpus"
	"github.com/papercomputeco/strata/pkg/dotdir"
	"github.com/papercomputeco/strata/pkg/indexer"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/reconciler"
	"github.com/papercomputeco/strata/pkg/stack"
)

type ingestCommander struct {
	path      string
	docID     string
	debug     bool
	configDir string
	cfg       *config.Config

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
	chunkSize       uint
	chunkOverlap    uint
	brokers         string
	topic           string
	extensions      string
	maxFileBytes    uint
}

var ingestFlags = []string{
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
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagBrokers,
	config.FlagTopic,
	config.FlagExtensions,
	config.FlagMaxFileBytes,
}

const ingestLongDesc string = `Ingest a document file or a directory of documents.

Each file is committed as a new immutable version of its document.
Content that has not changed since the latest version is skipped
entirely; edits re-embed only the chunks whose fingerprint moved.

For a directory, every eligible file (by extension, see --extensions)
is ingested keyed by its slash-normalized relative path. For a single
file, the document id defaults to the file name; override it with
--doc-id to re-ingest the same logical document from another path.

If reconciliation against the vector index fails, the version stays
committed and "strata sync" finishes the index work later.

Examples:
  strata ingest ./docs
  strata ingest notes/roadmap.md
  strata ingest release.txt --doc-id releases/2026-08`

const ingestShortDesc string = "Ingest a file or directory into the index"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.CommandFlags, ingestFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.path = args[0]

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
	config.AddUintFlag(cmd, fs, config.FlagChunkSize, &cmder.chunkSize)
	config.AddUintFlag(cmd, fs, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddStringFlag(cmd, fs, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, fs, config.FlagTopic, &cmder.topic)
	config.AddStringFlag(cmd, fs, config.FlagExtensions, &cmder.extensions)
	config.AddUintFlag(cmd, fs, config.FlagMaxFileBytes, &cmder.maxFileBytes)
	cmd.Flags().StringVar(&cmder.docID, "doc-id", "", "Document id for a single-file ingest (default: file name)")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context) error {
	log := logger.New(logger.WithDebug(c.debug))

	st, err := stack.Build(c.cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", c.path, err)
	}

	if info.IsDir() {
		return c.ingestDir(ctx, st)
	}
	return c.ingestFile(ctx, st, info.Size())
}

func (c *ingestCommander) ingestDir(ctx context.Context, st *stack.Stack) error {
	scanner, err := corpus.NewScanner(st.Indexer, corpus.Config{
		Dir:         c.path,
		MaxFileSize: int64(c.cfg.Corpus.MaxFileBytes),
		Extensions:  splitExtensions(c.cfg.Corpus.Extensions),
	}, logger.New(logger.WithDebug(c.debug)))
	if err != nil {
		return err
	}

	var summary *corpus.Summary
	if err := cliui.Step(os.Stdout, fmt.Sprintf("Scanning %s", c.path), func() error {
		var scanErr error
		summary, scanErr = scanner.Scan(ctx)
		return scanErr
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s %d scanned, %d changed, %d unchanged\n",
		cliui.KeyStyle.Render("Documents:"),
		summary.DocsScanned, summary.DocsChanged, summary.DocsUnchanged,
	)
	fmt.Printf("  %s %d added, %d updated, %d removed\n",
		cliui.KeyStyle.Render("Chunks:   "),
		summary.ChunksAdded, summary.ChunksUpdated, summary.ChunksRemoved,
	)
	fmt.Printf("  %s %d upserts, %d deletes\n\n",
		cliui.KeyStyle.Render("Index:    "),
		summary.Upserts, summary.Deletes,
	)

	c.saveBinding(summary)
	return nil
}

// saveBinding records the scanned directory as the bound corpus root so
// "strata watch" and "strata status" can default to it. The binding is
// advisory: without a .strata/ directory nothing is written and the
// scan result stands.
func (c *ingestCommander) saveBinding(summary *corpus.Summary) {
	mgr := dotdir.NewManager()
	if target, err := mgr.Target(c.configDir); err != nil || target == "" {
		return
	}

	root, err := filepath.Abs(c.path)
	if err != nil {
		return
	}

	_ = mgr.SaveCorpus(&dotdir.CorpusState{
		Root:      root,
		LastScan:  time.Now().UTC(),
		Documents: summary.DocsScanned,
		Chunks:    summary.ChunksTotal,
	}, c.configDir)
}

func (c *ingestCommander) ingestFile(ctx context.Context, st *stack.Stack, size int64) error {
	if max := int64(c.cfg.Corpus.MaxFileBytes); max > 0 && size > max {
		return fmt.Errorf("%q is %d bytes, over the %d byte limit", c.path, size, max)
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", c.path, err)
	}

	docID := c.docID
	if docID == "" {
		docID = filepath.ToSlash(filepath.Base(c.path))
	}

	result, err := st.Indexer.Ingest(ctx, docID, string(data))
	if err != nil && !errors.Is(err, reconciler.ErrIndexSyncFailure) {
		return err
	}

	printResult(docID, result)

	if err != nil {
		fmt.Printf("  %s version committed but the index is behind: %v\n", cliui.FailMark, err)
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Run \"strata sync\" to finish reconciliation."))
	}
	return nil
}

func printResult(docID string, result *indexer.Result) {
	if result.NoChange {
		fmt.Printf("\n  %s %s unchanged at version %d\n\n",
			cliui.DimStyle.Render("●"),
			cliui.ValueStyle.Render(docID),
			result.Version.Number,
		)
		return
	}

	fmt.Printf("\n  %s %s committed as version %d (%d chunks)\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(docID),
		result.Version.Number,
		len(result.Version.Chunks),
	)
	if result.Plan != nil {
		fmt.Printf("  %s %d upserts, %d deletes\n\n",
			cliui.KeyStyle.Render("Index:"),
			len(result.Plan.Upserts),
			len(result.Plan.Deletes),
		)
	}
}

func splitExtensions(csv string) []string {
	var out []string
	for _, ext := range strings.Split(csv, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
