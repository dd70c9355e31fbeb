// Package watchcmder provides the watch command for continuous corpus
// ingestion.
package watchcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/corpus"
	"github.com/papercomputeco/strata/pkg/dotdir"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/stack"
)

type watchCommander struct {
	dir       string
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
	debounceMS      uint
}

var watchFlags = []string{
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
	config.FlagDebounceMS,
}

const watchLongDesc string = `Watch a directory and re-ingest documents as they change.

Runs a full scan first, then keeps the index current: file writes,
creates, and renames re-ingest the affected document after a debounce
window. Unchanged content is still skipped by hash, so an editor that
rewrites files on save costs nothing.

Without a directory argument, watches the corpus root bound by the
last "strata ingest <dir>" scan.

Logs go to the terminal and, as JSON, to watch.log in the .strata/
directory. Stop with Ctrl-C.

Examples:
  strata watch ./docs
  strata watch ./docs --debounce-ms 1000
  strata watch`

const watchShortDesc string = "Watch a directory and keep the index current"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.CommandFlags, watchFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(args, cmder.configDir)
			if err != nil {
				return err
			}
			cmder.dir = dir

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
	config.AddUintFlag(cmd, fs, config.FlagDebounceMS, &cmder.debounceMS)

	return cmd
}

// resolveDir picks the watch root: the explicit argument when given,
// otherwise the corpus root bound by the last ingest scan.
func resolveDir(args []string, configDir string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	state, err := dotdir.NewManager().LoadCorpusState(configDir)
	if err != nil {
		return "", err
	}
	if state == nil || state.Root == "" {
		return "", fmt.Errorf("no directory given and no corpus bound; run \"strata ingest <dir>\" first")
	}
	return state.Root, nil
}

func (c *watchCommander) run(ctx context.Context) error {
	log, cleanup := c.newLogger()
	defer cleanup()

	st, err := stack.Build(c.cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	scanner, err := corpus.NewScanner(st.Indexer, corpus.Config{
		Dir:         c.dir,
		MaxFileSize: int64(c.cfg.Corpus.MaxFileBytes),
		Extensions:  splitExtensions(c.cfg.Corpus.Extensions),
	}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	log.Info("initial scan complete",
		"docs", summary.DocsScanned,
		"changed", summary.DocsChanged,
		"upserts", summary.Upserts,
		"deletes", summary.Deletes,
	)

	debounce := time.Duration(c.cfg.Corpus.DebounceMS) * time.Millisecond
	watcher, err := corpus.NewWatcher(scanner, debounce, log)
	if err != nil {
		return err
	}

	log.Info("watching", "dir", c.dir, "debounce", debounce)
	return watcher.Watch(ctx)
}

// newLogger tees terminal output with a JSON log file in the .strata/
// directory. The terminal side goes pretty only when stdout is a TTY.
func (c *watchCommander) newLogger() (*slog.Logger, func()) {
	pretty := term.IsTerminal(int(os.Stdout.Fd()))
	console := logger.New(logger.WithDebug(c.debug), logger.WithPretty(pretty))

	target, err := dotdir.NewManager().Target("")
	if err != nil || target == "" {
		return console, func() {}
	}

	file, err := os.OpenFile(filepath.Join(target, "watch.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return console, func() {}
	}

	fileLog := logger.New(logger.WithDebug(c.debug), logger.WithJSON(true), logger.WithWriter(file))
	return logger.Multi(console, fileLog), func() { _ = file.Close() }
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
