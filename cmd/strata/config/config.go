// Package configcmder provides the config command for managing
// persistent strata configuration stored in the .strata/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent strata configuration.

Configuration is stored as config.toml in the .strata/ directory and
provides default values for command flags. CLI flags always take
precedence over config file values, and STRATA_ environment variables
sit between the two.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  vector_store.provider, vector_store.target, vector_store.db_path,
  embedding.provider, embedding.target, embedding.model,
  chunking.size, chunking.overlap,
  retrieval.top_k, retrieval.min_score, retrieval.min_matches,
  events.brokers, events.topic,
  corpus.extensions, corpus.max_file_bytes, corpus.debounce_ms

Use subcommands to get, set, or list configuration values:
  strata config set <key> <value>   Set a configuration value
  strata config get <key>           Get a configuration value
  strata config list                List all configuration values

Examples:
  strata config set embedding.model nomic-embed-text
  strata config set retrieval.min_score 0.5
  strata config get vector_store.provider
  strata config list`

const configShortDesc string = "Manage persistent strata configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
