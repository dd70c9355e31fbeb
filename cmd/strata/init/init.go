// Package initcmder provides the init command for initializing a local
// .strata directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .strata/ directory in the current working directory.

Creates a local .strata/ directory that takes precedence over the default
~/.strata/ directory for the version store, the vector index, and
configuration. A config.toml seeded with defaults is written alongside.

This is useful for maintaining a separate index per project or corpus.

Examples:
  strata init
  strata init --preset openai`

const initShortDesc string = "Initialize a local .strata/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Seed config from a provider preset (ollama, openai)")

	return cmd
}

func runInit(preset string) error {
	manager := dotdir.NewManager()

	dir, err := manager.CreateLocal()
	if err != nil {
		return fmt.Errorf("creating .strata directory: %w", err)
	}

	cfg := config.NewDefaultConfig()
	if preset != "" {
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	configPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("preparing config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	fmt.Printf("Initialized .strata directory: %s\n", dir)
	return nil
}
