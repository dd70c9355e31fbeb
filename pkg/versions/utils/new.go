// Package versionutils constructs version stores from provider names.
package versionutils

import (
	"fmt"

	"github.com/papercomputeco/strata/pkg/versions"
	"github.com/papercomputeco/strata/pkg/versions/inmemory"
	"github.com/papercomputeco/strata/pkg/versions/libsql"
	"github.com/papercomputeco/strata/pkg/versions/postgres"
	"github.com/papercomputeco/strata/pkg/versions/sqlite"
)

// NewStoreOpts selects and configures a version store backend.
type NewStoreOpts struct {
	// ProviderType is one of "sqlite", "libsql", "postgres", or
	// "inmemory".
	ProviderType string

	// SQLitePath is the database file path for sqlite, or the file
	// path / turso URL for libsql.
	SQLitePath string

	// PostgresDSN is the connection string for postgres.
	PostgresDSN string
}

// NewStore builds the version store named by ProviderType.
func NewStore(o *NewStoreOpts) (versions.Store, error) {
	switch o.ProviderType {
	case "sqlite":
		return sqlite.NewStore(o.SQLitePath)
	case "libsql":
		return libsql.NewStore(o.SQLitePath)
	case "postgres":
		return postgres.NewStore(o.PostgresDSN)
	case "inmemory":
		return inmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
