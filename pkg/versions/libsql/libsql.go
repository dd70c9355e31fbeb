// Package libsql opens the version store over a libSQL connection, for
// local replica files or a remote Turso database. libSQL speaks the
// SQLite dialect, so the store itself is the sqlite implementation.
package libsql

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/papercomputeco/strata/pkg/versions/sqlite"
)

// NewStore connects to url (a file: path or libsql:// URL, with any auth
// token embedded) and migrates the schema.
func NewStore(url string) (*sqlite.Store, error) {
	if url == "" {
		return nil, errors.New("database url is required")
	}

	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("opening libsql database: %w", err)
	}

	return sqlite.NewStoreWithDB(db)
}
