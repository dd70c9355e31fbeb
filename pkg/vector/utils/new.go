// Package vectorutils constructs vector indexes from provider names.
package vectorutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/strata/pkg/vector"
	"github.com/papercomputeco/strata/pkg/vector/chroma"
	"github.com/papercomputeco/strata/pkg/vector/inmemory"
	"github.com/papercomputeco/strata/pkg/vector/qdrant"
	"github.com/papercomputeco/strata/pkg/vector/sqlitevec"
)

// NewIndexOpts selects and configures a vector index backend.
type NewIndexOpts struct {
	// ProviderType is one of "sqlitevec", "chroma", "qdrant", or
	// "inmemory".
	ProviderType string

	// TargetURL is the server URL for chroma, or the host for qdrant.
	TargetURL string

	// DBPath is the database file path for sqlitevec.
	DBPath string

	// APIKey authenticates against hosted providers. Optional.
	APIKey string

	// CollectionName overrides the provider's default collection.
	CollectionName string

	// Dimensions is the embedding vector dimension.
	Dimensions uint

	Logger *slog.Logger
}

// NewIndex builds the vector index named by ProviderType.
func NewIndex(o *NewIndexOpts) (vector.Index, error) {
	switch o.ProviderType {
	case "sqlitevec":
		return sqlitevec.NewIndex(sqlitevec.Config{
			DBPath:     o.DBPath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewIndex(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.CollectionName,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewIndex(qdrant.Config{
			Host:           o.TargetURL,
			APIKey:         o.APIKey,
			CollectionName: o.CollectionName,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "inmemory":
		return inmemory.NewIndex(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
