// Package qdrant provides a Qdrant-backed vector index over the official
// gRPC client.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/strata/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for chunk embeddings.
	DefaultCollectionName = "strata"

	// DefaultPort is the Qdrant gRPC port.
	DefaultPort = 6334
)

// Index implements vector.Index using Qdrant.
type Index struct {
	client         *qdrant.Client
	collectionName string
	logger         *slog.Logger
}

var _ vector.Index = (*Index)(nil)

// Config holds configuration for the Qdrant index.
type Config struct {
	// Host is the Qdrant server host (e.g., "localhost").
	Host string

	// Port is the gRPC port. Defaults to DefaultPort if zero.
	Port int

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding vector dimension, required to create
	// the collection on first use.
	Dimensions uint
}

// NewIndex connects to Qdrant and ensures the collection exists.
func NewIndex(c Config, logger *slog.Logger) (*Index, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	x := &Index{
		client:         client,
		collectionName: collectionName,
		logger:         logger,
	}

	if err := x.ensureCollection(context.Background(), uint64(c.Dimensions)); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensuring collection %q: %w", collectionName, err)
	}

	logger.Info("connected to Qdrant",
		"host", c.Host,
		"port", port,
		"collection", collectionName,
		"dimensions", c.Dimensions,
	)

	return x, nil
}

// ensureCollection creates the collection with cosine distance unless it
// already exists.
func (x *Index) ensureCollection(ctx context.Context, dimensions uint64) error {
	exists, err := x.client.CollectionExists(ctx, x.collectionName)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if exists {
		return nil
	}

	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: x.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	return nil
}

// pointID maps a chunk id to a deterministic Qdrant point id. Qdrant
// only accepts UUIDs or integers as ids, so the 64-char hex chunk id is
// folded into a name-based UUID; the original id rides in the payload.
func pointID(chunkID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String())
}

// Upsert stores entries with their embeddings. Qdrant upserts overwrite
// points whose ids already exist, keeping retries idempotent.
func (x *Index) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, entry := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      pointID(entry.ChunkID),
			Vectors: qdrant.NewVectors(entry.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":     entry.ChunkID,
				"doc_id":       entry.DocumentID,
				"version":      entry.Version,
				"start_offset": int64(entry.StartOffset),
				"end_offset":   int64(entry.EndOffset),
			}),
		}
	}

	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collectionName,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upserting %d chunks: %w", len(entries), err)
	}

	x.logger.Debug("upserted chunks into qdrant", "count", len(entries))

	return nil
}

// Search finds the k most similar entries to the given embedding.
func (x *Index) Search(ctx context.Context, embedding []float32, k int) ([]vector.Match, error) {
	if k <= 0 {
		k = 10
	}

	points, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}

	matches := make([]vector.Match, 0, len(points))
	for _, point := range points {
		var m vector.Match
		applyPayload(&m.Entry, point.Payload)
		// Cosine similarity from Qdrant is already higher-is-better.
		m.Score = point.Score
		matches = append(matches, m)
	}

	x.logger.Debug("queried qdrant", "results", len(matches))

	return matches, nil
}

// Get retrieves entries by their chunk ids. Missing ids are absent from
// the result.
func (x *Index) Get(ctx context.Context, ids []string) ([]vector.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	points, err := x.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: x.collectionName,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting chunks: %w", err)
	}

	entries := make([]vector.Entry, 0, len(points))
	for _, point := range points {
		var entry vector.Entry
		applyPayload(&entry, point.Payload)
		if v := point.GetVectors().GetVector(); v != nil {
			entry.Embedding = v.GetData()
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Delete removes entries by their chunk ids. Ids Qdrant does not know
// are ignored server-side, so deletes can be retried.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.collectionName,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("deleting %d chunks: %w", len(ids), err)
	}

	x.logger.Debug("deleted chunks from qdrant", "count", len(ids))

	return nil
}

// Close releases the gRPC connection.
func (x *Index) Close() error {
	return x.client.Close()
}

// applyPayload copies chunk provenance out of a point payload.
func applyPayload(entry *vector.Entry, payload map[string]*qdrant.Value) {
	if payload == nil {
		return
	}
	if v, ok := payload["chunk_id"]; ok {
		entry.ChunkID = v.GetStringValue()
	}
	if v, ok := payload["doc_id"]; ok {
		entry.DocumentID = v.GetStringValue()
	}
	if v, ok := payload["version"]; ok {
		entry.Version = v.GetIntegerValue()
	}
	if v, ok := payload["start_offset"]; ok {
		entry.StartOffset = int(v.GetIntegerValue())
	}
	if v, ok := payload["end_offset"]; ok {
		entry.EndOffset = int(v.GetIntegerValue())
	}
}
