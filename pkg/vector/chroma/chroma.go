// Package chroma provides a Chroma-backed vector index implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/strata/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for chunk embeddings.
	DefaultCollectionName = "strata"

	// DefaultMaxRetries bounds how many times the constructor probes a
	// Chroma server that is still starting up.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial backoff between connection attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 10 * time.Second
)

// Index implements vector.Index using Chroma's REST API.
type Index struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

var _ vector.Index = (*Index)(nil)

// Config holds configuration for the Chroma index.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries is how many times to attempt the initial connection
	// before giving up. Chroma containers take a moment to come up, so
	// the constructor retries with exponential backoff.
	MaxRetries int

	// RetryDelay is the initial backoff between attempts.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff growth.
	MaxRetryDelay time.Duration
}

// NewIndex creates a new Chroma vector index.
func NewIndex(c Config, logger *slog.Logger) (*Index, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	retryDelay := c.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	maxRetryDelay := c.MaxRetryDelay
	if maxRetryDelay <= 0 {
		maxRetryDelay = DefaultMaxRetryDelay
	}

	x := &Index{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	// Get or create the collection, retrying while the server starts up.
	var collectionID string
	var lastErr error
	delay := retryDelay
	for attempt := 1; attempt <= maxRetries; attempt++ {
		collectionID, lastErr = x.getOrCreateCollection(context.Background())
		if lastErr == nil {
			break
		}
		if attempt < maxRetries {
			logger.Debug("chroma not ready, retrying",
				"attempt", attempt,
				"delay", delay,
			)
			time.Sleep(delay)
			delay *= 2
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("getting or creating collection %q after %d attempts: %w",
			collectionName, maxRetries, lastErr)
	}
	x.collectionID = collectionID

	logger.Info("connected to Chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", collectionID,
	)

	return x, nil
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (x *Index) getOrCreateCollection(ctx context.Context) (string, error) {
	// Try to get existing collection first
	url := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections/%s", x.baseURL, x.collectionName)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	createURL := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections", x.baseURL)
	createBody := map[string]string{"name": x.collectionName}
	jsonBody, err := json.Marshal(createBody)
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, "POST", createURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = x.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

// Upsert stores entries with their embeddings. Chroma's upsert endpoint
// overwrites entries whose ids already exist, keeping retries idempotent.
func (x *Index) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	embeddings := make([][]float32, len(entries))
	metadatas := make([]map[string]any, len(entries))

	for i, entry := range entries {
		ids[i] = entry.ChunkID
		embeddings[i] = entry.Embedding
		metadatas[i] = map[string]any{
			"doc_id":       entry.DocumentID,
			"version":      entry.Version,
			"start_offset": entry.StartOffset,
			"end_offset":   entry.EndOffset,
		}
	}

	reqBody := chromaUpsertRequest{
		IDs:        ids,
		Embeddings: embeddings,
		Metadatas:  metadatas,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling upsert request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections/%s/upsert", x.baseURL, x.collectionID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to upsert chunks: status %d: %s", resp.StatusCode, string(body))
	}

	x.logger.Debug("upserted chunks into chroma", "count", len(entries))

	return nil
}

// Search finds the k most similar entries to the given embedding.
func (x *Index) Search(ctx context.Context, embedding []float32, k int) ([]vector.Match, error) {
	if k <= 0 {
		k = 10
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        k,
		Include:         []string{"metadatas", "distances", "embeddings"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling query request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections/%s/query", x.baseURL, x.collectionID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to query: status %d: %s", resp.StatusCode, string(body))
	}

	var queryResp chromaQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}

	var matches []vector.Match

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return matches, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	var embeddings [][]float32
	if len(queryResp.Embeddings) > 0 {
		embeddings = queryResp.Embeddings[0]
	}

	for i, id := range ids {
		match := vector.Match{
			Entry: vector.Entry{ChunkID: id},
		}

		if i < len(metadatas) {
			applyMetadata(&match.Entry, metadatas[i])
		}

		if i < len(embeddings) {
			match.Embedding = embeddings[i]
		}

		// Convert distance to similarity score
		// Lower distance = higher similarity
		if i < len(distances) {
			match.Score = 1.0 / (1.0 + distances[i])
		}

		matches = append(matches, match)
	}

	x.logger.Debug("queried chroma", "results", len(matches))

	return matches, nil
}

// Get retrieves entries by their chunk ids.
func (x *Index) Get(ctx context.Context, ids []string) ([]vector.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	reqBody := chromaGetRequest{
		IDs:     ids,
		Include: []string{"metadatas", "embeddings"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling get request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections/%s/get", x.baseURL, x.collectionID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating get request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get chunks: status %d: %s", resp.StatusCode, string(body))
	}

	var getResp chromaGetResponse
	if err := json.NewDecoder(resp.Body).Decode(&getResp); err != nil {
		return nil, fmt.Errorf("decoding get response: %w", err)
	}

	entries := make([]vector.Entry, len(getResp.IDs))
	for i, id := range getResp.IDs {
		entries[i] = vector.Entry{ChunkID: id}

		if i < len(getResp.Metadatas) {
			applyMetadata(&entries[i], getResp.Metadatas[i])
		}

		if i < len(getResp.Embeddings) {
			entries[i].Embedding = getResp.Embeddings[i]
		}
	}

	return entries, nil
}

// Delete removes entries by their chunk ids. Ids Chroma does not know
// are ignored server-side, so deletes can be retried.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	reqBody := chromaDeleteRequest{
		IDs: ids,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling delete request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections/%s/delete", x.baseURL, x.collectionID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending delete request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to delete chunks: status %d: %s", resp.StatusCode, string(body))
	}

	x.logger.Debug("deleted chunks from chroma", "count", len(ids))

	return nil
}

// Close releases resources held by the index.
func (x *Index) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// applyMetadata copies chunk provenance out of a Chroma metadata map.
// Numeric values arrive as float64 after JSON decoding.
func applyMetadata(entry *vector.Entry, metadata map[string]any) {
	if metadata == nil {
		return
	}
	if docID, ok := metadata["doc_id"].(string); ok {
		entry.DocumentID = docID
	}
	if version, ok := metadata["version"].(float64); ok {
		entry.Version = int64(version)
	}
	if start, ok := metadata["start_offset"].(float64); ok {
		entry.StartOffset = int(start)
	}
	if end, ok := metadata["end_offset"].(float64); ok {
		entry.EndOffset = int(end)
	}
}
