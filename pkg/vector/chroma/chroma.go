// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/wcagrag/pkg/vector"
)

const (
	// DefaultTenant and DefaultDatabase are Chroma's built-in namespaces.
	DefaultTenant   = "default_tenant"
	DefaultDatabase = "default_database"

	// DefaultMaxRetries is the number of connection attempts made at startup.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the initial backoff between connection attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 5 * time.Second

	dimensionsKey = "wcagrag:dimensions"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// Tenant and Database select the Chroma namespace.
	Tenant   string
	Database string

	// MaxRetries bounds startup connection attempts.
	MaxRetries int

	// RetryDelay is the initial delay between attempts. It doubles up to
	// MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver, waiting for the server's
// heartbeat with exponential backoff.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	tenant := c.Tenant
	if tenant == "" {
		tenant = DefaultTenant
	}
	database := c.Database
	if database == "" {
		database = DefaultDatabase
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}

	d := &Driver{
		baseURL: fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s/collections",
			c.URL, url.PathEscape(tenant), url.PathEscape(database)),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = d.heartbeat(context.Background(), c.URL)
		if lastErr == nil {
			break
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("%w: chroma not reachable after %d attempts: %v", vector.ErrConnection, maxRetries, lastErr)
		}

		logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)
		time.Sleep(delay)
		delay = min(delay*2, maxDelay)
	}

	logger.Info("connected to Chroma",
		"url", c.URL,
		"tenant", tenant,
		"database", database,
	)

	return d, nil
}

func (d *Driver) heartbeat(ctx context.Context, base string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v2/heartbeat", nil)
	if err != nil {
		return fmt.Errorf("creating heartbeat request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending heartbeat request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat returned status %d", resp.StatusCode)
	}
	return nil
}

// do sends a JSON request relative to the collections endpoint and decodes a
// 2xx response into out. Non-2xx statuses are returned with the body text.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("chroma %s %s: status %d: %s", method, path, resp.StatusCode, string(text))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// lookup resolves a collection name. Chroma reports unknown names as 404 on
// recent servers and 400 on older ones.
func (d *Driver) lookup(ctx context.Context, name string) (chromaCollection, error) {
	var coll chromaCollection
	status, err := d.do(ctx, http.MethodGet, "/"+url.PathEscape(name), nil, &coll)
	if status == http.StatusNotFound || status == http.StatusBadRequest {
		return coll, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	if err != nil {
		return coll, err
	}
	return coll, nil
}

func (c chromaCollection) dimensions() int {
	switch v := c.Metadata[dimensionsKey].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// CreateCollection creates a cosine-space collection.
func (d *Driver) CreateCollection(ctx context.Context, name string, dimensions uint) error {
	if _, err := d.lookup(ctx, name); err == nil {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	} else if !errors.Is(err, vector.ErrCollectionNotFound) {
		return err
	}

	var coll chromaCollection
	status, err := d.do(ctx, http.MethodPost, "", chromaCreateRequest{
		Name: name,
		Metadata: map[string]any{
			"hnsw:space":  "cosine",
			dimensionsKey: dimensions,
		},
	}, &coll)
	if status == http.StatusConflict {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	}
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	d.logger.Debug("created chroma collection",
		"collection", name,
		"collection_id", coll.ID,
	)
	return nil
}

// DropCollection deletes a collection. Missing collections are ignored.
func (d *Driver) DropCollection(ctx context.Context, name string) error {
	status, err := d.do(ctx, http.MethodDelete, "/"+url.PathEscape(name), nil, nil)
	if status == http.StatusNotFound || status == http.StatusBadRequest {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dropping collection %s: %w", name, err)
	}
	d.logger.Debug("dropped chroma collection", "collection", name)
	return nil
}

// HasCollection reports whether a collection named name exists.
func (d *Driver) HasCollection(ctx context.Context, name string) (bool, error) {
	_, err := d.lookup(ctx, name)
	if errors.Is(err, vector.ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) rename(ctx context.Context, id, newName string) error {
	_, err := d.do(ctx, http.MethodPut, "/"+url.PathEscape(id), chromaModifyRequest{NewName: newName}, nil)
	return err
}

// Promote renames staging to name. Chroma has no transactions, so an
// existing collection is first renamed aside and restored if the swap fails.
func (d *Driver) Promote(ctx context.Context, staging, name string) error {
	stagingColl, err := d.lookup(ctx, staging)
	if err != nil {
		return err
	}

	old, err := d.lookup(ctx, name)
	hasOld := err == nil
	if err != nil && !errors.Is(err, vector.ErrCollectionNotFound) {
		return err
	}

	retired := fmt.Sprintf("%s__retired_%s", name, uuid.NewString())
	if hasOld {
		if err := d.rename(ctx, old.ID, retired); err != nil {
			return fmt.Errorf("retiring collection %s: %w", name, err)
		}
	}

	if err := d.rename(ctx, stagingColl.ID, name); err != nil {
		if hasOld {
			if rbErr := d.rename(ctx, old.ID, name); rbErr != nil {
				d.logger.Error("restoring retired chroma collection failed",
					"collection", name,
					"retired", retired,
					"error", rbErr,
				)
			}
		}
		return fmt.Errorf("promoting collection %s: %w", staging, err)
	}

	if hasOld {
		if err := d.DropCollection(ctx, retired); err != nil {
			d.logger.Warn("dropping retired chroma collection failed",
				"retired", retired,
				"error", err,
			)
		}
	}

	d.logger.Info("promoted chroma collection",
		"staging", staging,
		"collection", name,
	)
	return nil
}

// Add upserts documents with their embeddings.
func (d *Driver) Add(ctx context.Context, collection string, docs []vector.Document) error {
	coll, err := d.lookup(ctx, collection)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	dims := coll.dimensions()
	req := chromaUpsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
		Documents:  make([]string, len(docs)),
	}

	for i, doc := range docs {
		if dims > 0 && len(doc.Embedding) != dims {
			return fmt.Errorf("%w: doc %s has %d dimensions, collection %s expects %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), collection, dims)
		}
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Documents[i] = doc.Content

		meta := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		req.Metadatas[i] = meta
	}

	if _, err := d.do(ctx, http.MethodPost, "/"+coll.ID+"/upsert", req, nil); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	d.logger.Debug("added documents to chroma",
		"collection", collection,
		"count", len(docs),
	)

	return nil
}

func stringMetadata(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		} else if v != nil {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

// Query finds the topK documents closest to the given embedding.
func (d *Driver) Query(ctx context.Context, collection string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	coll, err := d.lookup(ctx, collection)
	if err != nil {
		return nil, err
	}
	if dims := coll.dimensions(); dims > 0 && len(embedding) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
			vector.ErrDimensionMismatch, len(embedding), collection, dims)
	}

	var queryResp chromaQueryResponse
	if _, err := d.do(ctx, http.MethodPost, "/"+coll.ID+"/query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "documents", "distances"},
	}, &queryResp); err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	var results []vector.QueryResult

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	var distances []float32
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}
	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	for i, id := range ids {
		result := vector.QueryResult{Document: vector.Document{ID: id}}
		if i < len(metadatas) {
			result.Metadata = stringMetadata(metadatas[i])
		}
		if i < len(documents) {
			result.Content = documents[i]
		}
		// cosine space distances are already 1 - similarity
		if i < len(distances) {
			result.Distance = distances[i]
		}
		results = append(results, result)
	}

	d.logger.Debug("queried chroma",
		"collection", collection,
		"results", len(results),
	)

	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, collection string, ids []string) ([]vector.Document, error) {
	coll, err := d.lookup(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var getResp chromaGetResponse
	if _, err := d.do(ctx, http.MethodPost, "/"+coll.ID+"/get", chromaGetRequest{
		IDs:     ids,
		Include: []string{"metadatas", "documents", "embeddings"},
	}, &getResp); err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}

	docs := make([]vector.Document, len(getResp.IDs))
	for i, id := range getResp.IDs {
		docs[i] = vector.Document{ID: id}
		if i < len(getResp.Metadatas) {
			docs[i].Metadata = stringMetadata(getResp.Metadatas[i])
		}
		if i < len(getResp.Documents) {
			docs[i].Content = getResp.Documents[i]
		}
		if i < len(getResp.Embeddings) {
			docs[i].Embedding = getResp.Embeddings[i]
		}
	}

	return docs, nil
}

// Count returns the number of documents in a collection.
func (d *Driver) Count(ctx context.Context, collection string) (int, error) {
	coll, err := d.lookup(ctx, collection)
	if err != nil {
		return 0, err
	}
	var n int
	if _, err := d.do(ctx, http.MethodGet, "/"+coll.ID+"/count", nil, &n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ vector.Driver = (*Driver)(nil)
