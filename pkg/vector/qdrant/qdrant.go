// Package qdrant provides a Qdrant vector database driver over gRPC.
//
// Public collection names are Qdrant aliases. Promote swaps an alias onto the
// staging collection in a single UpdateAliases call, which Qdrant applies
// atomically.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/wcagrag/pkg/vector"
)

const (
	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	payloadIDKey      = "_id"
	payloadContentKey = "_content"
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// Driver implements vector.Driver on a Qdrant server.
type Driver struct {
	client *qdrant.Client
	logger *slog.Logger
}

// NewDriver connects to Qdrant and verifies the server with a health check.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, errors.New("qdrant host is required")
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	reply, err := client.HealthCheck(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: qdrant health check: %w", vector.ErrConnection, err)
	}

	logger.Info("connected to Qdrant",
		"host", c.Host,
		"port", port,
		"version", reply.GetVersion(),
	)

	return &Driver{client: client, logger: logger}, nil
}

// pointID maps a document ID onto the UUID space Qdrant requires.
func pointID(docID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String())
}

func (d *Driver) aliases(ctx context.Context) (map[string]string, error) {
	list, err := d.client.ListAliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing aliases: %w", err)
	}
	out := make(map[string]string, len(list))
	for _, a := range list {
		out[a.GetAliasName()] = a.GetCollectionName()
	}
	return out, nil
}

// resolve returns the physical collection visible under name. A physical
// collection that already sits behind another alias is not visible under its
// own name.
func (d *Driver) resolve(ctx context.Context, name string) (string, error) {
	aliases, err := d.aliases(ctx)
	if err != nil {
		return "", err
	}
	if target, ok := aliases[name]; ok {
		return target, nil
	}
	for alias, target := range aliases {
		if target == name && alias != name {
			return "", fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
		}
	}

	exists, err := d.client.CollectionExists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%w: checking collection %s: %w", vector.ErrConnection, name, err)
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	return name, nil
}

func (d *Driver) dimensions(ctx context.Context, physical string) (int, error) {
	info, err := d.client.GetCollectionInfo(ctx, physical)
	if err != nil {
		return 0, fmt.Errorf("getting collection info for %s: %w", physical, err)
	}
	return int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()), nil
}

// CreateCollection creates a cosine collection.
func (d *Driver) CreateCollection(ctx context.Context, name string, dimensions uint) error {
	if _, err := d.resolve(ctx, name); err == nil {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	} else if !errors.Is(err, vector.ErrCollectionNotFound) {
		return err
	}

	if err := d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	d.logger.Debug("created qdrant collection", "collection", name, "dimensions", dimensions)
	return nil
}

// DropCollection removes name and, when it is an alias, the collection
// behind it.
func (d *Driver) DropCollection(ctx context.Context, name string) error {
	physical, err := d.resolve(ctx, name)
	if errors.Is(err, vector.ErrCollectionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if physical != name {
		if err := d.client.DeleteAlias(ctx, name); err != nil {
			return fmt.Errorf("deleting alias %s: %w", name, err)
		}
	}
	if err := d.client.DeleteCollection(ctx, physical); err != nil {
		return fmt.Errorf("dropping collection %s: %w", physical, err)
	}

	d.logger.Debug("dropped qdrant collection", "collection", name, "physical", physical)
	return nil
}

// HasCollection reports whether name resolves to a collection.
func (d *Driver) HasCollection(ctx context.Context, name string) (bool, error) {
	_, err := d.resolve(ctx, name)
	if errors.Is(err, vector.ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Promote points the name alias at staging and drops the collection it
// previously served.
func (d *Driver) Promote(ctx context.Context, staging, name string) error {
	stagingPhysical, err := d.resolve(ctx, staging)
	if err != nil {
		return err
	}

	aliases, err := d.aliases(ctx)
	if err != nil {
		return err
	}

	var ops []*qdrant.AliasOperations
	var retired string
	if target, ok := aliases[name]; ok {
		ops = append(ops, qdrant.NewAliasDelete(name))
		retired = target
	} else {
		exists, err := d.client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("%w: checking collection %s: %w", vector.ErrConnection, name, err)
		}
		if exists {
			// Aliases cannot shadow a real collection, so a collection created
			// directly under name has to go before the alias can take its place.
			if err := d.client.DeleteCollection(ctx, name); err != nil {
				return fmt.Errorf("dropping collection %s: %w", name, err)
			}
		}
	}
	if stagingPhysical != staging {
		ops = append(ops, qdrant.NewAliasDelete(staging))
	}
	ops = append(ops, qdrant.NewAliasCreate(name, stagingPhysical))

	if err := d.client.UpdateAliases(ctx, ops); err != nil {
		return fmt.Errorf("promoting collection %s: %w", staging, err)
	}

	if retired != "" && retired != stagingPhysical {
		if err := d.client.DeleteCollection(ctx, retired); err != nil {
			d.logger.Warn("dropping retired qdrant collection failed",
				"retired", retired,
				"error", err,
			)
		}
	}

	d.logger.Info("promoted qdrant collection",
		"staging", staging,
		"collection", name,
	)
	return nil
}

// Add upserts documents. The original document ID and content travel in
// the payload next to the flat metadata.
func (d *Driver) Add(ctx context.Context, collection string, docs []vector.Document) error {
	physical, err := d.resolve(ctx, collection)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	dims, err := d.dimensions(ctx, physical)
	if err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		if len(doc.Embedding) != dims {
			return fmt.Errorf("%w: doc %s has %d dimensions, collection %s expects %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), collection, dims)
		}

		payload := make(map[string]any, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		payload[payloadIDKey] = doc.ID
		payload[payloadContentKey] = doc.Content

		points[i] = &qdrant.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: qdrant.NewVectorsDense(doc.Embedding),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	if _, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: physical,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant",
		"collection", collection,
		"count", len(docs),
	)
	return nil
}

func fromPayload(payload map[string]*qdrant.Value) vector.Document {
	doc := vector.Document{Metadata: make(map[string]string, len(payload))}
	for k, v := range payload {
		switch k {
		case payloadIDKey:
			doc.ID = v.GetStringValue()
		case payloadContentKey:
			doc.Content = v.GetStringValue()
		default:
			doc.Metadata[k] = v.GetStringValue()
		}
	}
	return doc
}

func denseVector(v *qdrant.VectorsOutput) []float32 {
	out := v.GetVector()
	if dense := out.GetDense(); dense != nil {
		return dense.GetData()
	}
	return out.GetData()
}

// Query finds the topK closest documents. Qdrant reports cosine similarity,
// which is converted to distance.
func (d *Driver) Query(ctx context.Context, collection string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	physical, err := d.resolve(ctx, collection)
	if err != nil {
		return nil, err
	}
	dims, err := d.dimensions(ctx, physical)
	if err != nil {
		return nil, err
	}
	if len(embedding) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
			vector.ErrDimensionMismatch, len(embedding), collection, dims)
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: physical,
		Query:          qdrant.NewQueryDense(embedding),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.QueryResult{
			Document: fromPayload(p.GetPayload()),
			Distance: 1 - p.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant",
		"collection", collection,
		"results", len(results),
	)
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, collection string, ids []string) ([]vector.Document, error) {
	physical, err := d.resolve(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: physical,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		doc := fromPayload(p.GetPayload())
		doc.Embedding = denseVector(p.GetVectors())
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count returns the exact number of points in a collection.
func (d *Driver) Count(ctx context.Context, collection string) (int, error) {
	physical, err := d.resolve(ctx, collection)
	if err != nil {
		return 0, err
	}
	n, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: physical,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(n), nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ vector.Driver = (*Driver)(nil)
