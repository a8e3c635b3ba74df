// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/papercomputeco/wcagrag/pkg/vector"
	"github.com/papercomputeco/wcagrag/pkg/vector/chroma"
	"github.com/papercomputeco/wcagrag/pkg/vector/memory"
	"github.com/papercomputeco/wcagrag/pkg/vector/pgvector"
	"github.com/papercomputeco/wcagrag/pkg/vector/qdrant"
	"github.com/papercomputeco/wcagrag/pkg/vector/sqlitevec"
)

// Supported vector store providers.
const (
	ProviderSQLite   = "sqlite"
	ProviderMemory   = "memory"
	ProviderChroma   = "chroma"
	ProviderQdrant   = "qdrant"
	ProviderPgvector = "pgvector"
)

// Providers lists every supported provider name.
var Providers = []string{ProviderSQLite, ProviderMemory, ProviderChroma, ProviderQdrant, ProviderPgvector}

type NewVectorDriverOpts struct {
	ProviderType string

	// Target is the provider address: a URL for chroma, host:port or URL
	// for qdrant, a connection string for pgvector.
	Target string

	// Path is the database file for sqlite.
	Path string

	// APIKey authenticates against qdrant.
	APIKey string

	Logger *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderSQLite:
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath: o.Path,
		}, o.Logger)
	case ProviderMemory:
		return memory.NewDriver(), nil
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL: o.Target,
		}, o.Logger)
	case ProviderQdrant:
		cfg, err := qdrantConfig(o.Target, o.APIKey)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(ctx, cfg, o.Logger)
	case ProviderPgvector:
		return pgvector.NewDriver(ctx, o.Target, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// qdrantConfig accepts "host", "host:port" or "http(s)://host:port".
func qdrantConfig(target, apiKey string) (qdrant.Config, error) {
	cfg := qdrant.Config{APIKey: apiKey}
	hostport := target

	if u, err := url.Parse(target); err == nil && u.Host != "" {
		hostport = u.Host
		cfg.UseTLS = u.Scheme == "https"
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		cfg.Host = hostport
		return cfg, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return cfg, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	cfg.Host = host
	cfg.Port = port
	return cfg, nil
}
