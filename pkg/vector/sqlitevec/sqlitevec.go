// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/wcagrag/pkg/vector"
)

// SQLiteVecDriver implements vector.Driver using SQLite with sqlite-vec.
//
// Each collection is a pair of tables: vec_docs_<id> maps string document
// IDs to integer rowids and holds content and metadata, and vec_emb_<id> is
// a vec0 virtual table keyed by the same rowid. The vec_collections registry
// maps collection names to ids, so promotion is a single row update.
type SQLiteVecDriver struct {
	db     *sql.DB
	logger *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

type collectionInfo struct {
	id         int64
	dimensions int
}

func (c collectionInfo) docsTable() string { return fmt.Sprintf("vec_docs_%d", c.id) }
func (c collectionInfo) embTable() string  { return fmt.Sprintf("vec_emb_%d", c.id) }

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteVecDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewSQLiteVecDriver(c Config, logger *slog.Logger) (*SQLiteVecDriver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	if c.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", vector.ErrConnection, err)
	}

	// A single connection keeps ":memory:" databases coherent and serializes
	// writers.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %w", vector.ErrConnection, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_collections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			dimensions INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating collections table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"vec_version", vecVersion,
	)

	return &SQLiteVecDriver{
		db:     db,
		logger: logger,
	}, nil
}

func lookup(ctx context.Context, q querier, name string) (collectionInfo, error) {
	var info collectionInfo
	err := q.QueryRowContext(ctx,
		`SELECT id, dimensions FROM vec_collections WHERE name = ?`, name,
	).Scan(&info.id, &info.dimensions)
	if errors.Is(err, sql.ErrNoRows) {
		return info, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	if err != nil {
		return info, fmt.Errorf("looking up collection %s: %w", name, err)
	}
	return info, nil
}

// CreateCollection registers a collection and creates its backing tables.
func (d *SQLiteVecDriver) CreateCollection(ctx context.Context, name string, dimensions uint) error {
	if dimensions == 0 {
		return fmt.Errorf("sqlite-vec embedding dimensions cannot be 0 for collection %s", name)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lookup(ctx, tx, name); err == nil {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	} else if !errors.Is(err, vector.ErrCollectionNotFound) {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO vec_collections(name, dimensions) VALUES (?, ?)`, name, dimensions,
	)
	if err != nil {
		return fmt.Errorf("registering collection %s: %w", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting id for collection %s: %w", name, err)
	}
	info := collectionInfo{id: id, dimensions: int(dimensions)}

	// vec0 virtual tables use integer rowids, so the docs table maps
	// string document IDs to them.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`, info.docsTable())); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`CREATE VIRTUAL TABLE %s USING vec0(embedding float[%d] distance_metric=cosine)`,
		info.embTable(), dimensions,
	)); err != nil {
		return fmt.Errorf("creating vec0 table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("created sqlite-vec collection",
		"collection", name,
		"dimensions", dimensions,
	)
	return nil
}

func dropTables(ctx context.Context, tx *sql.Tx, info collectionInfo) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+info.embTable()); err != nil {
		return fmt.Errorf("dropping vec0 table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+info.docsTable()); err != nil {
		return fmt.Errorf("dropping documents table: %w", err)
	}
	return nil
}

// DropCollection removes a collection. Missing collections are ignored.
func (d *SQLiteVecDriver) DropCollection(ctx context.Context, name string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	info, err := lookup(ctx, tx, name)
	if errors.Is(err, vector.ErrCollectionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := dropTables(ctx, tx, info); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_collections WHERE id = ?`, info.id); err != nil {
		return fmt.Errorf("unregistering collection %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("dropped sqlite-vec collection", "collection", name)
	return nil
}

// HasCollection reports whether name is registered.
func (d *SQLiteVecDriver) HasCollection(ctx context.Context, name string) (bool, error) {
	_, err := lookup(ctx, d.db, name)
	if errors.Is(err, vector.ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Promote renames staging to name in one transaction, dropping whatever
// collection previously held the name.
func (d *SQLiteVecDriver) Promote(ctx context.Context, staging, name string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stagingInfo, err := lookup(ctx, tx, staging)
	if err != nil {
		return err
	}

	old, err := lookup(ctx, tx, name)
	switch {
	case err == nil:
		if err := dropTables(ctx, tx, old); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_collections WHERE id = ?`, old.id); err != nil {
			return fmt.Errorf("unregistering collection %s: %w", name, err)
		}
	case !errors.Is(err, vector.ErrCollectionNotFound):
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE vec_collections SET name = ? WHERE id = ?`, name, stagingInfo.id,
	); err != nil {
		return fmt.Errorf("renaming collection %s: %w", staging, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Info("promoted sqlite-vec collection",
		"staging", staging,
		"collection", name,
	)
	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func encodeMetadata(meta map[string]string) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMetadata(id, s string) (map[string]string, error) {
	meta := map[string]string{}
	if s == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata for doc %s: %w", id, err)
	}
	return meta, nil
}

// Add stores documents with their embeddings.
// If a document with the same ID already exists, it is updated.
func (d *SQLiteVecDriver) Add(ctx context.Context, collection string, docs []vector.Document) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	info, err := lookup(ctx, tx, collection)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	for _, doc := range docs {
		if len(doc.Embedding) != info.dimensions {
			return fmt.Errorf("%w: doc %s has %d dimensions, collection %s expects %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), collection, info.dimensions)
		}

		meta, err := encodeMetadata(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for doc %s: %w", doc.ID, err)
		}
		embBlob := serializeFloat32(doc.Embedding)

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT rowid FROM %s WHERE doc_id = ?`, info.docsTable()), doc.ID,
		).Scan(&existingRowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET content = ?, metadata = ? WHERE rowid = ?`, info.docsTable()),
				doc.Content, meta, existingRowID,
			); err != nil {
				return fmt.Errorf("updating document %s: %w", doc.ID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, info.embTable()), existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for doc %s: %w", doc.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, info.embTable()),
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for doc %s: %w", doc.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(doc_id, content, metadata) VALUES (?, ?, ?)`, info.docsTable()),
				doc.ID, doc.Content, meta,
			)
			if err != nil {
				return fmt.Errorf("inserting document %s: %w", doc.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for doc %s: %w", doc.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, info.embTable()),
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to sqlite-vec",
		"collection", collection,
		"count", len(docs),
	)

	return nil
}

// Query finds the topK documents closest to the given embedding.
func (d *SQLiteVecDriver) Query(ctx context.Context, collection string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	info, err := lookup(ctx, d.db, collection)
	if err != nil {
		return nil, err
	}
	if len(embedding) != info.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
			vector.ErrDimensionMismatch, len(embedding), collection, info.dimensions)
	}

	// KNN query via vec0 MATCH, then JOIN back to get the document.
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			d.doc_id,
			d.content,
			d.metadata,
			ve.distance
		FROM %s ve
		INNER JOIN %s d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, info.embTable(), info.docsTable()), serializeFloat32(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var docID, content, meta string
		var distance float64
		if err := rows.Scan(&docID, &content, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		metadata, err := decodeMetadata(docID, meta)
		if err != nil {
			return nil, err
		}

		results = append(results, vector.QueryResult{
			Document: vector.Document{
				ID:       docID,
				Content:  content,
				Metadata: metadata,
			},
			Distance: float32(distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		"collection", collection,
		"results", len(results),
	)

	return results, nil
}

// Get retrieves documents by their IDs.
func (d *SQLiteVecDriver) Get(ctx context.Context, collection string, ids []string) ([]vector.Document, error) {
	info, err := lookup(ctx, d.db, collection)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT doc_id, content, metadata, rowid
		FROM %s
		WHERE doc_id IN (%s)
	`, info.docsTable(), strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	// Collect results first so we can close the rows cursor before
	// issuing additional queries (SQLite uses a single connection).
	type docRow struct {
		doc   vector.Document
		rowID int64
	}
	var docRows []docRow

	for rows.Next() {
		var dr docRow
		var meta string
		if err := rows.Scan(&dr.doc.ID, &dr.doc.Content, &meta, &dr.rowID); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if dr.doc.Metadata, err = decodeMetadata(dr.doc.ID, meta); err != nil {
			return nil, err
		}
		docRows = append(docRows, dr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	rows.Close()

	docs := make([]vector.Document, 0, len(docRows))
	for _, dr := range docRows {
		var embBlob []byte
		err := d.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT embedding FROM %s WHERE rowid = ?`, info.embTable()), dr.rowID,
		).Scan(&embBlob)
		if err == nil && len(embBlob) > 0 {
			dr.doc.Embedding, _ = deserializeFloat32(embBlob)
		}
		docs = append(docs, dr.doc)
	}

	return docs, nil
}

// Count returns the number of documents in a collection.
func (d *SQLiteVecDriver) Count(ctx context.Context, collection string) (int, error) {
	info, err := lookup(ctx, d.db, collection)
	if err != nil {
		return 0, err
	}

	var n int
	if err := d.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, info.docsTable()),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*SQLiteVecDriver)(nil)
