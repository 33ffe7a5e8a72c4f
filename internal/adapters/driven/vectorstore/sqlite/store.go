package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/dquery/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/dquery/internal/adapters/driven/vectorstore/sqlite/migrations"
	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
)

// Verify interface compliance.
var (
	_ driven.VectorStore  = (*Store)(nil)
	_ driven.RecordReader = (*Store)(nil)
)

// DBFile is the database file name inside the data directory.
const DBFile = "vectors.db"

// Store is a SQLite-backed vector store bound to one collection.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	schema *domain.CollectionSchema
}

// NewStore opens (or creates) the store in dataDir.
// If dataDir is empty, defaults to ~/.dquery/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".dquery", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", domain.ErrStoreUnavailable, err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStoreUnavailable, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %w", domain.ErrStoreUnavailable, err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrStoreUnavailable, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CreateCollection registers the collection if it does not exist and binds
// the store to it. An existing collection must have the same dimension.
func (s *Store) CreateCollection(ctx context.Context, schema domain.CollectionSchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, metric, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, schema.Name, schema.Dimension, string(schema.Metric), schema.Description)
	if err != nil {
		return fmt.Errorf("%w: creating collection: %w", domain.ErrStoreUnavailable, err)
	}

	var existing domain.CollectionSchema
	var metric string
	row := s.db.QueryRowContext(ctx, `
		SELECT name, dimension, metric, description FROM collections WHERE name = ?
	`, schema.Name)
	if err := row.Scan(&existing.Name, &existing.Dimension, &metric, &existing.Description); err != nil {
		return fmt.Errorf("%w: reading collection: %w", domain.ErrStoreUnavailable, err)
	}
	existing.Metric = domain.Metric(metric)

	if existing.Dimension != schema.Dimension {
		return fmt.Errorf("%w: collection %q has dimension %d, requested %d",
			domain.ErrDimensionMismatch, schema.Name, existing.Dimension, schema.Dimension)
	}

	s.schema = &existing
	return nil
}

// Insert stores the vector and returns the AUTOINCREMENT row ID.
func (s *Store) Insert(ctx context.Context, vec domain.Vector, meta domain.Metadata) (domain.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schema == nil {
		return 0, fmt.Errorf("%w: collection does not exist", domain.ErrStoreUnavailable)
	}
	if len(vec) != s.schema.Dimension {
		return 0, fmt.Errorf("%w: vector has %d dimensions, collection expects %d",
			domain.ErrStoreWrite, len(vec), s.schema.Dimension)
	}

	var metadataJSON sql.NullString
	if len(meta) > 0 {
		data, err := json.Marshal(meta)
		if err != nil {
			return 0, fmt.Errorf("%w: marshalling metadata: %w", domain.ErrStoreWrite, err)
		}
		metadataJSON = sql.NullString{String: string(data), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (collection, vector, metadata) VALUES (?, ?, ?)
	`, s.schema.Name, float32SliceToBytes(vec), metadataJSON)
	if err != nil {
		return 0, fmt.Errorf("%w: inserting record: %w", domain.ErrStoreWrite, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading record id: %w", domain.ErrStoreWrite, err)
	}
	return domain.RecordID(id), nil
}

// Search scans the collection and returns the best params.Limit hits.
func (s *Store) Search(ctx context.Context, query domain.Vector, params domain.SearchParams) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.schema == nil {
		return nil, fmt.Errorf("%w: collection does not exist", domain.ErrStoreUnavailable)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(query) != s.schema.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection expects %d",
			domain.ErrQuery, len(query), s.schema.Dimension)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vector FROM records WHERE collection = ? ORDER BY id
	`, s.schema.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: querying records: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var hits []domain.Hit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning record: %w", domain.ErrQuery, err)
		}
		stored := bytesToFloat32Slice(blob)
		if len(stored) != len(query) {
			continue
		}
		hits = append(hits, domain.Hit{
			ID:    domain.RecordID(id),
			Score: vectorstore.Score(params.Metric, query, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating records: %w", domain.ErrQuery, err)
	}

	return vectorstore.Rank(hits, params.Metric, params.Limit), nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.schema == nil {
		return 0, fmt.Errorf("%w: collection does not exist", domain.ErrStoreUnavailable)
	}

	var n int64
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE collection = ?", s.schema.Name)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting records: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id domain.RecordID) (*domain.IndexedRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, vector, metadata FROM records WHERE id = ?", int64(id))

	var rec domain.IndexedRecord
	var rawID int64
	var blob []byte
	var metadataJSON sql.NullString
	if err := row.Scan(&rawID, &blob, &metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	rec.ID = domain.RecordID(rawID)
	rec.Vector = bytesToFloat32Slice(blob)
	if metadataJSON.Valid {
		if err := json.Unmarshal([]byte(metadataJSON.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return &rec, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// float32SliceToBytes encodes a vector as little-endian float32s.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice decodes a blob written by float32SliceToBytes.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
