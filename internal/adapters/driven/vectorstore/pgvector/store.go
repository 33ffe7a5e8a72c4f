// Package pgvector provides a vector store on PostgreSQL with the pgvector
// extension, accessed through pgx's database/sql driver. Vectors cross the
// driver as pgvector-go values.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
)

// Verify interface compliance.
var (
	_ driven.VectorStore  = (*Store)(nil)
	_ driven.RecordReader = (*Store)(nil)
)

// DefaultLists is the ivfflat list count used when building the index.
const DefaultLists = 100

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a pgvector-backed vector store bound to one table.
type Store struct {
	db    *sql.DB
	lists int

	mu     sync.RWMutex
	schema *domain.CollectionSchema
}

// New opens a connection pool for dsn and verifies it with a ping.
func New(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres DSN is required", domain.ErrInvalidInput)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", domain.ErrStoreUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", domain.ErrStoreUnavailable, err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an existing pool.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, lists: DefaultLists}
}

// CreateCollection creates the extension, table and ivfflat index if missing
// and binds the store to the table.
func (s *Store) CreateCollection(ctx context.Context, schema domain.CollectionSchema) error {
	if !identPattern.MatchString(schema.Name) {
		return fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidInput, schema.Name)
	}
	ops, err := opsClass(schema.Metric)
	if err != nil {
		return err
	}

	for _, stmt := range createStatements(schema, ops, s.lists) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return classify(fmt.Errorf("create collection: %w", err), domain.ErrStoreUnavailable)
		}
	}

	s.mu.Lock()
	s.schema = &schema
	s.mu.Unlock()
	return nil
}

// Insert adds a row and returns its BIGSERIAL id.
func (s *Store) Insert(ctx context.Context, vec domain.Vector, meta domain.Metadata) (domain.RecordID, error) {
	schema, err := s.bound()
	if err != nil {
		return 0, err
	}
	if len(vec) != schema.Dimension {
		return 0, fmt.Errorf("%w: vector has %d dimensions, collection expects %d",
			domain.ErrStoreWrite, len(vec), schema.Dimension)
	}

	var metadataJSON sql.NullString
	if len(meta) > 0 {
		data, err := json.Marshal(meta)
		if err != nil {
			return 0, fmt.Errorf("%w: marshal metadata: %w", domain.ErrStoreWrite, err)
		}
		metadataJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s, metadata) VALUES ($1::vector, $2::jsonb) RETURNING %s`,
		schema.Name, domain.VectorField, domain.IDField)

	var id int64
	if err := s.db.QueryRowContext(ctx, query, pgv.NewVector(vec), metadataJSON).Scan(&id); err != nil {
		return 0, classify(fmt.Errorf("insert: %w", err), domain.ErrStoreWrite)
	}
	return domain.RecordID(id), nil
}

// Search runs an ordered nearest-neighbour query with ivfflat.probes set to
// params.Effort for the duration of the transaction.
func (s *Store) Search(ctx context.Context, query domain.Vector, params domain.SearchParams) ([]domain.Hit, error) {
	schema, err := s.bound()
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(query) != schema.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection expects %d",
			domain.ErrQuery, len(query), schema.Dimension)
	}

	stmt, err := searchStatement(schema.Name, params.Metric)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, classify(fmt.Errorf("begin search: %w", err), domain.ErrStoreUnavailable)
	}
	defer tx.Rollback() //nolint:errcheck

	if params.Effort > 0 {
		if _, err := tx.ExecContext(ctx, "SET LOCAL ivfflat.probes = "+strconv.Itoa(params.Effort)); err != nil {
			return nil, classify(fmt.Errorf("set search effort: %w", err), domain.ErrQuery)
		}
	}

	rows, err := tx.QueryContext(ctx, stmt, pgv.NewVector(query), params.Limit)
	if err != nil {
		return nil, classify(fmt.Errorf("search: %w", err), domain.ErrQuery)
	}
	defer rows.Close()

	hits := make([]domain.Hit, 0, params.Limit)
	for rows.Next() {
		var id int64
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("%w: scan row: %w", domain.ErrQuery, err)
		}
		hits = append(hits, domain.Hit{ID: domain.RecordID(id), Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate rows: %w", err), domain.ErrQuery)
	}
	return hits, nil
}

// Count returns the number of rows in the table.
func (s *Store) Count(ctx context.Context) (int64, error) {
	schema, err := s.bound()
	if err != nil {
		return 0, err
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+schema.Name).Scan(&n); err != nil {
		return 0, classify(fmt.Errorf("count: %w", err), domain.ErrStoreUnavailable)
	}
	return n, nil
}

// Get retrieves a row by id.
func (s *Store) Get(ctx context.Context, id domain.RecordID) (*domain.IndexedRecord, error) {
	schema, err := s.bound()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s, metadata::text FROM %s WHERE %s = $1`,
		domain.VectorField, schema.Name, domain.IDField)

	var vec pgv.Vector
	var metadataJSON sql.NullString
	if err := s.db.QueryRowContext(ctx, query, int64(id)).Scan(&vec, &metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(fmt.Errorf("get: %w", err), domain.ErrQuery)
	}

	rec := &domain.IndexedRecord{ID: id, Vector: domain.Vector(vec.Slice())}
	if metadataJSON.Valid {
		if err := json.Unmarshal([]byte(metadataJSON.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return rec, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) bound() (domain.CollectionSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.schema == nil {
		return domain.CollectionSchema{}, fmt.Errorf("%w: collection does not exist", domain.ErrStoreUnavailable)
	}
	return *s.schema, nil
}

func createStatements(schema domain.CollectionSchema, ops string, lists int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s BIGSERIAL PRIMARY KEY,
			%s vector(%d) NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, schema.Name, domain.IDField, domain.VectorField, schema.Dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_%s_idx ON %s USING ivfflat (%s %s) WITH (lists = %d)`,
			schema.Name, domain.VectorField, schema.Name, domain.VectorField, ops, lists),
	}
}

func opsClass(metric domain.Metric) (string, error) {
	switch metric {
	case domain.MetricIP:
		return "vector_ip_ops", nil
	case domain.MetricL2:
		return "vector_l2_ops", nil
	case domain.MetricCosine:
		return "vector_cosine_ops", nil
	default:
		return "", fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidInput, metric)
	}
}

// searchStatement builds the query for metric. Scores follow the Milvus
// convention: inner product and cosine similarity grow with similarity,
// L2 is the squared distance.
func searchStatement(table string, metric domain.Metric) (string, error) {
	var op, score string
	switch metric {
	case domain.MetricIP:
		// <#> is the negative inner product.
		op, score = "<#>", "-1 * (%s <#> $1::vector)"
	case domain.MetricL2:
		op, score = "<->", "power(%s <-> $1::vector, 2)"
	case domain.MetricCosine:
		op, score = "<=>", "1 - (%s <=> $1::vector)"
	default:
		return "", fmt.Errorf("%w: unknown metric %q", domain.ErrQuery, metric)
	}
	return fmt.Sprintf(`SELECT %s, %s AS score FROM %s ORDER BY %s %s $1::vector LIMIT $2`,
		domain.IDField, fmt.Sprintf(score, domain.VectorField), table, domain.VectorField, op), nil
}

// classify keeps server-side rejections under fallback and reports
// everything else (network, closed pool, cancelled context) as unavailable.
func classify(err error, fallback error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %s (SQLSTATE %s): %w", fallback, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
