// Package milvus provides a vector store backed by Milvus through the
// official Go SDK (gRPC).
package milvus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driven"
)

// Verify interface compliance.
var (
	_ driven.VectorStore  = (*Store)(nil)
	_ driven.RecordReader = (*Store)(nil)
)

// Default configuration values.
const (
	DefaultHost    = "localhost"
	DefaultPort    = 19530
	DefaultTimeout = 30 * time.Second
	DefaultNList   = 1024
)

// MetadataField is the JSON field holding record metadata.
const MetadataField = "metadata"

const countField = "count(*)"

// Config holds connection settings for a Milvus server.
type Config struct {
	// Host and Port locate the server (default: localhost:19530).
	Host string
	Port int

	// Address overrides Host and Port, e.g. "milvus.example.com:443".
	Address string

	// Token authenticates the connection. Use "user:password" for basic
	// credentials or an API key for managed deployments.
	Token string

	// Timeout bounds connection setup (default: 30s).
	Timeout time.Duration

	// NList is the IVF_FLAT cluster count used when creating the index.
	NList int
}

// Store talks to one Milvus collection. The connection is opened on
// first use.
type Store struct {
	cfg  milvusclient.ClientConfig
	dial func(ctx context.Context, cfg *milvusclient.ClientConfig) (api, error)

	timeout time.Duration
	nlist   int

	connMu sync.Mutex
	client api

	mu     sync.RWMutex
	schema *domain.CollectionSchema
}

// New creates a store for the configured server. No connection is made.
func New(cfg Config) *Store {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.NList <= 0 {
		cfg.NList = DefaultNList
	}
	address := cfg.Address
	if address == "" {
		address = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	return &Store{
		cfg: milvusclient.ClientConfig{
			Address: address,
			APIKey:  cfg.Token,
		},
		dial:    dialSDK,
		timeout: cfg.Timeout,
		nlist:   cfg.NList,
	}
}

// Address returns the server address the store connects to.
func (s *Store) Address() string {
	return s.cfg.Address
}

// CreateCollection creates the collection with an IVF_FLAT index when it
// does not exist, then loads it for search.
func (s *Store) CreateCollection(ctx context.Context, schema domain.CollectionSchema) error {
	c, err := s.conn(ctx)
	if err != nil {
		return err
	}

	has, err := c.HasCollection(ctx, schema.Name)
	if err != nil {
		return classify("has collection", err, domain.ErrStoreUnavailable)
	}
	if !has {
		idx := index.NewIvfFlatIndex(entity.MetricType(schema.Metric.String()), s.nlist)
		if err := c.CreateCollection(ctx, collectionSchema(schema), idx); err != nil {
			return classify("create collection", err, domain.ErrStoreUnavailable)
		}
	}
	if err := c.LoadCollection(ctx, schema.Name); err != nil {
		return classify("load collection", err, domain.ErrStoreUnavailable)
	}

	s.mu.Lock()
	s.schema = &schema
	s.mu.Unlock()
	return nil
}

// Insert adds one entity. Metadata is written to the JSON field.
func (s *Store) Insert(ctx context.Context, vec domain.Vector, meta domain.Metadata) (domain.RecordID, error) {
	schema, err := s.bound()
	if err != nil {
		return 0, err
	}
	if len(vec) != schema.Dimension {
		return 0, fmt.Errorf("%w: vector has %d dimensions, collection expects %d",
			domain.ErrStoreWrite, len(vec), schema.Dimension)
	}
	if meta == nil {
		meta = domain.Metadata{}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("%w: encode metadata: %w", domain.ErrStoreWrite, err)
	}

	c, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	res, err := c.Insert(ctx, schema.Name,
		column.NewColumnFloatVector(domain.VectorField, schema.Dimension, [][]float32{vec}),
		column.NewColumnJSONBytes(MetadataField, [][]byte{data}),
	)
	if err != nil {
		return 0, classify("insert", err, domain.ErrStoreWrite)
	}
	if res.IDs == nil || res.IDs.Len() != 1 {
		return 0, fmt.Errorf("%w: milvus returned %d ids for one entity", domain.ErrStoreWrite, idCount(res.IDs))
	}

	id, err := res.IDs.GetAsInt64(0)
	if err != nil {
		return 0, fmt.Errorf("%w: insert id: %w", domain.ErrStoreWrite, err)
	}
	return domain.RecordID(id), nil
}

// Search runs an ANN search with nprobe set to params.Effort.
func (s *Store) Search(ctx context.Context, query domain.Vector, params domain.SearchParams) ([]domain.Hit, error) {
	schema, err := s.bound()
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	c, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	results, err := c.Search(ctx, schema.Name, entity.FloatVector(query), searchRequest{
		Metric: params.Metric,
		Effort: params.Effort,
		Limit:  params.Limit,
	})
	if err != nil {
		return nil, classify("search", err, domain.ErrQuery)
	}
	if len(results) == 0 {
		return []domain.Hit{}, nil
	}

	rs := results[0]
	hits := make([]domain.Hit, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		id, err := rs.IDs.GetAsInt64(i)
		if err != nil {
			return nil, fmt.Errorf("%w: hit %d: %w", domain.ErrQuery, i, err)
		}
		if i >= len(rs.Scores) {
			return nil, fmt.Errorf("%w: hit %d has no score", domain.ErrQuery, i)
		}
		hits = append(hits, domain.Hit{ID: domain.RecordID(id), Score: float64(rs.Scores[i])})
	}
	return hits, nil
}

// Count returns the collection row count from a count(*) query.
func (s *Store) Count(ctx context.Context) (int64, error) {
	schema, err := s.bound()
	if err != nil {
		return 0, err
	}
	c, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	rs, err := c.Query(ctx, schema.Name, "", countField)
	if err != nil {
		return 0, classify("count", err, domain.ErrStoreUnavailable)
	}
	col := field(rs, countField)
	if col == nil || col.Len() == 0 {
		return 0, fmt.Errorf("%w: count: no result", domain.ErrStoreUnavailable)
	}
	n, err := col.GetAsInt64(0)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// Get returns one record by primary key.
func (s *Store) Get(ctx context.Context, id domain.RecordID) (*domain.IndexedRecord, error) {
	schema, err := s.bound()
	if err != nil {
		return nil, err
	}
	c, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("%s == %d", domain.IDField, id)
	rs, err := c.Query(ctx, schema.Name, filter, domain.VectorField, MetadataField)
	if err != nil {
		return nil, classify("get", err, domain.ErrQuery)
	}
	vecCol := field(rs, domain.VectorField)
	if vecCol == nil || vecCol.Len() == 0 {
		return nil, domain.ErrNotFound
	}

	raw, err := vecCol.Get(0)
	if err != nil {
		return nil, fmt.Errorf("%w: get vector: %w", domain.ErrQuery, err)
	}
	rec := &domain.IndexedRecord{ID: id}
	switch v := raw.(type) {
	case entity.FloatVector:
		rec.Vector = domain.Vector(v)
	case []float32:
		rec.Vector = domain.Vector(v)
	default:
		return nil, fmt.Errorf("%w: unexpected vector type %T", domain.ErrQuery, raw)
	}

	if metaCol := field(rs, MetadataField); metaCol != nil && metaCol.Len() > 0 {
		raw, err := metaCol.Get(0)
		if err != nil {
			return nil, fmt.Errorf("%w: get metadata: %w", domain.ErrQuery, err)
		}
		var data []byte
		switch v := raw.(type) {
		case []byte:
			data = v
		case string:
			data = []byte(v)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("%w: decode metadata: %w", domain.ErrQuery, err)
			}
		}
	}
	return rec, nil
}

// Close closes the connection if one was opened.
func (s *Store) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.client.Close(ctx)
	s.client = nil
	return err
}

// conn returns the open client, dialling on first use. A failed dial is
// retried on the next call.
func (s *Store) conn(ctx context.Context) (api, error) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cfg := s.cfg
	c, err := s.dial(dialCtx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect milvus %s: %w", domain.ErrStoreUnavailable, s.cfg.Address, err)
	}
	s.client = c
	return c, nil
}

func (s *Store) bound() (domain.CollectionSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.schema == nil {
		return domain.CollectionSchema{}, fmt.Errorf("%w: collection does not exist", domain.ErrStoreUnavailable)
	}
	return *s.schema, nil
}

func collectionSchema(schema domain.CollectionSchema) *entity.Schema {
	return entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(true).
		WithField(entity.NewField().
			WithName(domain.IDField).
			WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true).
			WithIsAutoID(true)).
		WithField(entity.NewField().
			WithName(domain.VectorField).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension))).
		WithField(entity.NewField().
			WithName(MetadataField).
			WithDataType(entity.FieldTypeJSON))
}

func field(rs milvusclient.ResultSet, name string) column.Column {
	for _, col := range rs.Fields {
		if col != nil && col.Name() == name {
			return col
		}
	}
	return nil
}

func idCount(col column.Column) int {
	if col == nil {
		return 0
	}
	return col.Len()
}

// classify maps transport failures to ErrStoreUnavailable and everything
// else the server rejects to kind.
func classify(op string, err error, kind error) error {
	if unavailable(err) {
		kind = domain.ErrStoreUnavailable
	}
	return fmt.Errorf("%w: milvus %s: %w", kind, op, err)
}

func unavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return true
		}
	}
	return false
}
