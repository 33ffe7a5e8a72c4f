package milvus

import (
	"context"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

// api is the part of the Milvus client the store uses.
type api interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, schema *entity.Schema, idx index.Index) error
	LoadCollection(ctx context.Context, name string) error
	Insert(ctx context.Context, name string, columns ...column.Column) (milvusclient.InsertResult, error)
	Search(ctx context.Context, name string, query entity.FloatVector, req searchRequest) ([]milvusclient.ResultSet, error)
	Query(ctx context.Context, name, filter string, fields ...string) (milvusclient.ResultSet, error)
	Close(ctx context.Context) error
}

// searchRequest carries the per-query knobs of one ANN search.
type searchRequest struct {
	Metric domain.Metric
	Effort int
	Limit  int
}

// sdkClient adapts *milvusclient.Client to api.
type sdkClient struct {
	c *milvusclient.Client
}

func dialSDK(ctx context.Context, cfg *milvusclient.ClientConfig) (api, error) {
	c, err := milvusclient.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &sdkClient{c: c}, nil
}

func (s *sdkClient) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.c.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
}

func (s *sdkClient) CreateCollection(ctx context.Context, schema *entity.Schema, idx index.Index) error {
	opt := milvusclient.NewCreateCollectionOption(schema.CollectionName, schema).
		WithIndexOptions(milvusclient.NewCreateIndexOption(schema.CollectionName, domain.VectorField, idx))
	return s.c.CreateCollection(ctx, opt)
}

func (s *sdkClient) LoadCollection(ctx context.Context, name string) error {
	task, err := s.c.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return err
	}
	return task.Await(ctx)
}

func (s *sdkClient) Insert(ctx context.Context, name string, columns ...column.Column) (milvusclient.InsertResult, error) {
	return s.c.Insert(ctx, milvusclient.NewColumnBasedInsertOption(name, columns...))
}

func (s *sdkClient) Search(ctx context.Context, name string, query entity.FloatVector, req searchRequest) ([]milvusclient.ResultSet, error) {
	opt := milvusclient.NewSearchOption(name, req.Limit, []entity.Vector{query}).
		WithANNSField(domain.VectorField).
		WithSearchParam("metric_type", req.Metric.String()).
		WithConsistencyLevel(entity.ClStrong)
	if req.Effort > 0 {
		opt = opt.WithAnnParam(index.NewIvfAnnParam(req.Effort))
	}
	return s.c.Search(ctx, opt)
}

func (s *sdkClient) Query(ctx context.Context, name, filter string, fields ...string) (milvusclient.ResultSet, error) {
	opt := milvusclient.NewQueryOption(name).
		WithOutputFields(fields...).
		WithConsistencyLevel(entity.ClStrong)
	if filter != "" {
		opt = opt.WithFilter(filter)
	}
	return s.c.Query(ctx, opt)
}

func (s *sdkClient) Close(ctx context.Context) error {
	return s.c.Close(ctx)
}
