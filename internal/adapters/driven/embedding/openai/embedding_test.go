package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected int
	}{
		{"default model", Config{APIKey: "k"}, 1536},
		{"large model", Config{APIKey: "k", Model: "text-embedding-3-large"}, 3072},
		{"reduced", Config{APIKey: "k", Model: "text-embedding-3-large", Dimensions: 768}, 768},
		{"unknown model", Config{APIKey: "k", Model: "custom"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewEmbeddingService(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s.Dimensions())
		})
	}
}

func TestEmbed(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,-0.5],"index":0}]}`))
	}))
	defer srv.Close()

	s, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "text-embedding-3-small", Dimensions: 2})
	require.NoError(t, err)

	vec, err := s.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5}, vec)
	assert.Equal(t, "hello", got.Input)
	assert.Equal(t, "float", got.EncodingFormat)
	assert.Equal(t, 2, got.Dimensions)
}

func TestEmbed_NoDimensionsForLegacyModel(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1],"index":0}]}`))
	}))
	defer srv.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL, Model: "text-embedding-ada-002"})
	require.NoError(t, err)
	_, err = s.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.NotContains(t, got, "dimensions")
}

func TestEmbed_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	s, err := NewEmbeddingService(Config{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = s.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key")
	assert.Contains(t, err.Error(), "401")
}

func TestEmbed_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = s.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestEmbed_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = s.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/models/text-embedding-3-small", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"text-embedding-3-small"}`))
	}))
	defer srv.Close()

	good, err := NewEmbeddingService(Config{APIKey: "good", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, good.Ping(context.Background()))

	bad, err := NewEmbeddingService(Config{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)
	err = bad.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.NoError(t, bad.Close())
}
