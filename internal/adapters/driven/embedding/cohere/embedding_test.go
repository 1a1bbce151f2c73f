package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/folio/internal/core/domain"
)

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)

	svc, err := NewEmbeddingService(Config{APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1024, svc.Dimensions())

	svc, err = NewEmbeddingService(Config{APIKey: "key", Model: "embed-english-light-v3.0"})
	require.NoError(t, err)
	assert.Equal(t, 384, svc.Dimensions())
}

func TestEmbed_InputTypes(t *testing.T) {
	var requests []embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/embed", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		var resp embedResponse
		for range req.Texts {
			resp.Embeddings.Float = append(resp.Embeddings.Float, []float64{0.5, 0.5})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)
	ctx := context.Background()

	docs, err := svc.EmbedDocuments(ctx, []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	query, err := svc.EmbedQuery(ctx, "question")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, query)

	require.Len(t, requests, 2)
	assert.Equal(t, "search_document", requests[0].InputType)
	assert.Equal(t, []string{"float"}, requests[0].EmbeddingTypes)
	assert.Equal(t, "search_query", requests[1].InputType)
	assert.Equal(t, DefaultModel, requests[1].Model)
}

func TestEmbed_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, want: domain.ErrRateLimited},
		{name: "unauthorized", status: http.StatusUnauthorized, want: domain.ErrEmbeddingUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			}))
			defer server.Close()

			svc, err := NewEmbeddingService(Config{APIKey: "key", BaseURL: server.URL})
			require.NoError(t, err)
			_, err = svc.EmbedDocuments(context.Background(), []string{"a"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":{"float":[[1,2]]}}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = svc.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models/embed-english-v3.0", r.URL.Path)
		_, _ = w.Write([]byte(`{"name":"embed-english-v3.0"}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(context.Background()))
}
