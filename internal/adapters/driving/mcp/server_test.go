package mcp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil retrieval service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRetrievalService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("conversations with owner creates server", func(t *testing.T) {
		ports := &Ports{
			Retrieval:    &mockRetrievalService{},
			Conversation: &mockConversationService{},
			Owner:        "alice",
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil retrieval service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingRetrievalService)
	})

	t.Run("retrieval only is valid", func(t *testing.T) {
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})

	t.Run("conversations without owner is invalid", func(t *testing.T) {
		ports := &Ports{
			Retrieval:    &mockRetrievalService{},
			Conversation: &mockConversationService{},
			Owner:        "  ",
		}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingOwner)
	})
}

func TestHTTPHandler_Healthz(t *testing.T) {
	retrieval := &mockRetrievalService{}
	server, err := NewServer(&Ports{Retrieval: retrieval})
	require.NoError(t, err)
	handler := server.httpHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	retrieval.err = errors.New("database is locked")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}

func TestHTTPHandler_UnknownPath(t *testing.T) {
	server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.httpHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
