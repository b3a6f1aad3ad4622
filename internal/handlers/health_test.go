package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anpag/escaipe-room/internal/services"
	"github.com/anpag/escaipe-room/internal/storage"
)

func TestHealthHandler(t *testing.T) {
	store := storage.NewMockStorage()
	handler := NewHealthHandler(store, services.NewMockLLM(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "escaipe-room", resp.Service)
	assert.Equal(t, "healthy", resp.Components["storage"])
	assert.Equal(t, "healthy", resp.Components["llm"])
}

func TestHealthHandler_StorageDegraded(t *testing.T) {
	store := storage.NewMockStorage()
	store.SetPingError(errors.New("connection refused"))
	handler := NewHealthHandler(store, services.NewMockLLM(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["storage"])
	assert.Equal(t, "healthy", resp.Components["llm"])
}

func TestHealthHandler_LLMDegraded(t *testing.T) {
	store := storage.NewMockStorage()
	llm := services.NewMockLLM()
	llm.PingFunc = func(ctx context.Context) error {
		return errors.New("model is not initialized")
	}
	handler := NewHealthHandler(store, llm, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Components["storage"])
	assert.Equal(t, "unhealthy", resp.Components["llm"])
}
