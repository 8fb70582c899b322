package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placescan/internal/scan"
)

func TestRouter_Health(t *testing.T) {
	router := buildRouter(context.Background(), newTestEngine(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_ScanStateStartsIdle(t *testing.T) {
	router := buildRouter(context.Background(), newTestEngine(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/scan/state", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var state scan.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, scan.PhaseIdle, state.Phase)
}

func TestRouter_ScanPendingFalseInitially(t *testing.T) {
	router := buildRouter(context.Background(), newTestEngine(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/scan/pending", nil))

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body["pending"])
}

func TestRouter_StartScanRunsToCompletion(t *testing.T) {
	env := newTestEngine(t)
	router := buildRouter(context.Background(), env)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusAccepted, rr.Code)

	final := waitForPhase(t, env, scan.PhaseCompleted)
	assert.Equal(t, 2, final.TotalFound)
	assert.Equal(t, "FR", final.Locations[0].CountryCode)
	assert.Equal(t, 2, final.Locations[0].PhotoCount)
}

func TestRouter_StartScanRejectsBadExistingFile(t *testing.T) {
	router := buildRouter(context.Background(), newTestEngine(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/scan",
		strings.NewReader(`{"existing": "/nonexistent/places.json"}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_CancelWithoutActiveScan(t *testing.T) {
	router := buildRouter(context.Background(), newTestEngine(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/scan/cancel", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_LifecycleEndpoints(t *testing.T) {
	env := newTestEngine(t)
	router := buildRouter(context.Background(), env)

	for _, path := range []string{"/scan/background", "/scan/foreground"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
	// With no scan running the phase stays idle.
	assert.Equal(t, scan.PhaseIdle, env.Coordinator.CurrentState().Phase)
}
