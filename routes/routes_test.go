package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/app"
	"github.com/upb/llm-router-lab/config"
)

func newServer(t *testing.T, metrics bool) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Router:        config.RouterConfig{Strategy: config.StrategyCascade},
		Backends:      config.BackendsConfig{Entries: "small=echo,large=echo"},
		Observability: config.ObservabilityConfig{LogLevel: "info", MetricsEnabled: metrics},
	}
	deps, err := app.NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(srv.Close)
	return srv
}

func TestSetupRoutes(t *testing.T) {
	srv := newServer(t, true)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		contains       string
	}{
		{"health", http.MethodGet, "/healthz", "", http.StatusOK, "healthy"},
		{"ready", http.MethodGet, "/readyz", "", http.StatusOK, "backends"},
		{"route", http.MethodPost, "/api/v1/route", `{"input":"hi","return_metadata":true}`, http.StatusOK, "[small] hi"},
		{"route without input", http.MethodPost, "/api/v1/route", `{}`, http.StatusBadRequest, "Validation failed"},
		{"generate", http.MethodPost, "/api/v1/generate", `[{"models":["large"],"inputs":["x"],"evaluators":["non_empty"]}]`, http.StatusOK, "[large] x"},
		{"generate unknown model", http.MethodPost, "/api/v1/generate", `[{"models":["huge"],"inputs":["x"]}]`, http.StatusBadRequest, "huge"},
		{"generate without uploader", http.MethodPost, "/api/v1/generate?dataset=d", `[]`, http.StatusServiceUnavailable, "not configured"},
		{"models", http.MethodGet, "/api/v1/models", "", http.StatusOK, "CascadeRouter([small, large])"},
		{"unknown path", http.MethodGet, "/api/v2/route", "", http.StatusNotFound, "endpoint not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

			var body bytes.Buffer
			_, err = body.ReadFrom(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, body.String(), tt.contains)
		})
	}
}

func TestSetupRoutes_Stats(t *testing.T) {
	srv := newServer(t, true)

	resp, err := http.Post(srv.URL+"/api/v1/route", "application/json", bytes.NewBufferString(`{"input":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env struct {
		Data struct {
			Selections map[string]int `json:"selections"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, 1, env.Data.Selections["small"])
}

func TestSetupRoutes_StatsDisabled(t *testing.T) {
	srv := newServer(t, false)

	resp, err := http.Get(srv.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
