package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

const testKey = "test-key"

var boulder = domain.Coordinate{Lat: 40.015, Lon: -105.2705}

func testClient(baseURL, key string) *Client {
	return NewClient(baseURL, key, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWind_ConvertsUnitsAndDirection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, testKey, q.Get("appid"))
		assert.Equal(t, "40.015000", q.Get("lat"))
		assert.Equal(t, "-105.270500", q.Get("lon"))
		assert.Equal(t, "metric", q.Get("units"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"wind":{"speed":5,"deg":270,"gust":9.2},"name":"Boulder"}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, testKey).Wind(context.Background(), boulder)
	require.NoError(t, err)

	assert.InDelta(t, 18.0, got.SpeedKmh, 1e-9)
	// From the west means blowing toward the east.
	assert.InDelta(t, 90.0, got.DirectionDegrees, 1e-9)
	assert.True(t, got.DirectionKnown)
}

func TestWind_DirectionWraps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"wind":{"speed":2,"deg":45}}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, testKey).Wind(context.Background(), boulder)
	require.NoError(t, err)
	assert.InDelta(t, 225.0, got.DirectionDegrees, 1e-9)
}

func TestWind_MissingDirection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"wind":{"speed":0}}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, testKey).Wind(context.Background(), boulder)
	require.NoError(t, err)
	assert.False(t, got.DirectionKnown)
	assert.True(t, got.Calm())
}

func TestWind_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, "bad").Wind(context.Background(), boulder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestWind_MissingKey(t *testing.T) {
	_, err := testClient("http://127.0.0.1:0", "").Wind(context.Background(), boulder)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
