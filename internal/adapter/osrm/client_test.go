package osrm

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

var (
	origin = domain.Coordinate{Lat: 40.015, Lon: -105.2705}
	dest   = domain.Destination{
		Type:     domain.DestinationShelter,
		Name:     "Longmont Shelter",
		Location: domain.Coordinate{Lat: 40.1672, Lon: -105.1019},
	}
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL+"/route/v1/driving/", 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRoute_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/-105.270500,40.015000;-105.101900,40.167200", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		assert.Equal(t, "geojson", r.URL.Query().Get("geometries"))

		_, _ = w.Write([]byte(`{
		  "code":"Ok",
		  "routes":[{"distance":24512.3,"duration":1490.2,
		    "geometry":{"type":"LineString","coordinates":[[-105.2705,40.015],[-105.2,40.1],[-105.1019,40.1672]]}}]
		}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Route(context.Background(), origin, dest)
	require.NoError(t, err)

	assert.InDelta(t, 24512.3, got.DistanceMeters, 1e-9)
	assert.InDelta(t, 1490.2, got.DurationSeconds, 1e-9)
	assert.Equal(t, dest, got.Destination)
	require.Len(t, got.Geometry, 3)
	assert.Equal(t, domain.Coordinate{Lat: 40.1, Lon: -105.2}, got.Geometry[1])
}

func TestRoute_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Route(context.Background(), origin, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoRoute")
}

func TestRoute_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Route(context.Background(), origin, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestRoute_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).Route(ctx, origin, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
