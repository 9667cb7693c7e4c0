// Package osrm implements domain.RoutingService on the OSRM route API.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

// Client requests driving routes from an OSRM server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an OSRM client. baseURL includes the profile, for example
// https://router.project-osrm.org/route/v1/driving.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Route returns the fastest route from origin to dest with its full geometry.
func (c *Client) Route(ctx context.Context, origin domain.Coordinate, dest domain.Destination) (domain.Route, error) {
	// OSRM uses lon,lat order.
	u := fmt.Sprintf("%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		c.baseURL, origin.Lon, origin.Lat, dest.Location.Lon, dest.Location.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Route{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Route{}, fmt.Errorf("osrm request: %w", err)
	}
	defer resp.Body.Close()

	// OSRM reports routing failures such as NoRoute with a 400 and a JSON body.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return domain.Route{}, fmt.Errorf("osrm API error: status %d: %s", resp.StatusCode, body)
	}

	var rr response
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return domain.Route{}, fmt.Errorf("decode response: %w", err)
	}
	if rr.Code != "Ok" {
		return domain.Route{}, fmt.Errorf("osrm: %s: %s", rr.Code, rr.Message)
	}
	if len(rr.Routes) == 0 {
		return domain.Route{}, fmt.Errorf("osrm: no route to %s", dest.Name)
	}

	r := rr.Routes[0]
	geometry := make([]domain.Coordinate, 0, len(r.Geometry.Coordinates))
	for _, p := range r.Geometry.Coordinates {
		if len(p) < 2 {
			continue
		}
		geometry = append(geometry, domain.Coordinate{Lat: p[1], Lon: p[0]})
	}

	return domain.Route{
		Geometry:        geometry,
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
		Destination:     dest,
	}, nil
}

// OSRM API response types.

type response struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
}
