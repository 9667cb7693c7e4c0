// Package overpass implements domain.FacilityLookup on the OpenStreetMap
// Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

// osmSelectors maps each destination type to its OSM tag selector.
var osmSelectors = map[domain.DestinationType]string{
	domain.DestinationHospital:      `["amenity"="hospital"]`,
	domain.DestinationShelter:       `["amenity"="shelter"]`,
	domain.DestinationSchool:        `["amenity"="school"]`,
	domain.DestinationFireStation:   `["amenity"="fire_station"]`,
	domain.DestinationAssemblyPoint: `["emergency"="assembly_point"]`,
}

// Client queries Overpass for candidate evacuation destinations.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an Overpass client. baseURL is the interpreter endpoint.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// FindCandidates returns the named facilities of the requested types within
// radiusMeters of center. Ways and relations are located by their center.
func (c *Client) FindCandidates(ctx context.Context, center domain.Coordinate, radiusMeters float64, types []domain.DestinationType) ([]domain.Destination, error) {
	query := BuildQuery(center, radiusMeters, types)
	form := url.Values{"data": {query}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("overpass API error: status %d: %s", resp.StatusCode, body)
	}

	var or response
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	dests := make([]domain.Destination, 0, len(or.Elements))
	for _, el := range or.Elements {
		d, ok := el.destination()
		if !ok {
			continue
		}
		dests = append(dests, d)
	}
	c.logger.Debug("facilities fetched", "center", center.String(), "elements", len(or.Elements), "candidates", len(dests))
	return dests, nil
}

// BuildQuery renders the Overpass QL query for the given search.
func BuildQuery(center domain.Coordinate, radiusMeters float64, types []domain.DestinationType) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, t := range types {
		sel, ok := osmSelectors[t]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  nwr%s(around:%.0f,%.6f,%.6f);\n", sel, radiusMeters, center.Lat, center.Lon)
	}
	b.WriteString(");\nout center tags;\n")
	return b.String()
}

// Overpass API response types.

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *point            `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (e element) destination() (domain.Destination, bool) {
	var loc domain.Coordinate
	switch {
	case e.Lat != nil && e.Lon != nil:
		loc = domain.Coordinate{Lat: *e.Lat, Lon: *e.Lon}
	case e.Center != nil:
		loc = domain.Coordinate{Lat: e.Center.Lat, Lon: e.Center.Lon}
	default:
		return domain.Destination{}, false
	}

	t, ok := destinationType(e.Tags)
	if !ok {
		return domain.Destination{}, false
	}

	name := e.Tags["name"]
	if name == "" {
		name = fmt.Sprintf("Unnamed %s (%s/%d)", strings.ReplaceAll(string(t), "_", " "), e.Type, e.ID)
	}
	return domain.Destination{Type: t, Name: name, Location: loc}, true
}

func destinationType(tags map[string]string) (domain.DestinationType, bool) {
	if tags["emergency"] == "assembly_point" {
		return domain.DestinationAssemblyPoint, true
	}
	switch tags["amenity"] {
	case "hospital":
		return domain.DestinationHospital, true
	case "shelter":
		return domain.DestinationShelter, true
	case "school":
		return domain.DestinationSchool, true
	case "fire_station":
		return domain.DestinationFireStation, true
	default:
		return "", false
	}
}
