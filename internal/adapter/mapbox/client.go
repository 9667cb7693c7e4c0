package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
)

// Reverse lookups only ask for these area types, most specific first.
const reverseTypes = "neighborhood,locality,place"

// urbanPlaceTypes are the feature types Mapbox only assigns inside built-up
// areas.
var urbanPlaceTypes = []string{"neighborhood", "locality"}

// Place is the most specific named area that contains a point.
type Place struct {
	Name       string
	FullName   string
	PlaceTypes []string
	Relevance  float64
}

// Client implements domain.UrbanClassifier using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics: metrics,
		logger:  logger,
	}
}

// Classify reports a point as urban when Mapbox places it inside a
// neighborhood or locality, and rural when it only resolves to a broader
// place or to nothing at all.
func (c *Client) Classify(ctx context.Context, at domain.Coordinate) (domain.Urbanity, error) {
	place, found, err := c.ReverseGeocode(ctx, at)
	if err != nil {
		return domain.UrbanityUnknown, err
	}
	if !found {
		return domain.UrbanityRural, nil
	}
	for _, t := range place.PlaceTypes {
		if slices.Contains(urbanPlaceTypes, t) {
			return domain.UrbanityUrban, nil
		}
	}
	return domain.UrbanityRural, nil
}

// ReverseGeocode returns the most specific area containing at. found is false
// when Mapbox has no area there.
func (c *Client) ReverseGeocode(ctx context.Context, at domain.Coordinate) (Place, bool, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", at.Lon, at.Lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {reverseTypes},
	}

	start := time.Now()
	place, found, err := c.doRequest(ctx, u+"?"+params.Encode())
	c.metrics.ObserveCall("mapbox", start, err)
	if err != nil {
		c.logger.Debug("mapbox reverse geocode failed", "location", at.String(), "error", err)
	}
	return place, found, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (Place, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return Place{}, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Place{}, false, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Place{}, false, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return Place{}, false, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return Place{}, false, nil
	}

	f := mapboxResp.Features[0]
	return Place{
		Name:       f.Text,
		FullName:   f.PlaceName,
		PlaceTypes: f.PlaceType,
		Relevance:  f.Relevance,
	}, true, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	PlaceType []string `json:"place_type"`
	PlaceName string   `json:"place_name"`
	Text      string   `json:"text"`
	Relevance float64  `json:"relevance"`
}
