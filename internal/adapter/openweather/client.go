// Package openweather implements domain.WindProvider on the OpenWeather
// current weather API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/geo"
)

const msToKmh = 3.6

// ErrMissingAPIKey is returned when no API key was configured.
var ErrMissingAPIKey = errors.New("openweather: OPENWEATHER_API_KEY is not set")

// Client fetches current surface wind.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an OpenWeather client. baseURL is the full
// /data/2.5/weather endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Wind returns the wind at a point. OpenWeather reports speed in m/s and the
// direction the wind comes from; both are converted to the domain convention
// of km/h and the heading the wind blows toward.
func (c *Client) Wind(ctx context.Context, at domain.Coordinate) (domain.Wind, error) {
	if c.apiKey == "" {
		return domain.Wind{}, ErrMissingAPIKey
	}

	params := url.Values{
		"lat":   {strconv.FormatFloat(at.Lat, 'f', 6, 64)},
		"lon":   {strconv.FormatFloat(at.Lon, 'f', 6, 64)},
		"units": {"metric"},
		"appid": {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Wind{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Wind{}, fmt.Errorf("openweather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Wind{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var wr weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return domain.Wind{}, fmt.Errorf("decode response: %w", err)
	}

	w := domain.Wind{SpeedKmh: wr.Wind.Speed * msToKmh}
	if wr.Wind.Deg != nil {
		w.DirectionDegrees = geo.NormalizeBearing(*wr.Wind.Deg + 180)
		w.DirectionKnown = true
	}
	c.logger.Debug("wind fetched",
		"location", at.String(),
		"speed_kmh", w.SpeedKmh,
		"toward", w.DirectionDegrees,
		"direction_known", w.DirectionKnown,
	)
	return w, nil
}

// OpenWeather API response types.

type weatherResponse struct {
	Wind struct {
		Speed float64  `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
}
