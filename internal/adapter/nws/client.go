// Package nws implements domain.AlertFeed on the National Weather Service
// active alerts API.
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

// Client fetches active alerts for a point from api.weather.gov.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates an NWS alerts client. The NWS API rejects requests
// without an identifying User-Agent.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// ActiveAlerts returns the alerts currently in effect at the given point.
func (c *Client) ActiveAlerts(ctx context.Context, at domain.Coordinate) ([]domain.AlertRecord, error) {
	params := url.Values{}
	params.Set("point", fmt.Sprintf("%.4f,%.4f", at.Lat, at.Lon))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nws request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("nws API error: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	alerts := make([]domain.AlertRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		p := f.Properties
		rec := domain.AlertRecord{
			ID:              p.ID,
			EventType:       p.Event,
			Severity:        domain.ParseSeverity(p.Severity),
			AreaDescription: p.AreaDesc,
			Description:     p.Description,
			Instruction:     p.Instruction,
			SentAt:          p.Sent,
			EffectiveAt:     p.Effective,
		}
		if p.Expires != nil {
			rec.ExpiresAt = *p.Expires
		}
		if rec.ID == "" {
			rec.ID = f.ID
		}
		alerts = append(alerts, rec)
	}

	c.logger.Debug("nws alerts fetched", "lat", at.Lat, "lon", at.Lon, "count", len(alerts))
	return alerts, nil
}

// NWS GeoJSON response types.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Properties properties `json:"properties"`
}

type properties struct {
	ID          string     `json:"id"`
	Event       string     `json:"event"`
	Severity    string     `json:"severity"`
	AreaDesc    string     `json:"areaDesc"`
	Description string     `json:"description"`
	Instruction *string    `json:"instruction"`
	Sent        time.Time  `json:"sent"`
	Effective   time.Time  `json:"effective"`
	Expires     *time.Time `json:"expires"`
}
