// Package arcgis implements domain.HazardFeed on the ArcGIS USA_Wildfires
// feature service.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

// Client queries the wildfire incident layer for its full snapshot.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an ArcGIS client. baseURL is the layer's query endpoint.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// FetchHazards returns every incident in the layer that carries a point geometry.
func (c *Client) FetchHazards(ctx context.Context) ([]domain.HazardEvent, error) {
	params := url.Values{}
	params.Set("where", "1=1")
	params.Set("outFields", "*")
	params.Set("returnGeometry", "true")
	params.Set("outSR", "4326")
	params.Set("f", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arcgis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("arcgis API error: status %d: %s", resp.StatusCode, body)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// ArcGIS reports query errors in a 200 body.
	if qr.Error != nil {
		msg := qr.Error.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("arcgis API error: %d: %s", qr.Error.Code, msg)
	}

	fetchedAt := domain.Now()
	hazards := make([]domain.HazardEvent, 0, len(qr.Features))
	skipped := 0
	for _, f := range qr.Features {
		h, ok := toHazard(f, fetchedAt)
		if !ok {
			skipped++
			continue
		}
		hazards = append(hazards, h)
	}

	c.logger.Debug("arcgis hazards fetched", "count", len(hazards), "skipped", skipped)
	return hazards, nil
}

func toHazard(f feature, fetchedAt time.Time) (domain.HazardEvent, bool) {
	if f.Geometry == nil || (f.Geometry.X == 0 && f.Geometry.Y == 0) {
		return domain.HazardEvent{}, false
	}
	a := f.Attributes
	id := firstNonEmpty(a.IrwinID, a.UniqueFireIdentifier)
	if id == "" && a.ObjectID != 0 {
		id = "objectid-" + strconv.FormatInt(a.ObjectID, 10)
	}
	if id == "" {
		return domain.HazardEvent{}, false
	}

	h := domain.HazardEvent{
		ID:        strings.Trim(id, "{}"),
		Name:      strings.TrimSpace(a.IncidentName),
		Location:  domain.Coordinate{Lat: f.Geometry.Y, Lon: f.Geometry.X},
		Status:    a.IncidentStatus,
		FireType:  a.FireType,
		State:     a.POOState,
		Agency:    a.POOAgency,
		FetchedAt: fetchedAt,
	}
	if a.GISAcres != nil {
		h.Acres = *a.GISAcres
	}
	if a.FireDiscoveryDateTime != nil {
		h.DiscoveredAt = time.UnixMilli(*a.FireDiscoveryDateTime).UTC()
	}
	return h, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ArcGIS REST API response types.

type queryResponse struct {
	Features []feature `json:"features"`
	Error    *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type feature struct {
	Attributes attributes `json:"attributes"`
	Geometry   *point     `json:"geometry"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type attributes struct {
	ObjectID              int64    `json:"OBJECTID"`
	IrwinID               string   `json:"IrwinID"`
	UniqueFireIdentifier  string   `json:"UniqueFireIdentifier"`
	IncidentName          string   `json:"IncidentName"`
	GISAcres              *float64 `json:"GISAcres"`
	FireDiscoveryDateTime *int64   `json:"FireDiscoveryDateTime"` // epoch milliseconds
	IncidentStatus        string   `json:"IncidentStatus"`
	FireType              string   `json:"FireType"`
	POOState              string   `json:"POOState"`
	POOAgency             string   `json:"POOAgency"`
}
