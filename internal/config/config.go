package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const defaultArcGISURL = "https://services9.arcgis.com/RHVPKKiFTONKtxq3/arcgis/rest/services/USA_Wildfires_v1/FeatureServer/0/query"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RateLimitRPS    int

	// Planner tuning.
	CallTimeout        time.Duration
	RoutingConcurrency int
	SearchRadiusMeters float64

	// Collaborator endpoints. API keys are only ever injected here.
	OpenWeatherURL    string
	OpenWeatherAPIKey string
	OverpassURL       string
	OSRMURL           string
	NWSURL            string
	NWSUserAgent      string
	ArcGISURL         string

	// Hazard ingestion.
	IngestEnabled      bool
	HazardPollInterval time.Duration
	WorkerCount        int
	WorkerBufferSize   int
	DBPath             string

	// Mapbox urban classification.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Kafka publishing of finished plans and risk assessments.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaPlanTopic string
	KafkaRiskTopic string

	Risk    RiskConfig
	Scoring ScoringConfig
	Dedupe  DedupeConfig
}

// RiskConfig holds tag weights and level thresholds for risk scoring.
type RiskConfig struct {
	FireRiskWeight          int
	HighWindsWeight         int
	LowHumidityWeight       int
	ExtremeHeatWeight       int
	EvacuationOrderedWeight int
	UrbanAdjustment         int

	ExtremeThreshold  int
	HighThreshold     int
	ModerateThreshold int
}

// ScoringConfig holds the route score weights and the result size.
type ScoringConfig struct {
	DistanceWeight      float64
	TrafficWeight       float64
	FacilityWeight      float64
	AccessibilityWeight float64
	TopN                int
	ConeHalfAngle       float64
}

// DedupeConfig controls when two alerts with the same similarity key merge.
type DedupeConfig struct {
	Window              time.Duration
	SimilarityThreshold float64
}

// DefaultRisk returns the canonical tag weights and thresholds.
func DefaultRisk() RiskConfig {
	return RiskConfig{
		FireRiskWeight:          3,
		HighWindsWeight:         2,
		LowHumidityWeight:       2,
		ExtremeHeatWeight:       2,
		EvacuationOrderedWeight: 5,
		UrbanAdjustment:         1,
		ExtremeThreshold:        8,
		HighThreshold:           5,
		ModerateThreshold:       3,
	}
}

// DefaultScoring returns the canonical route weights.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		DistanceWeight:      0.3,
		TrafficWeight:       0.2,
		FacilityWeight:      0.2,
		AccessibilityWeight: 0.3,
		TopN:                3,
		ConeHalfAngle:       45,
	}
}

// DefaultDedupe returns the canonical duplicate window and similarity cutoff.
func DefaultDedupe() DedupeConfig {
	return DedupeConfig{
		Window:              72 * time.Hour,
		SimilarityThreshold: 0.85,
	}
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	callTimeout, err := parsePositiveDuration("CALL_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parsePositiveDuration("HAZARD_POLL_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	if pollInterval < time.Minute {
		return nil, errors.New("HAZARD_POLL_INTERVAL must be at least 1m")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RateLimitRPS:    parseIntOrDefault("RATE_LIMIT_RPS", 5),

		CallTimeout:        callTimeout,
		RoutingConcurrency: parseIntOrDefault("ROUTING_CONCURRENCY", 4),
		SearchRadiusMeters: parseFloatOrDefault("SEARCH_RADIUS_METERS", 80000),

		OpenWeatherURL:    sharedcfg.EnvOrDefault("OPENWEATHER_URL", "https://api.openweathermap.org/data/2.5/weather"),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		OverpassURL:       sharedcfg.EnvOrDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OSRMURL:           sharedcfg.EnvOrDefault("OSRM_URL", "https://router.project-osrm.org/route/v1/driving"),
		NWSURL:            sharedcfg.EnvOrDefault("NWS_URL", "https://api.weather.gov/alerts/active"),
		NWSUserAgent:      sharedcfg.EnvOrDefault("NWS_USER_AGENT", "wildfire-evac-planner (ops@example.com)"),
		ArcGISURL:         sharedcfg.EnvOrDefault("ARCGIS_URL", defaultArcGISURL),

		IngestEnabled:      sharedcfg.EnvOrDefault("INGEST_ENABLED", "true") == "true",
		HazardPollInterval: pollInterval,
		WorkerCount:        parseIntOrDefault("WORKER_COUNT", 2),
		WorkerBufferSize:   parseIntOrDefault("WORKER_BUFFER_SIZE", 50),
		DBPath:             sharedcfg.EnvOrDefault("DB_PATH", "./data/hazards.db"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseIntOrDefault("MAPBOX_CACHE_SIZE", 1000),

		KafkaEnabled:   sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaPlanTopic: sharedcfg.EnvOrDefault("KAFKA_PLAN_TOPIC", "evacuation-plans"),
		KafkaRiskTopic: sharedcfg.EnvOrDefault("KAFKA_RISK_TOPIC", "risk-assessments"),

		Risk:    loadRisk(),
		Scoring: loadScoring(),
		Dedupe:  DefaultDedupe(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid LOG_LEVEL: %s", c.LogLevel)
	}
	if c.RoutingConcurrency < 1 {
		return errors.New("ROUTING_CONCURRENCY must be >= 1")
	}
	if c.SearchRadiusMeters <= 0 {
		return errors.New("SEARCH_RADIUS_METERS must be > 0")
	}
	if c.RateLimitRPS < 1 {
		return errors.New("RATE_LIMIT_RPS must be >= 1")
	}
	if c.WorkerCount < 1 || c.WorkerBufferSize < 1 {
		return errors.New("WORKER_COUNT and WORKER_BUFFER_SIZE must be >= 1")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	return c.Scoring.Validate()
}

// Validate rejects negative weights, which would break score monotonicity,
// and thresholds that are not strictly ascending.
func (r RiskConfig) Validate() error {
	for name, w := range map[string]int{
		"RISK_WEIGHT_FIRE_RISK":          r.FireRiskWeight,
		"RISK_WEIGHT_HIGH_WINDS":         r.HighWindsWeight,
		"RISK_WEIGHT_LOW_HUMIDITY":       r.LowHumidityWeight,
		"RISK_WEIGHT_EXTREME_HEAT":       r.ExtremeHeatWeight,
		"RISK_WEIGHT_EVACUATION_ORDERED": r.EvacuationOrderedWeight,
		"RISK_URBAN_ADJUSTMENT":          r.UrbanAdjustment,
	} {
		if w < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	if !(r.ModerateThreshold < r.HighThreshold && r.HighThreshold < r.ExtremeThreshold) {
		return errors.New("RISK_THRESHOLD_* must be strictly ascending: moderate < high < extreme")
	}
	return nil
}

// Validate requires non-negative weights summing to 1.
func (s ScoringConfig) Validate() error {
	ws := []float64{s.DistanceWeight, s.TrafficWeight, s.FacilityWeight, s.AccessibilityWeight}
	sum := 0.0
	for _, w := range ws {
		if w < 0 {
			return errors.New("SCORE_WEIGHT_* must be >= 0")
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("SCORE_WEIGHT_* must sum to 1.0, got %.4f", sum)
	}
	if s.TopN < 1 {
		return errors.New("TOP_N must be >= 1")
	}
	if s.ConeHalfAngle < 0 || s.ConeHalfAngle > 180 {
		return errors.New("CONE_HALF_ANGLE must be within [0,180]")
	}
	return nil
}

func loadRisk() RiskConfig {
	d := DefaultRisk()
	return RiskConfig{
		FireRiskWeight:          parseIntOrDefault("RISK_WEIGHT_FIRE_RISK", d.FireRiskWeight),
		HighWindsWeight:         parseIntOrDefault("RISK_WEIGHT_HIGH_WINDS", d.HighWindsWeight),
		LowHumidityWeight:       parseIntOrDefault("RISK_WEIGHT_LOW_HUMIDITY", d.LowHumidityWeight),
		ExtremeHeatWeight:       parseIntOrDefault("RISK_WEIGHT_EXTREME_HEAT", d.ExtremeHeatWeight),
		EvacuationOrderedWeight: parseIntOrDefault("RISK_WEIGHT_EVACUATION_ORDERED", d.EvacuationOrderedWeight),
		UrbanAdjustment:         parseIntOrDefault("RISK_URBAN_ADJUSTMENT", d.UrbanAdjustment),
		ExtremeThreshold:        parseIntOrDefault("RISK_THRESHOLD_EXTREME", d.ExtremeThreshold),
		HighThreshold:           parseIntOrDefault("RISK_THRESHOLD_HIGH", d.HighThreshold),
		ModerateThreshold:       parseIntOrDefault("RISK_THRESHOLD_MODERATE", d.ModerateThreshold),
	}
}

func loadScoring() ScoringConfig {
	d := DefaultScoring()
	return ScoringConfig{
		DistanceWeight:      parseFloatOrDefault("SCORE_WEIGHT_DISTANCE", d.DistanceWeight),
		TrafficWeight:       parseFloatOrDefault("SCORE_WEIGHT_TRAFFIC", d.TrafficWeight),
		FacilityWeight:      parseFloatOrDefault("SCORE_WEIGHT_FACILITY", d.FacilityWeight),
		AccessibilityWeight: parseFloatOrDefault("SCORE_WEIGHT_ACCESSIBILITY", d.AccessibilityWeight),
		TopN:                parseIntOrDefault("TOP_N", d.TopN),
		ConeHalfAngle:       parseFloatOrDefault("CONE_HALF_ANGLE", d.ConeHalfAngle),
	}
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntOrDefault(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

func parseFloatOrDefault(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return def
}
