//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/wildfire-evac-planner/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-evac-planner/internal/config"
	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/geo"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
	"github.com/couchcryptid/wildfire-evac-planner/internal/planner"
	"github.com/couchcryptid/wildfire-evac-planner/internal/route"
	"github.com/couchcryptid/wildfire-evac-planner/internal/safety"
)

const (
	testPlanTopic = "test-plans"
	testRiskTopic = "test-risk"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("evac-planner-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func newConsumer(t *testing.T, broker, topic string) *kafkago.Reader {
	t.Helper()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-%s-%d", topic, time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func readMessage(ctx context.Context, t *testing.T, r *kafkago.Reader) (kafkago.Message, map[string]string) {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := r.ReadMessage(readCtx)
	require.NoError(t, err)
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return msg, headers
}

type staticWind struct{ wind domain.Wind }

func (s staticWind) Wind(context.Context, domain.Coordinate) (domain.Wind, error) { return s.wind, nil }

type staticFacilities struct{ dests []domain.Destination }

func (s staticFacilities) FindCandidates(context.Context, domain.Coordinate, float64, []domain.DestinationType) ([]domain.Destination, error) {
	return s.dests, nil
}

type straightLineRouter struct{}

func (straightLineRouter) Route(_ context.Context, origin domain.Coordinate, dest domain.Destination) (domain.Route, error) {
	d := geo.DistanceKm(origin, dest.Location) * 1000
	return domain.Route{
		Geometry:        []domain.Coordinate{origin, dest.Location},
		DistanceMeters:  d,
		DurationSeconds: d / 20,
		Destination:     dest,
	}, nil
}

// TestPublisherRoundTrip verifies plans and risk assessments land on their
// topics with the expected keys and headers.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testPlanTopic)
	createTopic(t, broker, testRiskTopic)

	pub := kafka.NewPublisher(&config.Config{
		KafkaBrokers:   []string{broker},
		KafkaPlanTopic: testPlanTopic,
		KafkaRiskTopic: testRiskTopic,
	}, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	at := domain.Coordinate{Lat: 40.015, Lon: -105.27}
	risk := domain.RiskAssessment{
		Level:      domain.RiskExtreme,
		Score:      7,
		Tags:       domain.NewTagSet(domain.TagEvacuationOrdered),
		Overridden: true,
		AssessedAt: time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishRisk(ctx, at, risk))

	msg, headers := readMessage(ctx, t, newConsumer(t, broker, testRiskTopic))
	assert.Equal(t, "40.015,-105.270", string(msg.Key))
	assert.Equal(t, "EXTREME", headers["risk_level"])
	assert.Equal(t, "2024-07-01T18:00:00Z", headers["assessed_at"])

	var body struct {
		Location domain.Coordinate `json:"location"`
		Risk     struct {
			Level      string   `json:"level"`
			Tags       []string `json:"tags"`
			Overridden bool     `json:"overridden"`
		} `json:"risk"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, at, body.Location)
	assert.Equal(t, "EXTREME", body.Risk.Level)
	assert.Equal(t, []string{"EvacuationOrdered"}, body.Risk.Tags)
	assert.True(t, body.Risk.Overridden)
}

// TestPlannerPublishesPlan runs a planner behind a Coordinator wired to the
// Kafka publisher and reads the finished plan back from the plan topic.
func TestPlannerPublishesPlan(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testPlanTopic)

	pub := kafka.NewPublisher(&config.Config{
		KafkaBrokers:   []string{broker},
		KafkaPlanTopic: testPlanTopic,
		KafkaRiskTopic: testRiskTopic,
	}, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	hazard := domain.Coordinate{Lat: 40, Lon: -105}
	upwind := domain.Destination{
		Type:     domain.DestinationShelter,
		Name:     "Upwind Shelter",
		Location: geo.Offset(hazard, 270, 12),
	}
	downwind := domain.Destination{
		Type:     domain.DestinationShelter,
		Name:     "Downwind Shelter",
		Location: geo.Offset(hazard, 90, 12),
	}

	cfg := config.DefaultScoring()
	p := planner.New(planner.Collaborators{
		Wind:       staticWind{wind: domain.Wind{SpeedKmh: 30, DirectionDegrees: 90, DirectionKnown: true}},
		Facilities: staticFacilities{dests: []domain.Destination{upwind, downwind}},
		Router:     straightLineRouter{},
	},
		safety.NewFilter(cfg.ConeHalfAngle, discardLogger()),
		route.NewScorer(cfg),
		planner.Options{CallTimeout: 5 * time.Second, RoutingConcurrency: 2, SearchRadiusMeters: 50_000},
		discardLogger(),
		observability.NewMetricsForTesting(),
	)

	c := planner.NewCoordinator(p, discardLogger(), observability.NewMetricsForTesting()).WithPublisher(pub)

	plan, err := c.Plan(ctx, planner.Request{SessionID: "integration-session", Hazard: hazard})
	require.NoError(t, err)
	require.Equal(t, domain.StateDone, plan.State)

	msg, headers := readMessage(ctx, t, newConsumer(t, broker, testPlanTopic))
	assert.Equal(t, "integration-session", string(msg.Key))
	assert.Equal(t, "done", headers["plan_state"])

	var got domain.Plan
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, plan.ID, got.ID)
	assert.Equal(t, plan.Sequence, got.Sequence)
	assert.NotZero(t, got.Sequence)
	require.Len(t, got.Routes, 1)
	assert.Equal(t, "Upwind Shelter", got.Routes[0].Destination.Name)
}
