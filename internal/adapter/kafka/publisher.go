package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/wildfire-evac-planner/internal/config"
	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces finished plans and risk assessments to their Kafka topics.
// It implements domain.PlanPublisher and domain.RiskPublisher.
type Publisher struct {
	writer    messageWriter
	planTopic string
	riskTopic string
	logger    *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured plan and risk topics.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	// Topic is set per message so one writer serves both topics.
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg.KafkaPlanTopic, cfg.KafkaRiskTopic, logger)
}

func newPublisher(w messageWriter, planTopic, riskTopic string, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, planTopic: planTopic, riskTopic: riskTopic, logger: logger}
}

// PublishPlan writes a terminal plan keyed by session so a session's plans
// land on one partition in order.
func (p *Publisher) PublishPlan(ctx context.Context, plan domain.Plan) error {
	msg, err := serializePlan(plan)
	if err != nil {
		return err
	}
	msg.Topic = p.planTopic
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish plan %s: %w", plan.ID, err)
	}
	p.logger.Debug("plan published", "plan_id", plan.ID, "state", plan.State)
	return nil
}

// PublishRisk writes a risk assessment keyed by its rounded location.
func (p *Publisher) PublishRisk(ctx context.Context, at domain.Coordinate, risk domain.RiskAssessment) error {
	msg, err := serializeRisk(at, risk)
	if err != nil {
		return err
	}
	msg.Topic = p.riskTopic
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish risk: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializePlan marshals a Plan into a Kafka message.
func serializePlan(plan domain.Plan) (kafkago.Message, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize plan: %w", err)
	}
	key := plan.SessionID
	if key == "" {
		key = plan.ID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "plan_state", Value: []byte(plan.State)},
			{Key: "created_at", Value: []byte(plan.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}

type riskMessage struct {
	Location domain.Coordinate     `json:"location"`
	Risk     domain.RiskAssessment `json:"risk"`
}

// serializeRisk marshals a location's RiskAssessment into a Kafka message.
func serializeRisk(at domain.Coordinate, risk domain.RiskAssessment) (kafkago.Message, error) {
	data, err := json.Marshal(riskMessage{Location: at, Risk: risk})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk: %w", err)
	}
	return kafkago.Message{
		Key:   fmt.Appendf(nil, "%.3f,%.3f", at.Lat, at.Lon),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(risk.Level.String())},
			{Key: "assessed_at", Value: []byte(risk.AssessedAt.Format(time.RFC3339))},
		},
	}, nil
}
