package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ramsey-B/advwell/pkg/metrics"
	"github.com/Ramsey-B/advwell/pkg/tracing"
)

const EventCaseSynced = "case.synced"

// Config holds Kafka configuration
type Config struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes case lifecycle events
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a synchronous producer for cfg.Topic
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		// dev brokers may not have the topic yet
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// CaseSyncedEvent is emitted after a case's movements were reconciled
type CaseSyncedEvent struct {
	Type            string     `json:"type"`
	CompanyID       string     `json:"company_id"`
	CaseID          string     `json:"case_id"`
	ProcessNumber   string     `json:"process_number"`
	Tribunal        string     `json:"tribunal"`
	Trigger         string     `json:"trigger"`
	MovementCount   int        `json:"movement_count"`
	UltimoAndamento *string    `json:"ultimo_andamento,omitempty"`
	Changed         bool       `json:"changed"`
	SyncedAt        time.Time  `json:"synced_at"`
	LatestMovement  *time.Time `json:"latest_movement_at,omitempty"`

	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// PublishCaseSynced writes evt keyed by case so one case's events stay ordered
func (p *Producer) PublishCaseSynced(ctx context.Context, evt *CaseSyncedEvent) error {
	ctx, span := tracing.StartSpan(ctx, "Kafka.PublishCaseSynced")
	defer span.End()

	if evt == nil {
		return fmt.Errorf("case synced event is nil")
	}
	evt.Type = EventCaseSynced
	if evt.SyncedAt.IsZero() {
		evt.SyncedAt = time.Now().UTC()
	}

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("company_id", evt.CompanyID),
		attribute.String("case_id", evt.CaseID),
	)

	evt.TraceID = tracing.GetTraceID(ctx)
	evt.SpanID = tracing.GetSpanID(ctx)

	data, err := json.Marshal(evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal message")
		return fmt.Errorf("failed to marshal case synced event: %w", err)
	}

	headers := []kafka.Header{
		{Key: "company_id", Value: []byte(evt.CompanyID)},
		{Key: "case_id", Value: []byte(evt.CaseID)},
		{Key: "type", Value: []byte(evt.Type)},
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}
	if tracestate := tracing.GetTraceState(ctx); tracestate != "" {
		headers = append(headers, kafka.Header{Key: "tracestate", Value: []byte(tracestate)})
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(evt.CaseID),
		Value:   data,
		Headers: headers,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish message")
		metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "error").Inc()
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish to Kafka topic %s", p.topic)
		return err
	}

	metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "success").Inc()
	span.SetStatus(codes.Ok, "message published")
	p.logger.WithContext(ctx).Debugf("Published %s for case %s", evt.Type, evt.CaseID)

	return nil
}
