package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/sirupsen/logrus"
)

// Publisher delivers one outbox event and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, event *models.OutboxEvent) (string, error)
}

func ledgerEventMessage(event *models.OutboxEvent) config.LedgerEventMessage {
	return config.LedgerEventMessage{
		EventId:       event.ID,
		EventType:     string(event.EventType),
		ReferenceId:   event.ReferenceId,
		OccurredAt:    event.CreatedAt,
		CorrelationId: event.CorrelationId,
		Payload:       []byte(event.Payload),
	}
}

// PubSubPublisher publishes to the topic named by PUBSUB_TOPIC.
type PubSubPublisher struct{}

func (PubSubPublisher) Publish(ctx context.Context, event *models.OutboxEvent) (string, error) {
	return config.PublishLedgerEventWithResult(ctx, ledgerEventMessage(event))
}

// LogPublisher writes events to the logger. Used when no topic is configured.
type LogPublisher struct {
	Logger *logrus.Logger
}

func (p LogPublisher) Publish(ctx context.Context, event *models.OutboxEvent) (string, error) {
	if p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"field":          "OutboxDispatcher",
			"event_id":       event.ID,
			"event_type":     event.EventType,
			"reference_id":   event.ReferenceId,
			"correlation_id": event.CorrelationId,
		}).Info("ledger event")
	}
	return fmt.Sprintf("log-%d", event.ID), nil
}

func NewPublisherFromConfig(logger *logrus.Logger) Publisher {
	if config.PubSubPublishingEnabled() {
		return PubSubPublisher{}
	}
	return LogPublisher{Logger: logger}
}
