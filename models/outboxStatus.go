package models

import "time"

type OutboxFilter struct {
	Status      string
	ReferenceId string
	Limit       int
}

// OutboxStatus is an operator-facing view of one outbox row.
type OutboxStatus struct {
	RecordId         int             `json:"record_id"`
	EventType        OutboxEventType `json:"event_type"`
	ReferenceId      string          `json:"reference_id"`
	PublishStatus    string          `json:"publish_status"`
	PublishAttempts  int             `json:"publish_attempts"`
	NextAttemptAt    *time.Time      `json:"next_attempt_at"`
	LastPublishError *string         `json:"last_publish_error"`
	MessageId        *string         `json:"message_id"`
	CorrelationId    string          `json:"correlation_id"`
	CreatedAt        time.Time       `json:"created_at"`
	PublishedAt      *time.Time      `json:"published_at"`
}

func NewOutboxStatus(rec *OutboxEvent) *OutboxStatus {
	return &OutboxStatus{
		RecordId:         rec.ID,
		EventType:        rec.EventType,
		ReferenceId:      rec.ReferenceId,
		PublishStatus:    rec.PublishStatus,
		PublishAttempts:  rec.PublishAttempts,
		NextAttemptAt:    rec.NextAttemptAt,
		LastPublishError: rec.LastPublishError,
		MessageId:        rec.MessageId,
		CorrelationId:    rec.CorrelationId,
		CreatedAt:        rec.CreatedAt,
		PublishedAt:      rec.PublishedAt,
	}
}

// IsReplayable reports whether an operator may push the row back to PENDING.
// SENT rows are final and in-flight rows belong to a dispatcher.
func (e *OutboxEvent) IsReplayable() bool {
	return e.PublishStatus == OutboxPublishStatusFailed || e.PublishStatus == OutboxPublishStatusDead
}
