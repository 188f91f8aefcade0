package models

import (
	"time"
)

// OutboxEvent is written in the same transaction as the ledger operation it
// describes and published after commit by the dispatcher.
type OutboxEvent struct {
	ID               int             `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	EventType        OutboxEventType `gorm:"size:64;not null;index" json:"event_type"`
	ReferenceId      string          `gorm:"size:64;not null;index" json:"reference_id"`
	Payload          string          `gorm:"type:text" json:"payload"`
	PublishStatus    string          `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time      `gorm:"index" json:"published_at"`
	MessageId        *string         `gorm:"size:255" json:"message_id"`
	PublishAttempts  int             `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time      `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time      `gorm:"index" json:"locked_at"`
	LockedBy         *string         `gorm:"size:100" json:"locked_by"`
	LastPublishError *string         `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsDue reports whether the event may be claimed at now. PROCESSING rows are
// reclaimable once their lock is older than staleBefore.
func (e *OutboxEvent) IsDue(now, staleBefore time.Time) bool {
	switch e.PublishStatus {
	case OutboxPublishStatusPending, OutboxPublishStatusFailed:
		return e.NextAttemptAt == nil || !e.NextAttemptAt.After(now)
	case OutboxPublishStatusProcessing:
		return e.LockedAt != nil && !e.LockedAt.After(staleBefore)
	}
	return false
}
