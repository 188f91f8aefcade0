package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReplayOutboxEvent moves a FAILED or DEAD row back to PENDING with a fresh
// attempt budget so the dispatcher picks it up on its next poll.
func (s *GormStore) ReplayOutboxEvent(ctx context.Context, id int, at time.Time) (*OutboxEvent, error) {
	var rec OutboxEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&rec).Error; err != nil {
			return translateError(err, "outbox event", id)
		}
		if !rec.IsReplayable() {
			return utils.NewConflictError("outbox event %d is %s and cannot be replayed", id, rec.PublishStatus)
		}
		rec.PublishStatus = OutboxPublishStatusPending
		rec.PublishAttempts = 0
		rec.NextAttemptAt = &at
		rec.LockedAt = nil
		rec.LockedBy = nil
		rec.LastPublishError = nil
		return tx.Model(&OutboxEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusPending,
			"publish_attempts":   0,
			"next_attempt_at":    &at,
			"locked_at":          nil,
			"locked_by":          nil,
			"last_publish_error": nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
