package models

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *GormStore) ClaimOutboxEvents(ctx context.Context, claim OutboxClaim) ([]*OutboxEvent, error) {
	var claimed []*OutboxEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Eligible:
		// - PENDING / FAILED and ready to retry
		// - PROCESSING but lock is stale (dispatcher crashed mid-batch), reclaim after the lock timeout
		q := tx.
			Where(`
				(
					publish_status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
				)
				OR
				(
					publish_status = ? AND locked_at IS NOT NULL AND locked_at <= ?
				)
			`, []string{OutboxPublishStatusPending, OutboxPublishStatusFailed}, claim.Now, OutboxPublishStatusProcessing, claim.StaleBefore).
			Order("id ASC").
			Limit(claim.Limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for _, rec := range claimed {
			// Poison messages go terminal (DLQ equivalent).
			if claim.MaxAttempts > 0 && rec.PublishAttempts >= claim.MaxAttempts {
				msg := fmt.Sprintf("max publish attempts exceeded (%d)", claim.MaxAttempts)
				rec.PublishStatus = OutboxPublishStatusDead
				rec.LastPublishError = &msg
				if err := tx.Model(&OutboxEvent{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
					"publish_status":     OutboxPublishStatusDead,
					"last_publish_error": &msg,
					"next_attempt_at":    nil,
					"locked_at":          nil,
					"locked_by":          nil,
				}).Error; err != nil {
					return err
				}
				continue
			}

			now := claim.Now
			workerId := claim.WorkerId
			rec.PublishStatus = OutboxPublishStatusProcessing
			rec.LockedAt = &now
			rec.LockedBy = &workerId
			rec.PublishAttempts++
			rec.LastPublishError = nil
			rec.NextAttemptAt = nil
			if err := tx.Model(&OutboxEvent{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
				"publish_status":     rec.PublishStatus,
				"locked_at":          rec.LockedAt,
				"locked_by":          rec.LockedBy,
				"publish_attempts":   gorm.Expr("publish_attempts + 1"),
				"last_publish_error": nil,
				"next_attempt_at":    nil,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *GormStore) MarkOutboxSent(ctx context.Context, id int, messageId string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"publish_status":  OutboxPublishStatusSent,
			"published_at":    &at,
			"message_id":      &messageId,
			"locked_at":       nil,
			"locked_by":       nil,
			"next_attempt_at": nil,
		}).Error
}

func (s *GormStore) MarkOutboxFailed(ctx context.Context, id int, reason string, nextAttemptAt *time.Time, dead bool) error {
	status := OutboxPublishStatusFailed
	if dead {
		status = OutboxPublishStatusDead
		nextAttemptAt = nil
	}
	return s.db.WithContext(ctx).Model(&OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"publish_status":     status,
			"last_publish_error": &reason,
			"next_attempt_at":    nextAttemptAt,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error
}

func (s *GormStore) GetOutboxEvent(ctx context.Context, id int) (*OutboxEvent, error) {
	var rec OutboxEvent
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, translateError(err, "outbox event", id)
	}
	return &rec, nil
}
