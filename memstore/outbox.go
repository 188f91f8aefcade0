package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
)

func (s *Store) ClaimOutboxEvents(ctx context.Context, claim models.OutboxClaim) ([]*models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []*models.OutboxEvent
	for _, rec := range s.outbox {
		if claim.Limit > 0 && len(claimed) == claim.Limit {
			break
		}
		if !rec.IsDue(claim.Now, claim.StaleBefore) {
			continue
		}
		if claim.MaxAttempts > 0 && rec.PublishAttempts >= claim.MaxAttempts {
			msg := fmt.Sprintf("max publish attempts exceeded (%d)", claim.MaxAttempts)
			rec.PublishStatus = models.OutboxPublishStatusDead
			rec.LastPublishError = &msg
			rec.NextAttemptAt = nil
			rec.LockedAt = nil
			rec.LockedBy = nil
			rec.UpdatedAt = claim.Now
			claimed = append(claimed, cloneOutbox(rec))
			continue
		}
		now := claim.Now
		workerId := claim.WorkerId
		rec.PublishStatus = models.OutboxPublishStatusProcessing
		rec.LockedAt = &now
		rec.LockedBy = &workerId
		rec.PublishAttempts++
		rec.LastPublishError = nil
		rec.NextAttemptAt = nil
		rec.UpdatedAt = now
		claimed = append(claimed, cloneOutbox(rec))
	}
	return claimed, nil
}

func (s *Store) findOutbox(id int) (*models.OutboxEvent, error) {
	for _, rec := range s.outbox {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, utils.NewNotFoundError("outbox event", id)
}

func (s *Store) MarkOutboxSent(ctx context.Context, id int, messageId string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.findOutbox(id)
	if err != nil {
		return err
	}
	rec.PublishStatus = models.OutboxPublishStatusSent
	rec.PublishedAt = &at
	rec.MessageId = &messageId
	rec.LockedAt = nil
	rec.LockedBy = nil
	rec.NextAttemptAt = nil
	rec.UpdatedAt = at
	return nil
}

func (s *Store) MarkOutboxFailed(ctx context.Context, id int, reason string, nextAttemptAt *time.Time, dead bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.findOutbox(id)
	if err != nil {
		return err
	}
	rec.PublishStatus = models.OutboxPublishStatusFailed
	if dead {
		rec.PublishStatus = models.OutboxPublishStatusDead
		nextAttemptAt = nil
	}
	rec.LastPublishError = &reason
	rec.NextAttemptAt = nextAttemptAt
	rec.LockedAt = nil
	rec.LockedBy = nil
	rec.UpdatedAt = s.now()
	return nil
}

func (s *Store) GetOutboxEvent(ctx context.Context, id int) (*models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.findOutbox(id)
	if err != nil {
		return nil, err
	}
	return cloneOutbox(rec), nil
}

// OutboxEvents returns every outbox row in id order.
func (s *Store) OutboxEvents() []*models.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]*models.OutboxEvent, 0, len(s.outbox))
	for _, rec := range s.outbox {
		results = append(results, cloneOutbox(rec))
	}
	return results
}

func (s *Store) ListOutboxEvents(ctx context.Context, filter models.OutboxFilter) ([]*models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []*models.OutboxEvent
	for i := len(s.outbox) - 1; i >= 0; i-- {
		rec := s.outbox[i]
		if filter.Status != "" && rec.PublishStatus != filter.Status {
			continue
		}
		if filter.ReferenceId != "" && rec.ReferenceId != filter.ReferenceId {
			continue
		}
		results = append(results, cloneOutbox(rec))
		if filter.Limit > 0 && len(results) == filter.Limit {
			break
		}
	}
	return results, nil
}

func (s *Store) ReplayOutboxEvent(ctx context.Context, id int, at time.Time) (*models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.findOutbox(id)
	if err != nil {
		return nil, err
	}
	if !rec.IsReplayable() {
		return nil, utils.NewConflictError("outbox event %d is %s and cannot be replayed", id, rec.PublishStatus)
	}
	rec.PublishStatus = models.OutboxPublishStatusPending
	rec.PublishAttempts = 0
	rec.NextAttemptAt = &at
	rec.LockedAt = nil
	rec.LockedBy = nil
	rec.LastPublishError = nil
	rec.UpdatedAt = at
	return cloneOutbox(rec), nil
}
