package models

import (
	"context"
)

func (s *GormStore) ListOutboxEvents(ctx context.Context, filter OutboxFilter) ([]*OutboxEvent, error) {
	q := s.db.WithContext(ctx).Model(&OutboxEvent{})
	if filter.Status != "" {
		q = q.Where("publish_status = ?", filter.Status)
	}
	if filter.ReferenceId != "" {
		q = q.Where("reference_id = ?", filter.ReferenceId)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var results []*OutboxEvent
	if err := q.Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
