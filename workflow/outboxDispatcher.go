package workflow

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/sirupsen/logrus"
)

type OutboxDispatcher struct {
	Repo         models.OutboxRepository
	Publisher    Publisher
	Logger       *logrus.Logger
	DispatcherID string

	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	now func() time.Time
}

func NewOutboxDispatcher(repo models.OutboxRepository, publisher Publisher, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		Repo:           repo,
		Publisher:      publisher,
		Logger:         logger,
		DispatcherID:   uuid.NewString(),
		BatchSize:      50,
		PollInterval:   500 * time.Millisecond,
		LockTimeout:    30 * time.Second,
		MaxAttempts:    20,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     10 * time.Minute,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithRetrySettings overrides the retry limits with values read from env.
func (d *OutboxDispatcher) WithRetrySettings(s config.OutboxRetrySettings) *OutboxDispatcher {
	if s.MaxAttempts > 0 {
		d.MaxAttempts = s.MaxAttempts
	}
	if s.BaseBackoff > 0 {
		d.InitialBackoff = s.BaseBackoff
	}
	if s.MaxBackoff > 0 {
		d.MaxBackoff = s.MaxBackoff
	}
	return d
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

// DispatchOnce claims one batch and publishes it. It returns the number of
// events marked SENT.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) int {
	if d.Repo == nil || d.Publisher == nil {
		return 0
	}
	now := d.now()
	claimed, err := d.Repo.ClaimOutboxEvents(ctx, models.OutboxClaim{
		WorkerId:    d.DispatcherID,
		Limit:       d.BatchSize,
		Now:         now,
		StaleBefore: now.Add(-d.LockTimeout),
		MaxAttempts: d.MaxAttempts,
	})
	if err != nil {
		config.LogError(d.Logger, "workflow", "OutboxDispatcher", "ClaimOutboxEvents", d.DispatcherID, err)
		return 0
	}

	sent := 0
	for _, rec := range claimed {
		// Rows moved to DEAD in the claim are not published.
		if rec.PublishStatus == models.OutboxPublishStatusDead {
			continue
		}
		messageId, pubErr := d.Publisher.Publish(ctx, rec)
		if pubErr != nil {
			d.markPublishFailed(ctx, rec, pubErr)
			continue
		}
		if err := d.Repo.MarkOutboxSent(ctx, rec.ID, messageId, now); err != nil {
			config.LogError(d.Logger, "workflow", "OutboxDispatcher", "MarkOutboxSent", rec.ID, err)
			continue
		}
		sent++
	}
	return sent
}

// publishBackoff is base * 2^(attempt-1), capped at ceiling.
func publishBackoff(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt <= 1 {
		return base
	}
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if delay > float64(ceiling) {
		return ceiling
	}
	return time.Duration(delay)
}

func (d *OutboxDispatcher) markPublishFailed(ctx context.Context, rec *models.OutboxEvent, err error) {
	msg := err.Error()
	attempt := rec.PublishAttempts

	// Terminal after MaxAttempts (DLQ equivalent).
	if d.MaxAttempts > 0 && attempt >= d.MaxAttempts {
		if markErr := d.Repo.MarkOutboxFailed(ctx, rec.ID, msg, nil, true); markErr != nil {
			config.LogError(d.Logger, "workflow", "OutboxDispatcher", "MarkOutboxFailed", rec.ID, markErr)
		}
		if d.Logger != nil {
			d.Logger.WithFields(logrus.Fields{
				"field":        "OutboxDispatcher",
				"event_type":   rec.EventType,
				"reference_id": rec.ReferenceId,
				"record_id":    rec.ID,
				"attempt":      attempt,
			}).Error("outbox publish moved to DEAD after max attempts: " + fmt.Sprintf("%v", err))
		}
		return
	}

	next := d.now().Add(publishBackoff(attempt, d.InitialBackoff, d.MaxBackoff))
	if markErr := d.Repo.MarkOutboxFailed(ctx, rec.ID, msg, &next, false); markErr != nil {
		config.LogError(d.Logger, "workflow", "OutboxDispatcher", "MarkOutboxFailed", rec.ID, markErr)
	}
	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{
			"field":           "OutboxDispatcher",
			"event_type":      rec.EventType,
			"reference_id":    rec.ReferenceId,
			"record_id":       rec.ID,
			"attempt":         attempt,
			"next_attempt_at": next.Format(time.RFC3339Nano),
		}).Error("outbox publish failed: " + fmt.Sprintf("%v", err))
	}
}
