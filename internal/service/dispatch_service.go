package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/workflow"
	"github.com/edulink/admin-api/pkg/jobs"
	"github.com/edulink/admin-api/pkg/mailer"
)

type dispatchCache interface {
	MarkDispatched(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type revenueLedger interface {
	Insert(ctx context.Context, entry *models.RevenueEntry) (bool, error)
}

type recipientReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Calendar provisions a meeting slot and returns the link. A manually
// entered link in the approval payload short-circuits provisioning.
type Calendar interface {
	Schedule(ctx context.Context, entityID string, effect workflow.Effect) (string, error)
}

// ManualCalendar is the default Calendar: it trusts the link the operator
// typed into the approval form and only logs the entry.
type ManualCalendar struct {
	logger *zap.Logger
}

// NewManualCalendar constructs the logging calendar.
func NewManualCalendar(logger *zap.Logger) *ManualCalendar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManualCalendar{logger: logger}
}

// Schedule records the entry and echoes back the supplied link.
func (c *ManualCalendar) Schedule(_ context.Context, entityID string, effect workflow.Effect) (string, error) {
	c.logger.Info("calendar entry recorded",
		zap.String("entity_id", entityID),
		zap.String("date", effect.Date),
		zap.String("time_slot", effect.TimeSlot),
		zap.Int("duration_minutes", effect.DurationMinutes),
		zap.String("meeting_link", effect.MeetingLink))
	return effect.MeetingLink, nil
}

type effectJob struct {
	Key        string
	Snapshot   workflow.Snapshot
	Effect     workflow.Effect
	GuestName  string
	GuestEmail string
}

// EffectDispatcher executes the side effects a persisted transition declared.
// Dispatch is at-most-once per transition: the Redis claim on the
// entityID:targetStatus key filters replays before anything is enqueued, and
// the revenue ledger's unique transition key backstops accruals.
type EffectDispatcher struct {
	cache    dispatchCache
	revenue  revenueLedger
	users    recipientReader
	mail     mailer.Mailer
	calendar Calendar
	metrics  *MetricsService
	logger   *zap.Logger
	queue    *jobs.Queue
	dedupTTL time.Duration
}

// DispatcherConfig tunes the dispatch worker pool.
type DispatcherConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	DedupTTL   time.Duration
}

// NewEffectDispatcher constructs the dispatcher and its worker queue. Call
// Start before dispatching and Stop on shutdown.
func NewEffectDispatcher(cache dispatchCache, revenue revenueLedger, users recipientReader, mail mailer.Mailer, calendar Calendar, metrics *MetricsService, logger *zap.Logger, cfg DispatcherConfig) *EffectDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calendar == nil {
		calendar = NewManualCalendar(logger)
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	d := &EffectDispatcher{
		cache:    cache,
		revenue:  revenue,
		users:    users,
		mail:     mail,
		calendar: calendar,
		metrics:  metrics,
		logger:   logger,
		dedupTTL: cfg.DedupTTL,
	}
	d.queue = jobs.NewQueue("effects", d.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return d
}

// Start launches the dispatch workers.
func (d *EffectDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *EffectDispatcher) Stop() {
	d.queue.Stop()
}

// Dispatch claims the transition's idempotency slot and enqueues its effects.
// key is entityID:targetStatus, matching the revenue ledger's transition key.
// Losing the claim is not an error; it means another session (or a retried
// request) already dispatched this transition.
func (d *EffectDispatcher) Dispatch(ctx context.Context, key string, snap workflow.Snapshot, effects []workflow.Effect, guestName, guestEmail string) error {
	if len(effects) == 0 {
		return nil
	}
	claimed, err := d.cache.MarkDispatched(ctx, key, d.dedupTTL)
	if err != nil {
		return fmt.Errorf("claim dispatch slot %s: %w", key, err)
	}
	if !claimed {
		d.logger.Info("effects already dispatched", zap.String("key", key))
		return nil
	}
	for _, effect := range effects {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: string(effect.Type),
			Payload: effectJob{
				Key:        key,
				Snapshot:   snap,
				Effect:     effect,
				GuestName:  guestName,
				GuestEmail: guestEmail,
			},
		}
		if err := d.queue.Enqueue(job); err != nil {
			return fmt.Errorf("enqueue effect %s: %w", effect.Type, err)
		}
	}
	return nil
}

func (d *EffectDispatcher) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(effectJob)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	effect := payload.Effect

	var err error
	switch effect.Type {
	case workflow.EffectSendCredentialsEmail:
		err = d.sendCredentials(ctx, payload)
	case workflow.EffectSendDecisionNotification:
		err = d.sendDecision(ctx, payload)
	case workflow.EffectScheduleCalendarEntry:
		_, err = d.calendar.Schedule(ctx, payload.Snapshot.ID, effect)
	case workflow.EffectAccrueRevenue:
		err = d.accrueRevenue(ctx, payload)
	default:
		d.logger.Warn("unknown effect type", zap.String("type", string(effect.Type)))
		return nil
	}

	if err != nil {
		d.metrics.ObserveEffect(effect.Type, "error")
		return err
	}
	d.metrics.ObserveEffect(effect.Type, "ok")
	return nil
}

func (d *EffectDispatcher) resolveRecipient(ctx context.Context, payload effectJob) (name, email string, err error) {
	if payload.GuestEmail != "" {
		return payload.GuestName, payload.GuestEmail, nil
	}
	user, err := d.users.FindByID(ctx, payload.Effect.UserID)
	if err != nil {
		return "", "", fmt.Errorf("resolve recipient %s: %w", payload.Effect.UserID, err)
	}
	return user.FullName, user.Email, nil
}

func (d *EffectDispatcher) sendCredentials(ctx context.Context, payload effectJob) error {
	name, email, err := d.resolveRecipient(ctx, payload)
	if err != nil {
		return err
	}
	return d.mail.Send(mailer.Message{
		ToName:   name,
		ToEmail:  email,
		Subject:  "Your course access is ready",
		TextBody: "Your enrollment was approved. Sign in with your registered email to access the course materials.",
	})
}

func (d *EffectDispatcher) sendDecision(ctx context.Context, payload effectJob) error {
	name, email, err := d.resolveRecipient(ctx, payload)
	if err != nil {
		return err
	}
	effect := payload.Effect
	subject := fmt.Sprintf("Your request was %s", effect.Decision)
	body := fmt.Sprintf("Your request is now %s.", effect.Decision)
	if effect.Reason != "" {
		body += fmt.Sprintf(" Reason: %s", effect.Reason)
	}
	return d.mail.Send(mailer.Message{
		ToName:   name,
		ToEmail:  email,
		Subject:  subject,
		TextBody: body,
	})
}

func (d *EffectDispatcher) accrueRevenue(ctx context.Context, payload effectJob) error {
	entry := &models.RevenueEntry{
		EntityKind:    payload.Snapshot.Kind,
		EntityID:      payload.Snapshot.ID,
		TransitionKey: payload.Key,
		AmountCents:   payload.Effect.AmountCents,
	}
	written, err := d.revenue.Insert(ctx, entry)
	if err != nil {
		return err
	}
	if !written {
		d.logger.Info("revenue entry already booked", zap.String("transition_key", payload.Key))
	}
	return nil
}
