// Package scheduler runs the bot's timed jobs: delivering due reminders and
// pushing the weekly summary.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/logger"
	"github.com/KoPyae2/Life-Desk/internal/metrics"
	"github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/KoPyae2/Life-Desk/internal/scheduler"

	// ReminderSpec checks for due reminders every minute.
	ReminderSpec = "* * * * *"

	// DefaultBatchSize caps how many reminders one tick delivers.
	DefaultBatchSize = 100
)

// ReminderStore is the reminder storage the dispatcher needs.
type ReminderStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
}

// UserLister lists every registered user.
type UserLister interface {
	GetAllUsers(ctx context.Context) ([]models.User, error)
}

// SummaryPusher sends one user their weekly summary.
type SummaryPusher interface {
	PushWeeklySummary(ctx context.Context, userID int64) (bool, error)
}

// Sender delivers reminder messages.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// Options configures a Scheduler.
type Options struct {
	Location *time.Location
	// WeeklySummarySpec is a standard five-field cron spec. Empty disables
	// the weekly push.
	WeeklySummarySpec string
	BatchSize         int
	Now               func() time.Time
}

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron      *cron.Cron
	reminders ReminderStore
	sender    Sender
	users     UserLister
	summaries SummaryPusher
	metrics   metrics.Recorder
	batchSize int
	now       func() time.Time

	tracer     trace.Tracer
	dispatched metric.Int64Counter
	pushed     metric.Int64Counter

	baseCtx context.Context
}

// New builds a Scheduler. users and summaries may be nil when the weekly
// push is disabled.
func New(
	opts Options,
	reminders ReminderStore,
	sender Sender,
	users UserLister,
	summaries SummaryPusher,
	rec metrics.Recorder,
) (*Scheduler, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	cronLog := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		reminders: reminders,
		sender:    sender,
		users:     users,
		summaries: summaries,
		metrics:   rec,
		batchSize: batch,
		now:       func() time.Time { return now().In(loc) },
		tracer:    otel.Tracer(instrumentationName),
		baseCtx:   context.Background(),
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if s.dispatched, err = meter.Int64Counter("lifedesk.reminders.dispatched",
		metric.WithDescription("Reminders handled by the dispatcher, by outcome.")); err != nil {
		return nil, fmt.Errorf("failed to create reminder counter: %w", err)
	}
	if s.pushed, err = meter.Int64Counter("lifedesk.summaries.pushed",
		metric.WithDescription("Weekly summaries pushed to users.")); err != nil {
		return nil, fmt.Errorf("failed to create summary counter: %w", err)
	}

	if _, err := s.cron.AddFunc(ReminderSpec, s.reminderJob); err != nil {
		return nil, fmt.Errorf("failed to schedule reminders: %w", err)
	}

	if opts.WeeklySummarySpec != "" {
		if users == nil || summaries == nil {
			return nil, errors.New("weekly summary needs a user lister and a summary pusher")
		}
		if _, err := s.cron.AddFunc(opts.WeeklySummarySpec, s.summaryJob); err != nil {
			return nil, fmt.Errorf("failed to schedule weekly summary %q: %w", opts.WeeklySummarySpec, err)
		}
	}

	return s, nil
}

// Start runs the jobs in the background until Stop. Jobs inherit ctx's values
// but are not cut short when it is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.baseCtx = context.WithoutCancel(ctx)
	s.cron.Start()
	logger.Log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops scheduling new runs and waits for running jobs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		logger.Log.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop scheduler: %w", ctx.Err())
	}
}

func (s *Scheduler) reminderJob() {
	if _, err := s.DispatchDue(s.baseCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Reminder dispatch failed")
	}
}

func (s *Scheduler) summaryJob() {
	if _, err := s.PushWeeklySummaries(s.baseCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Weekly summary push failed")
	}
}

// DispatchDue sends every reminder that is due and marks it sent. A reminder
// whose message fails stays unsent and is retried on the next tick, unless
// Telegram reports the chat as forbidden, in which case it is marked sent so
// it is not retried forever. It returns how many reminders were delivered.
func (s *Scheduler) DispatchDue(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.dispatch_reminders")
	defer span.End()

	now := s.now()
	due, err := s.reminders.ListDue(ctx, now, s.batchSize)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to list due reminders: %w", err)
	}
	span.SetAttributes(attribute.Int("reminders.due", len(due)))

	sent := 0
	for _, rem := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if s.deliver(ctx, rem, now) {
			sent++
		}
	}

	if len(due) > 0 {
		logger.Log.Info().Int("due", len(due)).Int("sent", sent).Msg("Dispatched reminders")
	}
	return sent, nil
}

func (s *Scheduler) deliver(ctx context.Context, rem models.Reminder, now time.Time) bool {
	_, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: rem.ChatID,
		Text:   FormatReminder(rem),
	})
	if err != nil {
		s.recordDispatch(ctx, false)
		logger.Log.Warn().
			Err(err).
			Int64("reminder_id", rem.ID).
			Str("chat_hash", logger.HashChatID(rem.ChatID)).
			Msg("Failed to send reminder")
		if !errors.Is(err, bot.ErrorForbidden) {
			return false
		}
	} else {
		s.recordDispatch(ctx, true)
	}

	if err := s.reminders.MarkSent(ctx, rem.ID, now); err != nil {
		// The message went out; the next tick may send it again.
		logger.Log.Error().Err(err).Int64("reminder_id", rem.ID).Msg("Failed to mark reminder sent")
	}
	return err == nil
}

func (s *Scheduler) recordDispatch(ctx context.Context, sent bool) {
	s.metrics.RecordReminder(sent)
	outcome := "sent"
	if !sent {
		outcome = "failed"
	}
	s.dispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// PushWeeklySummaries sends the weekly summary to every registered user and
// returns how many were sent. One user's failure does not stop the others.
func (s *Scheduler) PushWeeklySummaries(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.push_weekly_summaries")
	defer span.End()

	users, err := s.users.GetAllUsers(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	sent, failed := 0, 0
	for _, u := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		ok, err := s.summaries.PushWeeklySummary(ctx, u.ID)
		if err != nil {
			failed++
			logger.Log.Warn().Err(err).Str("user_hash", logger.HashUserID(u.ID)).Msg("Failed to push weekly summary")
			continue
		}
		if ok {
			sent++
			s.pushed.Add(ctx, 1)
		}
	}

	span.SetAttributes(attribute.Int("summaries.sent", sent), attribute.Int("summaries.failed", failed))
	logger.Log.Info().Int("users", len(users)).Int("sent", sent).Int("failed", failed).Msg("Pushed weekly summaries")
	return sent, nil
}

// FormatReminder is the text of a delivered reminder.
func FormatReminder(rem models.Reminder) string {
	return "🔔 Reminder: " + rem.Text
}
