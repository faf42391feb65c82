package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/database"
	"github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/jackc/pgx/v5"
)

const reminderColumns = "id, user_id, chat_id, text, remind_at, source_kind, source_id, sent_at, created_at"

// ReminderRepository handles scheduled reminder operations.
type ReminderRepository struct {
	db database.PGXDB
}

// NewReminderRepository creates a new ReminderRepository.
func NewReminderRepository(db database.PGXDB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create schedules a reminder and fills in its ID and CreatedAt.
func (r *ReminderRepository) Create(ctx context.Context, rem *models.Reminder) error {
	if rem.SourceKind == "" {
		rem.SourceKind = models.ReminderSourceManual
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO reminders (user_id, chat_id, text, remind_at, source_kind, source_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, rem.UserID, rem.ChatID, rem.Text, rem.RemindAt, string(rem.SourceKind), rem.SourceID,
	).Scan(&rem.ID, &rem.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// ListDue returns unsent reminders whose time is at or before now, oldest first.
func (r *ReminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE sent_at IS NULL AND remind_at <= $1
		ORDER BY remind_at, id
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

// ListUpcoming returns the user's unsent reminders in [from, to).
func (r *ReminderRepository) ListUpcoming(ctx context.Context, userID int64, from, to time.Time) ([]models.Reminder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE user_id = $1 AND sent_at IS NULL AND remind_at >= $2 AND remind_at < $3
		ORDER BY remind_at, id
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

// MarkSent records that the reminder was delivered.
func (r *ReminderRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE reminders SET sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to mark reminder %d sent: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteBySource drops pending reminders attached to a note or todo.
func (r *ReminderRepository) DeleteBySource(ctx context.Context, kind models.ReminderSource, sourceID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM reminders
		WHERE source_kind = $1 AND source_id = $2 AND sent_at IS NULL
	`, string(kind), sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete reminders: %w", err)
	}
	return nil
}

func scanReminders(rows pgx.Rows) ([]models.Reminder, error) {
	var reminders []models.Reminder
	for rows.Next() {
		var rem models.Reminder
		var kind string
		if err := rows.Scan(
			&rem.ID, &rem.UserID, &rem.ChatID, &rem.Text, &rem.RemindAt,
			&kind, &rem.SourceID, &rem.SentAt, &rem.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		rem.SourceKind = models.ReminderSource(kind)
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}
	return reminders, nil
}
