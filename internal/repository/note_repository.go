package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/database"
	"github.com/KoPyae2/Life-Desk/internal/models"
)

// NoteRepository handles note database operations.
type NoteRepository struct {
	db database.PGXDB
}

// NewNoteRepository creates a new NoteRepository.
func NewNoteRepository(db database.PGXDB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts note and fills in its ID and CreatedAt.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO notes (user_id, content, remind_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, note.UserID, note.Content, note.RemindAt).Scan(&note.ID, &note.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// ListRecent returns the user's newest notes.
func (r *NoteRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]models.Note, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, content, remind_at, created_at
		FROM notes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &n.RemindAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// Delete removes one of the user's notes.
func (r *NoteRepository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete note %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountInRange counts notes created in [start, end).
func (r *NoteRepository) CountInRange(ctx context.Context, userID int64, start, end time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notes
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
	`, userID, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return count, nil
}
