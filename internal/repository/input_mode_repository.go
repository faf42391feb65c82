package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/KoPyae2/Life-Desk/internal/database"
	"github.com/KoPyae2/Life-Desk/internal/inputmode"
	"github.com/jackc/pgx/v5"
)

// InputModeRepository stores one pending input mode row per user.
type InputModeRepository struct {
	db database.PGXDB
}

var _ inputmode.Store = (*InputModeRepository)(nil)

// NewInputModeRepository creates a new InputModeRepository.
func NewInputModeRepository(db database.PGXDB) *InputModeRepository {
	return &InputModeRepository{db: db}
}

// Upsert replaces the user's row in a single statement.
func (r *InputModeRepository) Upsert(ctx context.Context, rec inputmode.Record) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO input_modes (user_id, mode, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, rec.UserID, string(rec.Mode), rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to upsert input mode: %w", err)
	}
	return nil
}

// Get returns the user's row, or nil when there is none.
func (r *InputModeRepository) Get(ctx context.Context, userID int64) (*inputmode.Record, error) {
	var rec inputmode.Record
	var mode string
	err := r.db.QueryRow(ctx, `
		SELECT user_id, mode, created_at, expires_at
		FROM input_modes WHERE user_id = $1
	`, userID).Scan(&rec.UserID, &mode, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get input mode: %w", err)
	}
	rec.Mode = inputmode.Mode(mode)
	return &rec, nil
}

// Delete removes the user's row if present.
func (r *InputModeRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM input_modes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete input mode: %w", err)
	}
	return nil
}
