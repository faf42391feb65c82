// Package inputmode tracks, per user, how the next plain-text message should
// be interpreted: as a note, a todo, an expense, or an image prompt.
//
// A user has at most one pending mode. Starting a new mode replaces the old
// one, and reading a message consumes it. Image prompts expire after a TTL;
// the other modes wait until the user sends text or picks another mode.
package inputmode

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Mode is the pending interpretation for a user's next text message.
type Mode string

// Supported modes. The absence of a record means no mode is set.
const (
	ModeNote        Mode = "note"
	ModeTodo        Mode = "todo"
	ModeExpense     Mode = "expense"
	ModeImagePrompt Mode = "image_prompt"
)

// DefaultImagePromptTTL bounds how long the bot waits for an image prompt.
const DefaultImagePromptTTL = 5 * time.Minute

var (
	// ErrStateUnavailable wraps any failure of the underlying store.
	ErrStateUnavailable = errors.New("state storage unavailable")
	// ErrUnknownMode is returned by Set for a mode outside the supported set.
	ErrUnknownMode = errors.New("unknown input mode")
)

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeNote, ModeTodo, ModeExpense, ModeImagePrompt:
		return true
	}
	return false
}

// Record is the persisted pending mode of one user.
type Record struct {
	UserID    int64
	Mode      Mode
	CreatedAt time.Time
	// ExpiresAt is only set for modes with a TTL.
	ExpiresAt *time.Time
}

// Expired reports whether the record has a TTL that has run out at now.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Store persists one record per user. Upsert must replace any existing row
// for the user atomically. Get returns nil, nil when the user has no record.
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	Get(ctx context.Context, userID int64) (*Record, error)
	Delete(ctx context.Context, userID int64) error
}

// Machine is the only writer of input mode records.
type Machine struct {
	store          Store
	now            func() time.Time
	imagePromptTTL time.Duration
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithImagePromptTTL sets how long an image prompt mode stays active.
func WithImagePromptTTL(ttl time.Duration) Option {
	return func(m *Machine) {
		if ttl > 0 {
			m.imagePromptTTL = ttl
		}
	}
}

// NewMachine creates a Machine backed by store.
func NewMachine(store Store, opts ...Option) *Machine {
	m := &Machine{
		store:          store,
		now:            time.Now,
		imagePromptTTL: DefaultImagePromptTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set replaces whatever mode the user had with mode.
func (m *Machine) Set(ctx context.Context, userID int64, mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	now := m.now()
	rec := Record{
		UserID:    userID,
		Mode:      mode,
		CreatedAt: now,
	}
	if mode == ModeImagePrompt {
		expires := now.Add(m.imagePromptTTL)
		rec.ExpiresAt = &expires
	}

	if err := m.store.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("%w: failed to set mode: %w", ErrStateUnavailable, err)
	}
	return nil
}

// Get returns the user's active record, or nil when there is none or it has
// expired. It never modifies the store.
func (m *Machine) Get(ctx context.Context, userID int64) (*Record, error) {
	rec, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get mode: %w", ErrStateUnavailable, err)
	}
	if rec == nil || rec.Expired(m.now()) {
		return nil, nil
	}
	return rec, nil
}

// Clear removes the user's record. Clearing a user with no record is not an
// error.
func (m *Machine) Clear(ctx context.Context, userID int64) error {
	if err := m.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%w: failed to clear mode: %w", ErrStateUnavailable, err)
	}
	return nil
}

// Take consumes the user's mode: the record is deleted before Take returns,
// so whatever the caller does with the text next cannot leave the user stuck.
// Expired records are deleted too and reported as nil.
func (m *Machine) Take(ctx context.Context, userID int64) (*Record, error) {
	rec, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get mode: %w", ErrStateUnavailable, err)
	}
	if rec == nil {
		return nil, nil
	}

	if err := m.Clear(ctx, userID); err != nil {
		return nil, err
	}

	if rec.Expired(m.now()) {
		return nil, nil
	}
	return rec, nil
}
