package bot

import (
	"context"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/gemini"
	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/KoPyae2/Life-Desk/internal/repository"
	"github.com/shopspring/decimal"
)

// UserStore persists Telegram users.
type UserStore interface {
	UpsertUser(ctx context.Context, user *appmodels.User) error
	GetAllUsers(ctx context.Context) ([]appmodels.User, error)
}

// NoteStore persists notes.
type NoteStore interface {
	Create(ctx context.Context, note *appmodels.Note) error
	ListRecent(ctx context.Context, userID int64, limit int) ([]appmodels.Note, error)
	Delete(ctx context.Context, userID, id int64) error
	CountInRange(ctx context.Context, userID int64, start, end time.Time) (int, error)
}

// TodoStore persists todos.
type TodoStore interface {
	Create(ctx context.Context, todo *appmodels.Todo) error
	List(ctx context.Context, userID int64, filter repository.TodoFilter) ([]appmodels.Todo, error)
	SetDone(ctx context.Context, userID, id int64, done bool) (*appmodels.Todo, error)
	Delete(ctx context.Context, userID, id int64) error
	CountsInRange(ctx context.Context, userID int64, start, end time.Time) (appmodels.TodoCounts, error)
}

// ExpenseStore persists expenses.
type ExpenseStore interface {
	Create(ctx context.Context, expense *appmodels.Expense) error
	ListInRange(ctx context.Context, userID int64, start, end time.Time) ([]appmodels.Expense, error)
	TotalInRange(ctx context.Context, userID int64, start, end time.Time) (decimal.Decimal, error)
	TotalsByCategory(ctx context.Context, userID int64, start, end time.Time) ([]appmodels.CategoryTotal, error)
}

// ReminderStore persists scheduled reminders.
type ReminderStore interface {
	Create(ctx context.Context, rem *appmodels.Reminder) error
	ListUpcoming(ctx context.Context, userID int64, from, to time.Time) ([]appmodels.Reminder, error)
	DeleteBySource(ctx context.Context, kind appmodels.ReminderSource, sourceID int64) error
}

// Assistant is the AI backend. *gemini.Client satisfies it.
type Assistant interface {
	Enabled() bool
	Chat(ctx context.Context, text string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (*gemini.Image, error)
	SummarizeWeek(ctx context.Context, digest string) (string, error)
}

var (
	_ UserStore     = (*repository.UserRepository)(nil)
	_ NoteStore     = (*repository.NoteRepository)(nil)
	_ TodoStore     = (*repository.TodoRepository)(nil)
	_ ExpenseStore  = (*repository.ExpenseRepository)(nil)
	_ ReminderStore = (*repository.ReminderRepository)(nil)
	_ Assistant     = (*gemini.Client)(nil)
)
