// Package models defines the domain entities of the Life Desk bot.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used for expenses when no currency is configured.
const DefaultCurrency = "USD"

// Content limits for user-provided text.
const (
	MaxNoteLength        = 2000
	MaxTodoLength        = 500
	MaxDescriptionLength = 200
)

// DefaultCategory is assigned to expenses without a #category suffix.
const DefaultCategory = "Other"

// ExpenseCategories are the suggested categories shown to users.
var ExpenseCategories = []string{
	"Food",
	"Transport",
	"Shopping",
	"Bills",
	"Health",
	"Entertainment",
	"Other",
}

// User represents a Telegram user.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Note is a free-form note, optionally with a reminder time.
type Note struct {
	ID        int64
	UserID    int64
	Content   string
	RemindAt  *time.Time
	CreatedAt time.Time
}

// Todo is a task that can be completed.
type Todo struct {
	ID          int64
	UserID      int64
	Title       string
	DueAt       *time.Time
	Done        bool
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// Expense is a single spending entry.
type Expense struct {
	ID          int64
	UserID      int64
	Amount      decimal.Decimal
	Currency    string
	Description string
	Category    string
	CreatedAt   time.Time
}

// ReminderSource identifies what created a reminder.
type ReminderSource string

// Reminder sources.
const (
	ReminderSourceNote   ReminderSource = "note"
	ReminderSourceTodo   ReminderSource = "todo"
	ReminderSourceManual ReminderSource = "manual"
)

// Reminder is a message scheduled to be sent to a chat.
type Reminder struct {
	ID         int64
	UserID     int64
	ChatID     int64
	Text       string
	RemindAt   time.Time
	SourceKind ReminderSource
	SourceID   *int64
	SentAt     *time.Time
	CreatedAt  time.Time
}

// CategoryTotal is the sum of expenses in one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// TodoCounts summarizes todo activity in a period.
type TodoCounts struct {
	Created   int
	Completed int
	Pending   int
}

// WeeklySummary aggregates a user's activity for one week.
type WeeklySummary struct {
	Start             time.Time
	End               time.Time
	NotesCreated      int
	Todos             TodoCounts
	ExpenseTotal      decimal.Decimal
	Currency          string
	CategoryTotals    []CategoryTotal
	UpcomingReminders []Reminder
}

// IsEmpty reports whether nothing happened during the week.
func (s *WeeklySummary) IsEmpty() bool {
	return s.NotesCreated == 0 &&
		s.Todos.Created == 0 &&
		s.Todos.Completed == 0 &&
		s.ExpenseTotal.IsZero() &&
		len(s.UpcomingReminders) == 0
}
