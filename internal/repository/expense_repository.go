package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/database"
	"github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/shopspring/decimal"
)

// ExpenseRepository handles expense database operations.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create adds a new expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.Currency == "" {
		expense.Currency = models.DefaultCurrency
	}
	if expense.Category == "" {
		expense.Category = models.DefaultCategory
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (user_id, amount, currency, description, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, expense.UserID, expense.Amount, expense.Currency, expense.Description, expense.Category,
	).Scan(&expense.ID, &expense.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// ListInRange returns the user's expenses created in [start, end), newest first.
func (r *ExpenseRepository) ListInRange(ctx context.Context, userID int64, start, end time.Time) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, amount, currency, description, category, created_at
		FROM expenses
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC, id DESC
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by date range: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Currency, &e.Description, &e.Category, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

// TotalInRange sums the user's expenses created in [start, end).
func (r *ExpenseRepository) TotalInRange(ctx context.Context, userID int64, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
	`, userID, start, end).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get expense total: %w", err)
	}
	return total, nil
}

// TotalsByCategory sums the user's expenses in [start, end) per category,
// largest first.
func (r *ExpenseRepository) TotalsByCategory(ctx context.Context, userID int64, start, end time.Time) ([]models.CategoryTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category, SUM(amount) AS total
		FROM expenses
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY category
		ORDER BY total DESC, category
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query category totals: %w", err)
	}
	defer rows.Close()

	var totals []models.CategoryTotal
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category totals: %w", err)
	}
	return totals, nil
}
