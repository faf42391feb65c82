package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/database"
	"github.com/KoPyae2/Life-Desk/internal/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const todoColumns = "id, user_id, title, due_at, done, completed_at, created_at"

// TodoFilter narrows List results. Zero values mean no restriction.
type TodoFilter struct {
	Done      *bool
	DueBefore *time.Time
	Limit     int
}

// TodoRepository handles todo database operations.
type TodoRepository struct {
	db database.PGXDB
}

// NewTodoRepository creates a new TodoRepository.
func NewTodoRepository(db database.PGXDB) *TodoRepository {
	return &TodoRepository{db: db}
}

// Create inserts todo and fills in its ID and CreatedAt.
func (r *TodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO todos (user_id, title, due_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, todo.UserID, todo.Title, todo.DueAt).Scan(&todo.ID, &todo.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

// List returns the user's todos: open ones first, then by due date.
func (r *TodoRepository) List(ctx context.Context, userID int64, filter TodoFilter) ([]models.Todo, error) {
	q := psql.Select(todoColumns).
		From("todos").
		Where(sq.Eq{"user_id": userID})
	if filter.Done != nil {
		q = q.Where(sq.Eq{"done": *filter.Done})
	}
	if filter.DueBefore != nil {
		q = q.Where(sq.Lt{"due_at": *filter.DueBefore})
	}
	q = q.OrderBy("done", "due_at NULLS LAST", "created_at DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build todo query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	var todos []models.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}
	return todos, nil
}

// SetDone marks one of the user's todos done or open again and returns it.
func (r *TodoRepository) SetDone(ctx context.Context, userID, id int64, done bool) (*models.Todo, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE todos
		SET done = $1, completed_at = CASE WHEN $1 THEN NOW() ELSE NULL END
		WHERE id = $2 AND user_id = $3
		RETURNING `+todoColumns, done, id, userID)
	todo, err := scanTodo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update todo %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return todo, nil
}

// Delete removes one of the user's todos.
func (r *TodoRepository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete todo %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountsInRange reports todos created and completed in [start, end), and how
// many are still open.
func (r *TodoRepository) CountsInRange(ctx context.Context, userID int64, start, end time.Time) (models.TodoCounts, error) {
	var c models.TodoCounts
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $2 AND created_at < $3),
			COUNT(*) FILTER (WHERE completed_at >= $2 AND completed_at < $3),
			COUNT(*) FILTER (WHERE NOT done)
		FROM todos WHERE user_id = $1
	`, userID, start, end).Scan(&c.Created, &c.Completed, &c.Pending)
	if err != nil {
		return models.TodoCounts{}, fmt.Errorf("failed to count todos: %w", err)
	}
	return c, nil
}

func scanTodo(row pgx.Row) (*models.Todo, error) {
	var t models.Todo
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.DueAt, &t.Done, &t.CompletedAt, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan todo: %w", err)
	}
	return &t, nil
}
