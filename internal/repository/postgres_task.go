package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskflow/internal/models"
)

const taskColumns = "id, user_id, name, stage, priority, deadline, created_at, updated_at"

type PostgresTaskStore struct {
	db *sql.DB
}

func NewPostgresTaskStore(db *sql.DB) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t        models.Task
		deadline sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Stage, &t.Priority, &deadline, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		d := deadline.Time.UTC()
		t.Deadline = &d
	}
	return &t, nil
}

func (s *PostgresTaskStore) CreateTask(ctx context.Context, t *models.Task) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, user_id, name, stage, priority, deadline)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.Name, int(t.Stage), int(t.Priority), t.Deadline,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresTaskStore) FindTask(ctx context.Context, id, ownerID string) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1 AND user_id = $2", id, ownerID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("select task: %w", err)
	}
	return t, err
}

func (s *PostgresTaskStore) ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	conds := []string{"user_id = $1"}
	args := []any{ownerID}
	if filter.DeadlineFrom != nil {
		args = append(args, *filter.DeadlineFrom)
		conds = append(conds, fmt.Sprintf("deadline >= $%d", len(args)))
	}
	if filter.DeadlineTo != nil {
		args = append(args, *filter.DeadlineTo)
		conds = append(conds, fmt.Sprintf("deadline <= $%d", len(args)))
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE "+strings.Join(conds, " AND ")+" ORDER BY created_at", args...)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (s *PostgresTaskStore) UpdateTask(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error) {
	var priority *int
	if patch.Priority != nil {
		p := int(*patch.Priority)
		priority = &p
	}
	t, err := scanTask(s.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET name = COALESCE($3, name),
			priority = COALESCE($4, priority),
			deadline = COALESCE($5, deadline),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		id, ownerID, patch.Name, priority, patch.Deadline,
	))
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, err
}

// ShiftStage menggeser stage dalam satu UPDATE bersyarat sehingga dua request
// bersamaan tidak saling menimpa.
func (s *PostgresTaskStore) ShiftStage(ctx context.Context, id, ownerID string, delta int) (*models.Task, error) {
	lo, hi := stageBounds(delta)
	t, err := scanTask(s.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET stage = stage + $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2 AND stage BETWEEN $4 AND $5
		RETURNING `+taskColumns,
		id, ownerID, delta, int(lo), int(hi),
	))
	if errors.Is(err, ErrNotFound) {
		return nil, s.missOrOutOfRange(ctx, id, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("shift stage: %w", err)
	}
	return t, nil
}

func (s *PostgresTaskStore) missOrOutOfRange(ctx context.Context, id, ownerID string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1 AND user_id = $2)", id, ownerID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check task: %w", err)
	}
	if exists {
		return ErrStageOutOfRange
	}
	return ErrNotFound
}

func (s *PostgresTaskStore) SetStage(ctx context.Context, id, ownerID string, stage models.Stage) (*models.Task, error) {
	if !stage.Valid() {
		return nil, ErrStageOutOfRange
	}
	t, err := scanTask(s.db.QueryRowContext(ctx, `
		UPDATE tasks SET stage = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		id, ownerID, int(stage),
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("set stage: %w", err)
	}
	return t, err
}

func (s *PostgresTaskStore) DeleteTask(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectAffected(res)
}

func (s *PostgresTaskStore) DeleteTasksByOwner(ctx context.Context, ownerID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE user_id = $1", ownerID); err != nil {
		return fmt.Errorf("delete tasks of owner: %w", err)
	}
	return nil
}
