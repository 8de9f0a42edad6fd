package store

import (
	"database/sql"
	"fmt"

	"neighborly/internal/core"

	"github.com/shopspring/decimal"
)

const taskColumns = "id, community_id, author_id, helper_id, title, description, category, reward, time_estimate, location, status, created_at, updated_at"

// scanTask scans one task row
func scanTask(row interface{ Scan(...interface{}) error }) (*core.Task, error) {
	task := &core.Task{}
	var helperID sql.NullInt64
	var reward, status string

	err := row.Scan(&task.ID, &task.CommunityID, &task.AuthorID, &helperID, &task.Title,
		&task.Description, &task.Category, &reward, &task.TimeEstimate, &task.Location,
		&status, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if helperID.Valid {
		task.HelperID = &helperID.Int64
	}
	task.Status = core.TaskStatus(status)
	task.Reward, err = decimal.NewFromString(reward)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reward: %w", err)
	}

	return task, nil
}

// CreateTask creates a new task in a community
func (s *Store) CreateTask(task *core.Task) (*core.Task, error) {
	result, err := s.DB.Exec(
		"INSERT INTO tasks (community_id, author_id, title, description, category, reward, time_estimate, location, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		task.CommunityID, task.AuthorID, task.Title, task.Description, task.Category,
		task.Reward.String(), task.TimeEstimate, task.Location, string(core.TaskStatusOpen),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetTaskByID(id)
}

// GetTaskByID retrieves a task by ID
func (s *Store) GetTaskByID(id int64) (*core.Task, error) {
	task, err := scanTask(s.DB.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task %d: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetActiveTasksByCommunityID retrieves a community's tasks, excluding
// cancelled and completed ones
func (s *Store) GetActiveTasksByCommunityID(communityID int64) ([]*core.Task, error) {
	rows, err := s.DB.Query(
		"SELECT "+taskColumns+" FROM tasks WHERE community_id = ? AND status NOT IN ('cancelled', 'completed') ORDER BY created_at DESC",
		communityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*core.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateTaskDetails updates a task's editable fields
func (s *Store) UpdateTaskDetails(id int64, title, description, category string, reward decimal.Decimal, timeEstimate, location string) error {
	_, err := s.DB.Exec(`
		UPDATE tasks
		SET title = ?, description = ?, category = ?, reward = ?, time_estimate = ?, location = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, title, description, category, reward.String(), timeEstimate, location, id)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// AcceptTask sets the helper and moves the task to accepted, guarded so it
// only succeeds while the task is still open with no helper. Returns
// ErrConflict if somebody got there first.
func (s *Store) AcceptTask(id, helperID int64) error {
	result, err := s.DB.Exec(`
		UPDATE tasks
		SET helper_id = ?, status = 'accepted', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'open' AND helper_id IS NULL
	`, helperID, id)
	if err != nil {
		return fmt.Errorf("failed to accept task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check accept result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task already accepted: %w", core.ErrConflict)
	}
	return nil
}

// SetTaskStatus updates a task's status
func (s *Store) SetTaskStatus(id int64, status core.TaskStatus) error {
	_, err := s.DB.Exec(
		"UPDATE tasks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set task status: %w", err)
	}
	return nil
}
