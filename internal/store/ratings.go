package store

import (
	"database/sql"
	"fmt"

	"neighborly/internal/core"
)

// CreateRating creates a rating. The unique index on (task_id, rater_id)
// rejects a second rating from the same rater for the same task.
func (s *Store) CreateRating(rating *core.Rating) (*core.Rating, error) {
	result, err := s.DB.Exec(
		"INSERT INTO ratings (task_id, rater_id, rated_id, score, comment) VALUES (?, ?, ?, ?, ?)",
		rating.TaskID, rating.RaterID, rating.RatedID, rating.Score, rating.Comment,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("task already rated: %w", core.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create rating: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetRatingByID(id)
}

// GetRatingByID retrieves a rating by ID
func (s *Store) GetRatingByID(id int64) (*core.Rating, error) {
	rating := &core.Rating{}

	err := s.DB.QueryRow(
		"SELECT id, task_id, rater_id, rated_id, score, comment, created_at FROM ratings WHERE id = ?",
		id,
	).Scan(&rating.ID, &rating.TaskID, &rating.RaterID, &rating.RatedID, &rating.Score, &rating.Comment, &rating.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("rating %d: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}

	return rating, nil
}

// GetRatingByTaskAndRater retrieves the rating a user submitted for a task,
// used to hide the rate prompt once submitted
func (s *Store) GetRatingByTaskAndRater(taskID, raterID int64) (*core.Rating, error) {
	rating := &core.Rating{}

	err := s.DB.QueryRow(
		"SELECT id, task_id, rater_id, rated_id, score, comment, created_at FROM ratings WHERE task_id = ? AND rater_id = ?",
		taskID, raterID,
	).Scan(&rating.ID, &rating.TaskID, &rating.RaterID, &rating.RatedID, &rating.Score, &rating.Comment, &rating.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("rating for task %d: %w", taskID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}

	return rating, nil
}

// GetScoresByRatedID returns every score submitted for a user
func (s *Store) GetScoresByRatedID(ratedID int64) ([]int, error) {
	rows, err := s.DB.Query("SELECT score FROM ratings WHERE rated_id = ?", ratedID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var scores []int
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, score)
	}

	return scores, rows.Err()
}
