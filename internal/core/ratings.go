package core

import "github.com/shopspring/decimal"

// SubmitRating records one party's rating of the other for a completed task
// and recomputes the rated user's running average. A second rating for the
// same (task, rater) pair fails with Conflict.
func (s *Service) SubmitRating(raterID, taskID int64, score int, comment string) (*Rating, error) {
	if score < 1 || score > 5 {
		return nil, Validationf("score must be between 1 and 5")
	}

	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != TaskStatusCompleted {
		return nil, InvalidStatef("task is not completed")
	}
	if task.HelperID == nil {
		return nil, InvalidStatef("task has no helper to rate")
	}

	var ratedID int64
	switch raterID {
	case task.AuthorID:
		ratedID = *task.HelperID
	case *task.HelperID:
		ratedID = task.AuthorID
	default:
		return nil, Forbiddenf("only the task parties can rate")
	}

	rating, err := s.store.CreateRating(&Rating{
		TaskID:  taskID,
		RaterID: raterID,
		RatedID: ratedID,
		Score:   score,
		Comment: comment,
	})
	if err != nil {
		return nil, err
	}

	if err := s.recomputeRating(ratedID); err != nil {
		return nil, err
	}

	return rating, nil
}

// GetTaskRating returns the rating the actor submitted for a task, if any
func (s *Service) GetTaskRating(actorID, taskID int64) (*Rating, error) {
	return s.store.GetRatingByTaskAndRater(taskID, actorID)
}

// recomputeRating stores the arithmetic mean of all of a user's received
// scores, rounded to 2 decimal places
func (s *Service) recomputeRating(ratedID int64) error {
	scores, err := s.store.GetScoresByRatedID(ratedID)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		return nil
	}

	sum := decimal.Zero
	for _, score := range scores {
		sum = sum.Add(decimal.NewFromInt(int64(score)))
	}
	average := sum.Div(decimal.NewFromInt(int64(len(scores)))).Round(2)

	return s.store.UpdateUserRating(ratedID, average)
}
