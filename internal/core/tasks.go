package core

import "github.com/shopspring/decimal"

// TaskInput carries the fields for creating a task
type TaskInput struct {
	CommunityID  int64           `json:"communityId"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Reward       decimal.Decimal `json:"reward"`
	TimeEstimate string          `json:"timeEstimate"`
	Location     string          `json:"location"`
}

// TaskPatch carries a partial update; nil fields are untouched. Setting
// HelperID is the accept path, which the original client issued through the
// same PATCH endpoint as detail edits.
type TaskPatch struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Category     *string          `json:"category"`
	Reward       *decimal.Decimal `json:"reward"`
	TimeEstimate *string          `json:"timeEstimate"`
	Location     *string          `json:"location"`
	HelperID     *int64           `json:"helperId"`
}

func (p *TaskPatch) editsDetails() bool {
	return p.Title != nil || p.Description != nil || p.Category != nil ||
		p.Reward != nil || p.TimeEstimate != nil || p.Location != nil
}

// CreateTask creates a new open task. The author must be a member of the
// target community.
func (s *Service) CreateTask(authorID int64, in TaskInput) (*Task, error) {
	if in.Title == "" {
		return nil, Validationf("task title cannot be empty")
	}
	if in.Reward.Cmp(decimal.Zero) <= 0 {
		return nil, Validationf("reward must be positive")
	}

	if err := s.requireMember(authorID, in.CommunityID); err != nil {
		return nil, err
	}

	return s.store.CreateTask(&Task{
		CommunityID:  in.CommunityID,
		AuthorID:     authorID,
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		Reward:       in.Reward,
		TimeEstimate: in.TimeEstimate,
		Location:     in.Location,
	})
}

// GetTask retrieves a task for a community member
func (s *Service) GetTask(actorID, taskID int64) (*Task, error) {
	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}

	if err := s.requireMember(actorID, task.CommunityID); err != nil {
		return nil, err
	}

	return task, nil
}

// ListCommunityTasks retrieves a community's active tasks for a member
func (s *Service) ListCommunityTasks(actorID, communityID int64) ([]*Task, error) {
	if err := s.requireMember(actorID, communityID); err != nil {
		return nil, err
	}
	return s.store.GetActiveTasksByCommunityID(communityID)
}

// AcceptTask assigns the actor as the task's helper and moves it to accepted
func (s *Service) AcceptTask(actorID, taskID int64) (*Task, error) {
	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}

	if actorID == task.AuthorID {
		return nil, Forbiddenf("author cannot accept own task")
	}
	if err := s.requireMember(actorID, task.CommunityID); err != nil {
		return nil, err
	}

	// The store-side guard rejects anything but open-with-no-helper, so a
	// concurrent accept loses with Conflict rather than overwriting.
	if err := s.store.AcceptTask(taskID, actorID); err != nil {
		return nil, err
	}

	return s.store.GetTaskByID(taskID)
}

// UpdateTask applies a PATCH to a task. The author may edit any field;
// any other actor may only set itself as helper (the accept path).
func (s *Service) UpdateTask(actorID, taskID int64, patch TaskPatch) (*Task, error) {
	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}

	if patch.HelperID != nil {
		if *patch.HelperID == task.AuthorID {
			return nil, Validationf("task author cannot be its helper")
		}
		if actorID != task.AuthorID && actorID != *patch.HelperID {
			return nil, Forbiddenf("may only set yourself as helper")
		}

		if _, err := s.AcceptTask(*patch.HelperID, taskID); err != nil {
			return nil, err
		}
	}

	if patch.editsDetails() {
		if actorID != task.AuthorID {
			return nil, Forbiddenf("only the author can edit a task")
		}

		title := task.Title
		if patch.Title != nil {
			title = *patch.Title
		}
		if title == "" {
			return nil, Validationf("task title cannot be empty")
		}
		description := task.Description
		if patch.Description != nil {
			description = *patch.Description
		}
		category := task.Category
		if patch.Category != nil {
			category = *patch.Category
		}
		reward := task.Reward
		if patch.Reward != nil {
			reward = *patch.Reward
		}
		if reward.Cmp(decimal.Zero) <= 0 {
			return nil, Validationf("reward must be positive")
		}
		timeEstimate := task.TimeEstimate
		if patch.TimeEstimate != nil {
			timeEstimate = *patch.TimeEstimate
		}
		location := task.Location
		if patch.Location != nil {
			location = *patch.Location
		}

		if err := s.store.UpdateTaskDetails(taskID, title, description, category, reward, timeEstimate, location); err != nil {
			return nil, err
		}
	}

	return s.store.GetTaskByID(taskID)
}

// CompleteTask marks a task completed. Author-only; any non-terminal status
// is accepted (the handshake ordering is a client convention, not a server
// precondition). Completion bumps the user aggregate counters.
func (s *Service) CompleteTask(actorID, taskID int64) (*Task, error) {
	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}

	if actorID != task.AuthorID {
		return nil, Forbiddenf("only the author can complete a task")
	}
	if task.Status.Terminal() {
		return nil, InvalidStatef("task is already %s", task.Status)
	}

	if err := s.store.SetTaskStatus(taskID, TaskStatusCompleted); err != nil {
		return nil, err
	}

	if task.HelperID != nil {
		if err := s.store.IncrementCompletionCounters(*task.HelperID, task.AuthorID); err != nil {
			return nil, err
		}
	}

	return s.store.GetTaskByID(taskID)
}

// CancelTask cancels a task. Author-only; legal from open or accepted only.
func (s *Service) CancelTask(actorID, taskID int64) (*Task, error) {
	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}

	if actorID != task.AuthorID {
		return nil, Forbiddenf("only the author can cancel a task")
	}
	if task.Status != TaskStatusOpen && task.Status != TaskStatusAccepted {
		return nil, InvalidStatef("cannot cancel a task that is %s", task.Status)
	}

	if err := s.store.SetTaskStatus(taskID, TaskStatusCancelled); err != nil {
		return nil, err
	}

	return s.store.GetTaskByID(taskID)
}
