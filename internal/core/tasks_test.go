package core_test

import (
	"errors"
	"testing"

	"neighborly/internal/core"

	"github.com/shopspring/decimal"
)

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateTask(f.author.ID, core.TaskInput{
		CommunityID: f.community.ID,
		Reward:      decimal.NewFromInt(100),
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("empty title: got %v, want ErrValidation", err)
	}

	_, err = f.svc.CreateTask(f.author.ID, core.TaskInput{
		CommunityID: f.community.ID,
		Title:       "Free help",
		Reward:      decimal.Zero,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("zero reward: got %v, want ErrValidation", err)
	}

	_, err = f.svc.CreateTask(f.outsider.ID, core.TaskInput{
		CommunityID: f.community.ID,
		Title:       "Sneak in",
		Reward:      decimal.NewFromInt(100),
	})
	if !errors.Is(err, core.ErrForbidden) {
		t.Errorf("non-member create: got %v, want ErrForbidden", err)
	}
}

func TestAcceptTask(t *testing.T) {
	f := newFixture(t)

	task := f.accept(t)
	if task.Status != core.TaskStatusAccepted {
		t.Errorf("status = %s, want accepted", task.Status)
	}
	if task.HelperID == nil || *task.HelperID != f.helper.ID {
		t.Errorf("helper = %v, want %d", task.HelperID, f.helper.ID)
	}
}

func TestAcceptOwnTaskForbidden(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.AcceptTask(f.author.ID, f.task.ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestAcceptByNonMemberForbidden(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.AcceptTask(f.outsider.ID, f.task.ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestAcceptTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	f.accept(t)

	second := mustRegister(t, f.svc, "sam")
	if _, err := f.svc.JoinCommunity(second.ID, f.community.ID); err != nil {
		t.Fatalf("failed to join: %v", err)
	}

	if _, err := f.svc.AcceptTask(second.ID, f.task.ID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("got %v, want ErrConflict", err)
	}
}

func TestAcceptViaPatch(t *testing.T) {
	f := newFixture(t)

	task, err := f.svc.UpdateTask(f.helper.ID, f.task.ID, core.TaskPatch{HelperID: &f.helper.ID})
	if err != nil {
		t.Fatalf("patch accept failed: %v", err)
	}
	if task.Status != core.TaskStatusAccepted {
		t.Errorf("status = %s, want accepted", task.Status)
	}

	// Assigning the author as helper is never legal
	_, err = f.svc.UpdateTask(f.author.ID, f.task.ID, core.TaskPatch{HelperID: &f.author.ID})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("author as helper: got %v, want ErrValidation", err)
	}

	// A third party cannot assign someone else
	_, err = f.svc.UpdateTask(f.outsider.ID, f.task.ID, core.TaskPatch{HelperID: &f.helper.ID})
	if !errors.Is(err, core.ErrForbidden) {
		t.Errorf("assign other: got %v, want ErrForbidden", err)
	}
}

func TestUpdateTaskDetails(t *testing.T) {
	f := newFixture(t)

	title := "Walk my dog, please"
	reward := decimal.NewFromInt(20000)
	task, err := f.svc.UpdateTask(f.author.ID, f.task.ID, core.TaskPatch{Title: &title, Reward: &reward})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if task.Title != title {
		t.Errorf("title = %q, want %q", task.Title, title)
	}
	if !task.Reward.Equal(reward) {
		t.Errorf("reward = %s, want %s", task.Reward, reward)
	}
	if task.Description != "Twice around the park" {
		t.Errorf("description was clobbered: %q", task.Description)
	}

	// Non-author detail edits are forbidden
	if _, err := f.svc.UpdateTask(f.helper.ID, f.task.ID, core.TaskPatch{Title: &title}); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("helper edit: got %v, want ErrForbidden", err)
	}

	empty := ""
	if _, err := f.svc.UpdateTask(f.author.ID, f.task.ID, core.TaskPatch{Title: &empty}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("empty title: got %v, want ErrValidation", err)
	}
}

func TestCompleteTask(t *testing.T) {
	f := newFixture(t)
	f.accept(t)

	// Only the author completes
	if _, err := f.svc.CompleteTask(f.helper.ID, f.task.ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("helper complete: got %v, want ErrForbidden", err)
	}

	task, err := f.svc.CompleteTask(f.author.ID, f.task.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if task.Status != core.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", task.Status)
	}

	helper, err := f.svc.GetUserByID(f.helper.ID)
	if err != nil {
		t.Fatalf("failed to reload helper: %v", err)
	}
	if helper.CompletedTasks != 1 || helper.HelpGiven != 1 {
		t.Errorf("helper counters = %d/%d, want 1/1", helper.CompletedTasks, helper.HelpGiven)
	}
	author, err := f.svc.GetUserByID(f.author.ID)
	if err != nil {
		t.Fatalf("failed to reload author: %v", err)
	}
	if author.HelpReceived != 1 {
		t.Errorf("author helpReceived = %d, want 1", author.HelpReceived)
	}

	// Terminal states reject further transitions
	if _, err := f.svc.CompleteTask(f.author.ID, f.task.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("complete twice: got %v, want ErrInvalidState", err)
	}
	if _, err := f.svc.CancelTask(f.author.ID, f.task.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("cancel completed: got %v, want ErrInvalidState", err)
	}
}

func TestCancelTask(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.CancelTask(f.helper.ID, f.task.ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("helper cancel: got %v, want ErrForbidden", err)
	}

	task, err := f.svc.CancelTask(f.author.ID, f.task.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if task.Status != core.TaskStatusCancelled {
		t.Errorf("status = %s, want cancelled", task.Status)
	}

	// Cancelled is terminal
	if _, err := f.svc.AcceptTask(f.helper.ID, f.task.ID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("accept cancelled: got %v, want ErrConflict", err)
	}
}

func TestCancelInProgressRejected(t *testing.T) {
	f := newFixture(t)
	transaction := f.transaction(t)

	if _, err := f.svc.RequestStart(f.author.ID, transaction.ID); err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	if _, err := f.svc.RequestStart(f.helper.ID, transaction.ID); err != nil {
		t.Fatalf("start request failed: %v", err)
	}

	if _, err := f.svc.CancelTask(f.author.ID, f.task.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("cancel in_progress task: got %v, want ErrInvalidState", err)
	}
}

func TestListCommunityTasksExcludesTerminal(t *testing.T) {
	f := newFixture(t)

	done, err := f.svc.CreateTask(f.author.ID, core.TaskInput{
		CommunityID: f.community.ID,
		Title:       "Water plants",
		Reward:      decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if _, err := f.svc.CancelTask(f.author.ID, done.ID); err != nil {
		t.Fatalf("failed to cancel: %v", err)
	}

	tasks, err := f.svc.ListCommunityTasks(f.helper.ID, f.community.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].ID != f.task.ID {
		t.Errorf("got task %d, want %d", tasks[0].ID, f.task.ID)
	}

	if _, err := f.svc.ListCommunityTasks(f.outsider.ID, f.community.ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("outsider list: got %v, want ErrForbidden", err)
	}
}

func TestGetTaskMemberOnly(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.GetTask(f.outsider.ID, f.task.ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
	if _, err := f.svc.GetTask(f.helper.ID, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing task: got %v, want ErrNotFound", err)
	}
}
