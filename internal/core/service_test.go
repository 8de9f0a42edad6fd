package core_test

import (
	"path/filepath"
	"sync"
	"testing"

	"neighborly/internal/core"
	"neighborly/internal/store"

	"github.com/shopspring/decimal"
)

// recorder captures published events for assertions
type recorder struct {
	mu     sync.Mutex
	events []recorded
}

type recorded struct {
	Recipients []int64
	Event      interface{}
}

func (r *recorder) Publish(recipients []int64, event interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{Recipients: recipients, Event: event})
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.events...)
}

func (r *recorder) last(t *testing.T) recorded {
	t.Helper()
	events := r.all()
	if len(events) == 0 {
		t.Fatal("no events published")
	}
	return events[len(events)-1]
}

func newTestService(t *testing.T) (*core.Service, *recorder) {
	t.Helper()

	st, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	rec := &recorder{}
	return core.NewService(st, rec), rec
}

// fixture is a community with an author, a fellow member and an outsider,
// plus one open task posted by the author
type fixture struct {
	svc       *core.Service
	rec       *recorder
	author    *core.User
	helper    *core.User
	outsider  *core.User
	community *core.Community
	task      *core.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	svc, rec := newTestService(t)

	author := mustRegister(t, svc, "alice")
	helper := mustRegister(t, svc, "hassan")
	outsider := mustRegister(t, svc, "olga")

	community, err := svc.CreateCommunity("Maple Street", "the maple street block", author.ID)
	if err != nil {
		t.Fatalf("failed to create community: %v", err)
	}
	if _, err := svc.JoinCommunity(helper.ID, community.ID); err != nil {
		t.Fatalf("failed to join community: %v", err)
	}

	task, err := svc.CreateTask(author.ID, core.TaskInput{
		CommunityID: community.ID,
		Title:       "Walk my dog",
		Description: "Twice around the park",
		Category:    "pets",
		Reward:      decimal.NewFromInt(15000),
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	return &fixture{
		svc:       svc,
		rec:       rec,
		author:    author,
		helper:    helper,
		outsider:  outsider,
		community: community,
		task:      task,
	}
}

func mustRegister(t *testing.T, svc *core.Service, username string) *core.User {
	t.Helper()
	user, err := svc.RegisterUser(username, username, "test-hash")
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	return user
}

func (f *fixture) accept(t *testing.T) *core.Task {
	t.Helper()
	task, err := f.svc.AcceptTask(f.helper.ID, f.task.ID)
	if err != nil {
		t.Fatalf("failed to accept task: %v", err)
	}
	return task
}

func (f *fixture) transaction(t *testing.T) *core.Transaction {
	t.Helper()
	f.accept(t)
	transaction, err := f.svc.CreateTransactionForTask(f.author.ID, f.task.ID)
	if err != nil {
		t.Fatalf("failed to create transaction: %v", err)
	}
	return transaction
}
