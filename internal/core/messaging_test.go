package core_test

import (
	"errors"
	"testing"

	"neighborly/internal/core"
)

func TestStartConversation(t *testing.T) {
	f := newFixture(t)

	// A counterpart starts one just by naming the task
	conv, err := f.svc.StartConversation(f.helper.ID, f.task.ID, 0)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if conv.AuthorID != f.author.ID || conv.ParticipantID != f.helper.ID {
		t.Errorf("parties = %d/%d, want %d/%d", conv.AuthorID, conv.ParticipantID, f.author.ID, f.helper.ID)
	}

	// Same pair resolves to the same conversation, whoever initiates
	again, err := f.svc.StartConversation(f.author.ID, f.task.ID, f.helper.ID)
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if again.ID != conv.ID {
		t.Errorf("second start made conversation %d, want %d", again.ID, conv.ID)
	}

	// The author must name a participant
	if _, err := f.svc.StartConversation(f.author.ID, f.task.ID, 0); !errors.Is(err, core.ErrValidation) {
		t.Errorf("author without participant: got %v, want ErrValidation", err)
	}
	// Never with yourself
	if _, err := f.svc.StartConversation(f.author.ID, f.task.ID, f.author.ID); !errors.Is(err, core.ErrValidation) {
		t.Errorf("self conversation: got %v, want ErrValidation", err)
	}
	// The participant must be a community member
	if _, err := f.svc.StartConversation(f.outsider.ID, f.task.ID, 0); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("outsider participant: got %v, want ErrForbidden", err)
	}
}

func TestPostMessageConversationScope(t *testing.T) {
	f := newFixture(t)

	conv, err := f.svc.StartConversation(f.helper.ID, f.task.ID, 0)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	scope := core.ConversationScope(conv.ID)

	message, err := f.svc.PostMessage(f.helper.ID, scope, "Hi, I can help on Saturday", "")
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if message.Type != core.MessageTypeText {
		t.Errorf("type = %s, want text (the default)", message.Type)
	}

	// Event goes to exactly the two parties and carries the conversation id
	event := f.rec.last(t)
	if len(event.Recipients) != 2 {
		t.Fatalf("recipients = %v, want the two parties", event.Recipients)
	}
	msgEvent, ok := event.Event.(core.NewMessageEvent)
	if !ok {
		t.Fatalf("event = %T, want NewMessageEvent", event.Event)
	}
	if msgEvent.ConversationID == nil || *msgEvent.ConversationID != conv.ID {
		t.Errorf("conversationId = %v, want %d", msgEvent.ConversationID, conv.ID)
	}
	if msgEvent.TaskID != nil {
		t.Errorf("taskId = %v, want nil for conversation scope", msgEvent.TaskID)
	}

	// Non-participants cannot read or post, even community members
	other := mustRegister(t, f.svc, "maria")
	if _, err := f.svc.JoinCommunity(other.ID, f.community.ID); err != nil {
		t.Fatalf("failed to join: %v", err)
	}
	if _, err := f.svc.PostMessage(other.ID, scope, "let me in", ""); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("non-participant post: got %v, want ErrForbidden", err)
	}
	if _, err := f.svc.ListMessages(other.ID, scope); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("non-participant list: got %v, want ErrForbidden", err)
	}
}

func TestPostMessageTaskScope(t *testing.T) {
	f := newFixture(t)
	scope := core.TaskScope(f.task.ID)

	if _, err := f.svc.PostMessage(f.helper.ID, scope, "Is the dog friendly?", ""); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	// Legacy scope fans out to every community member
	event := f.rec.last(t)
	if len(event.Recipients) != 2 {
		t.Errorf("recipients = %v, want all members", event.Recipients)
	}
	msgEvent := event.Event.(core.NewMessageEvent)
	if msgEvent.TaskID == nil || *msgEvent.TaskID != f.task.ID {
		t.Errorf("taskId = %v, want %d", msgEvent.TaskID, f.task.ID)
	}

	if _, err := f.svc.PostMessage(f.outsider.ID, scope, "hello", ""); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("outsider post: got %v, want ErrForbidden", err)
	}
	if _, err := f.svc.PostMessage(f.helper.ID, scope, "", ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("empty content: got %v, want ErrValidation", err)
	}
	if _, err := f.svc.PostMessage(f.helper.ID, scope, "x", "shout"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("bad type: got %v, want ErrValidation", err)
	}
}

func TestListMessagesOrdering(t *testing.T) {
	f := newFixture(t)
	scope := core.TaskScope(f.task.ID)

	contents := []string{"first", "second", "third"}
	for _, content := range contents {
		if _, err := f.svc.PostMessage(f.author.ID, scope, content, ""); err != nil {
			t.Fatalf("post failed: %v", err)
		}
	}

	messages, err := f.svc.ListMessages(f.helper.ID, scope)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	for i, message := range messages {
		if message.Content != contents[i] {
			t.Errorf("message %d = %q, want %q", i, message.Content, contents[i])
		}
		if message.Sender == nil || message.Sender.ID != f.author.ID {
			t.Errorf("message %d missing sender profile", i)
		}
	}
}

func TestListConversations(t *testing.T) {
	f := newFixture(t)

	conv, err := f.svc.StartConversation(f.helper.ID, f.task.ID, 0)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := f.svc.PostMessage(f.author.ID, core.ConversationScope(conv.ID), "Saturday works", ""); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	views, err := f.svc.ListConversations(f.helper.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d conversations, want 1", len(views))
	}
	view := views[0]
	if view.Task.ID != f.task.ID {
		t.Errorf("task = %d, want %d", view.Task.ID, f.task.ID)
	}
	if view.Author.ID != f.author.ID || view.Participant.ID != f.helper.ID {
		t.Errorf("profiles = %d/%d, want %d/%d", view.Author.ID, view.Participant.ID, f.author.ID, f.helper.ID)
	}
	if view.LastMessage == nil || view.LastMessage.Content != "Saturday works" {
		t.Errorf("lastMessage = %v, want the posted one", view.LastMessage)
	}

	// The outsider has none
	none, err := f.svc.ListConversations(f.outsider.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("outsider got %d conversations, want 0", len(none))
	}
}

// A conversation entry replaces the legacy entry for the same task in the
// merged inbox.
func TestListChatsMergesLegacyAndConversations(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.PostMessage(f.author.ID, core.TaskScope(f.task.ID), "anyone around?", ""); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if _, err := f.svc.PostMessage(f.helper.ID, core.TaskScope(f.task.ID), "me", ""); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	conv, err := f.svc.StartConversation(f.helper.ID, f.task.ID, 0)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := f.svc.PostMessage(f.helper.ID, core.ConversationScope(conv.ID), "moving here", ""); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	for _, user := range []*core.User{f.author, f.helper} {
		chats, err := f.svc.ListChats(user.ID)
		if err != nil {
			t.Fatalf("list chats for %s failed: %v", user.Username, err)
		}
		if len(chats) != 1 {
			t.Fatalf("%s got %d entries, want 1", user.Username, len(chats))
		}
		entry := chats[0]
		if entry.TaskID != f.task.ID {
			t.Errorf("%s entry task = %d, want %d", user.Username, entry.TaskID, f.task.ID)
		}
		if entry.ConversationID == nil || *entry.ConversationID != conv.ID {
			t.Errorf("%s entry not conversation-derived: %v", user.Username, entry.ConversationID)
		}
		if entry.LastMessage == nil || entry.LastMessage.Content != "moving here" {
			t.Errorf("%s lastMessage = %v, want the conversation one", user.Username, entry.LastMessage)
		}
		if entry.Counterpart == nil {
			t.Errorf("%s entry missing counterpart", user.Username)
		}
	}
}

func TestListChatsLegacyOnly(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.PostMessage(f.helper.ID, core.TaskScope(f.task.ID), "still available?", ""); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	chats, err := f.svc.ListChats(f.helper.ID)
	if err != nil {
		t.Fatalf("list chats failed: %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("got %d entries, want 1", len(chats))
	}
	if chats[0].ConversationID != nil {
		t.Errorf("legacy entry has conversationId %d", *chats[0].ConversationID)
	}
	if chats[0].LastMessage == nil || chats[0].LastMessage.Content != "still available?" {
		t.Errorf("lastMessage = %v", chats[0].LastMessage)
	}
}
