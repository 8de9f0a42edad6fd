package core

import "sort"

// StartConversation resolves or creates the 1:1 conversation between a
// task's author and a counterpart. When the actor is the author, the
// counterpart must be named; otherwise the actor becomes the participant.
func (s *Service) StartConversation(actorID, taskID, participantID int64) (*Conversation, error) {
	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}

	participant := actorID
	if actorID == task.AuthorID {
		if participantID == 0 {
			return nil, Validationf("participant required")
		}
		participant = participantID
	}
	if participant == task.AuthorID {
		return nil, Validationf("cannot start a conversation with yourself")
	}

	if err := s.requireMember(participant, task.CommunityID); err != nil {
		return nil, err
	}

	return s.store.UpsertConversation(task.ID, task.AuthorID, participant)
}

// ListConversations returns every conversation the user takes part in, each
// enriched with its task, both parties' profiles and the most recent message.
// One query fan-out per conversation; fine at neighborhood scale.
func (s *Service) ListConversations(userID int64) ([]*ConversationView, error) {
	conversations, err := s.store.GetConversationsByUserID(userID)
	if err != nil {
		return nil, err
	}

	views := make([]*ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		view, err := s.buildConversationView(conv)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	return views, nil
}

func (s *Service) buildConversationView(conv *Conversation) (*ConversationView, error) {
	task, err := s.store.GetTaskByID(conv.TaskID)
	if err != nil {
		return nil, err
	}
	author, err := s.store.GetUserByID(conv.AuthorID)
	if err != nil {
		return nil, err
	}
	participant, err := s.store.GetUserByID(conv.ParticipantID)
	if err != nil {
		return nil, err
	}
	lastMessage, err := s.store.GetLatestMessageByScope(ConversationScope(conv.ID))
	if err != nil {
		return nil, err
	}

	return &ConversationView{
		Conversation: conv,
		Task:         task,
		Author:       author.Profile(),
		Participant:  participant.Profile(),
		LastMessage:  lastMessage,
	}, nil
}

// authorizeScope checks that the actor may read or post in the scope:
// conversation parties for conversation scope, community members for the
// legacy task scope.
func (s *Service) authorizeScope(actorID int64, scope MessageScope) error {
	switch scope.Kind {
	case ScopeConversation:
		conv, err := s.store.GetConversationByID(scope.ID)
		if err != nil {
			return err
		}
		if actorID != conv.AuthorID && actorID != conv.ParticipantID {
			return Forbiddenf("not a participant of this conversation")
		}
		return nil
	case ScopeTask:
		task, err := s.store.GetTaskByID(scope.ID)
		if err != nil {
			return err
		}
		return s.requireMember(actorID, task.CommunityID)
	default:
		return Validationf("unknown message scope %q", scope.Kind)
	}
}

// scopeRecipients resolves who a scope's events are delivered to
func (s *Service) scopeRecipients(scope MessageScope) ([]int64, error) {
	switch scope.Kind {
	case ScopeConversation:
		conv, err := s.store.GetConversationByID(scope.ID)
		if err != nil {
			return nil, err
		}
		return []int64{conv.AuthorID, conv.ParticipantID}, nil
	default:
		task, err := s.store.GetTaskByID(scope.ID)
		if err != nil {
			return nil, err
		}
		return s.store.ListMemberIDs(task.CommunityID)
	}
}

// PostMessage stores a message in its scope and broadcasts a new_message
// event to the scope's recipients
func (s *Service) PostMessage(actorID int64, scope MessageScope, content string, messageType MessageType) (*Message, error) {
	if content == "" {
		return nil, Validationf("message content cannot be empty")
	}
	if messageType == "" {
		messageType = MessageTypeText
	}
	if messageType != MessageTypeText && messageType != MessageTypeSystem {
		return nil, Validationf("invalid message type %q", messageType)
	}

	if err := s.authorizeScope(actorID, scope); err != nil {
		return nil, err
	}

	message, err := s.store.CreateMessage(scope, actorID, content, messageType)
	if err != nil {
		return nil, err
	}

	recipients, err := s.scopeRecipients(scope)
	if err != nil {
		return nil, err
	}

	event := NewMessageEvent{Type: EventNewMessage, Message: message}
	if scope.Kind == ScopeTask {
		event.TaskID = &scope.ID
	} else {
		event.ConversationID = &scope.ID
	}
	s.publish(recipients, event)

	return message, nil
}

// ListMessages returns a scope's messages in creation order
func (s *Service) ListMessages(actorID int64, scope MessageScope) ([]*Message, error) {
	if err := s.authorizeScope(actorID, scope); err != nil {
		return nil, err
	}
	return s.store.GetMessagesByScope(scope)
}

// ListChats builds the unified inbox: tasks with legacy task-scoped messages
// and conversations, keyed by task id, with conversation-derived entries
// overwriting legacy ones on collision.
func (s *Service) ListChats(userID int64) ([]*ChatEntry, error) {
	entries := make(map[int64]*ChatEntry)

	legacyTaskIDs, err := s.store.GetLegacyChatTaskIDs(userID)
	if err != nil {
		return nil, err
	}
	for _, taskID := range legacyTaskIDs {
		task, err := s.store.GetTaskByID(taskID)
		if err != nil {
			return nil, err
		}
		lastMessage, err := s.store.GetLatestMessageByScope(TaskScope(taskID))
		if err != nil {
			return nil, err
		}
		entries[taskID] = &ChatEntry{
			TaskID:      taskID,
			Task:        task,
			LastMessage: lastMessage,
		}
	}

	conversations, err := s.store.GetConversationsByUserID(userID)
	if err != nil {
		return nil, err
	}
	for _, conv := range conversations {
		view, err := s.buildConversationView(conv)
		if err != nil {
			return nil, err
		}
		counterpart := view.Participant
		if userID == conv.ParticipantID {
			counterpart = view.Author
		}
		convID := conv.ID
		entries[conv.TaskID] = &ChatEntry{
			TaskID:         conv.TaskID,
			ConversationID: &convID,
			Task:           view.Task,
			Counterpart:    counterpart,
			LastMessage:    view.LastMessage,
		}
	}

	list := make([]*ChatEntry, 0, len(entries))
	for _, entry := range entries {
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].LastMessage, list[j].LastMessage
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})

	return list, nil
}
