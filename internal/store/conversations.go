package store

import (
	"database/sql"
	"fmt"

	"neighborly/internal/core"

	"github.com/shopspring/decimal"
)

// UpsertConversation returns the conversation for the (task, author,
// participant) triple, inserting it if absent. The unique index makes the
// insert a no-op when the row already exists, closing the check-then-act
// race of separate lookup-then-insert calls.
func (s *Store) UpsertConversation(taskID, authorID, participantID int64) (*core.Conversation, error) {
	_, err := s.DB.Exec(`
		INSERT INTO conversations (task_id, author_id, participant_id)
		VALUES (?, ?, ?)
		ON CONFLICT(task_id, author_id, participant_id) DO NOTHING
	`, taskID, authorID, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}

	return s.getConversation(
		"SELECT id, task_id, author_id, participant_id, last_message_at, created_at FROM conversations WHERE task_id = ? AND author_id = ? AND participant_id = ?",
		taskID, authorID, participantID,
	)
}

// GetConversationByID retrieves a conversation by ID
func (s *Store) GetConversationByID(id int64) (*core.Conversation, error) {
	return s.getConversation(
		"SELECT id, task_id, author_id, participant_id, last_message_at, created_at FROM conversations WHERE id = ?",
		id,
	)
}

func (s *Store) getConversation(query string, args ...interface{}) (*core.Conversation, error) {
	conv := &core.Conversation{}
	var lastMessageAt sql.NullTime

	err := s.DB.QueryRow(query, args...).Scan(&conv.ID, &conv.TaskID, &conv.AuthorID,
		&conv.ParticipantID, &lastMessageAt, &conv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	if lastMessageAt.Valid {
		conv.LastMessageAt = &lastMessageAt.Time
	}
	return conv, nil
}

// GetConversationsByUserID retrieves every conversation where the user is
// author or participant, most recently active first
func (s *Store) GetConversationsByUserID(userID int64) ([]*core.Conversation, error) {
	rows, err := s.DB.Query(`
		SELECT id, task_id, author_id, participant_id, last_message_at, created_at
		FROM conversations
		WHERE author_id = ? OR participant_id = ?
		ORDER BY COALESCE(last_message_at, created_at) DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*core.Conversation
	for rows.Next() {
		conv := &core.Conversation{}
		var lastMessageAt sql.NullTime
		if err := rows.Scan(&conv.ID, &conv.TaskID, &conv.AuthorID, &conv.ParticipantID, &lastMessageAt, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if lastMessageAt.Valid {
			conv.LastMessageAt = &lastMessageAt.Time
		}
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}

// CreateMessage inserts a message in its scope and, for conversation-scoped
// messages, refreshes the conversation's last-message cache.
func (s *Store) CreateMessage(scope core.MessageScope, senderID int64, content string, messageType core.MessageType) (*core.Message, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin message insert: %w", err)
	}
	defer tx.Rollback()

	var result sql.Result
	switch scope.Kind {
	case core.ScopeTask:
		result, err = tx.Exec(
			"INSERT INTO messages (task_id, sender_id, content, message_type) VALUES (?, ?, ?, ?)",
			scope.ID, senderID, content, string(messageType),
		)
	case core.ScopeConversation:
		result, err = tx.Exec(
			"INSERT INTO messages (conversation_id, sender_id, content, message_type) VALUES (?, ?, ?, ?)",
			scope.ID, senderID, content, string(messageType),
		)
	default:
		return nil, fmt.Errorf("unknown message scope %q: %w", scope.Kind, core.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if scope.Kind == core.ScopeConversation {
		_, err = tx.Exec("UPDATE conversations SET last_message_at = CURRENT_TIMESTAMP WHERE id = ?", scope.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to touch conversation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message insert: %w", err)
	}

	return s.GetMessageByID(id)
}

const messageColumns = `
	m.id, m.task_id, m.conversation_id, m.sender_id, m.content, m.message_type, m.created_at,
	u.id, u.username, u.display_name, u.rating`

// scanMessage scans one message row joined with its sender's public profile
func scanMessage(row interface{ Scan(...interface{}) error }) (*core.Message, error) {
	msg := &core.Message{Sender: &core.Profile{}}
	var taskID, conversationID sql.NullInt64
	var messageType, rating string

	err := row.Scan(&msg.ID, &taskID, &conversationID, &msg.SenderID, &msg.Content, &messageType, &msg.CreatedAt,
		&msg.Sender.ID, &msg.Sender.Username, &msg.Sender.DisplayName, &rating)
	if err != nil {
		return nil, err
	}

	msg.Type = core.MessageType(messageType)
	if taskID.Valid {
		msg.Scope = core.TaskScope(taskID.Int64)
	} else {
		msg.Scope = core.ConversationScope(conversationID.Int64)
	}
	msg.Sender.Rating, err = decimal.NewFromString(rating)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sender rating: %w", err)
	}

	return msg, nil
}

// GetMessageByID retrieves a message by ID with its sender profile
func (s *Store) GetMessageByID(id int64) (*core.Message, error) {
	msg, err := scanMessage(s.DB.QueryRow(
		"SELECT "+messageColumns+" FROM messages m INNER JOIN users u ON u.id = m.sender_id WHERE m.id = ?",
		id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("message %d: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// GetMessagesByScope lists a scope's messages in creation order, each joined
// with the sender's public profile
func (s *Store) GetMessagesByScope(scope core.MessageScope) ([]*core.Message, error) {
	rows, err := s.DB.Query(
		"SELECT "+messageColumns+" FROM messages m INNER JOIN users u ON u.id = m.sender_id WHERE m."+scopeColumn(scope)+" = ? ORDER BY m.created_at, m.id",
		scope.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*core.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// GetLatestMessageByScope returns a scope's most recent message, or nil when
// the scope has none
func (s *Store) GetLatestMessageByScope(scope core.MessageScope) (*core.Message, error) {
	msg, err := scanMessage(s.DB.QueryRow(
		"SELECT "+messageColumns+" FROM messages m INNER JOIN users u ON u.id = m.sender_id WHERE m."+scopeColumn(scope)+" = ? ORDER BY m.created_at DESC, m.id DESC LIMIT 1",
		scope.ID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return msg, nil
}

func scopeColumn(scope core.MessageScope) string {
	if scope.Kind == core.ScopeTask {
		return "task_id"
	}
	return "conversation_id"
}

// GetLegacyChatTaskIDs returns the ids of tasks whose legacy task-scoped chat
// involves the user, either as the task's author or as a sender
func (s *Store) GetLegacyChatTaskIDs(userID int64) ([]int64, error) {
	rows, err := s.DB.Query(`
		SELECT DISTINCT m.task_id
		FROM messages m
		INNER JOIN tasks t ON t.id = m.task_id
		WHERE m.task_id IS NOT NULL AND (t.author_id = ? OR m.sender_id = ?)
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query legacy chats: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
