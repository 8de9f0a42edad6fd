package store

import (
	"database/sql"
	"fmt"

	"neighborly/internal/core"

	"github.com/shopspring/decimal"
)

const userColumns = "id, username, display_name, password_hash, telegram_chat_id, rating, completed_tasks, help_given, help_received, created_at"

// scanUser scans one user row from a QueryRow/rows source
func scanUser(row interface{ Scan(...interface{}) error }) (*core.User, error) {
	user := &core.User{}
	var chatID sql.NullInt64
	var rating string

	err := row.Scan(&user.ID, &user.Username, &user.DisplayName, &user.PasswordHash, &chatID,
		&rating, &user.CompletedTasks, &user.HelpGiven, &user.HelpReceived, &user.CreatedAt)
	if err != nil {
		return nil, err
	}

	if chatID.Valid {
		user.TelegramChatID = &chatID.Int64
	}
	user.Rating, err = decimal.NewFromString(rating)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rating: %w", err)
	}

	return user, nil
}

// CreateUser creates a new user
func (s *Store) CreateUser(username, displayName, passwordHash string) (*core.User, error) {
	result, err := s.DB.Exec(
		"INSERT INTO users (username, display_name, password_hash) VALUES (?, ?, ?)",
		username, displayName, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %q taken: %w", username, core.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetUserByID(id)
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(id int64) (*core.User, error) {
	user, err := scanUser(s.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(username string) (*core.User, error) {
	user, err := scanUser(s.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByTelegramChatID retrieves a user by linked Telegram chat
func (s *Store) GetUserByTelegramChatID(chatID int64) (*core.User, error) {
	user, err := scanUser(s.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE telegram_chat_id = ?", chatID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("telegram chat %d: %w", chatID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetTelegramChatID links a Telegram chat to a user account
func (s *Store) SetTelegramChatID(userID, chatID int64) error {
	_, err := s.DB.Exec("UPDATE users SET telegram_chat_id = ? WHERE id = ?", chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to set telegram chat id: %w", err)
	}
	return nil
}

// UpdateUserRating stores a recomputed rating average
func (s *Store) UpdateUserRating(userID int64, rating decimal.Decimal) error {
	_, err := s.DB.Exec("UPDATE users SET rating = ? WHERE id = ?", rating.String(), userID)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	return nil
}

// IncrementCompletionCounters bumps the aggregate counters when a task
// completes: the helper gains a completed task and a help-given credit,
// the author a help-received credit.
func (s *Store) IncrementCompletionCounters(helperID, authorID int64) error {
	_, err := s.DB.Exec(
		"UPDATE users SET completed_tasks = completed_tasks + 1, help_given = help_given + 1 WHERE id = ?",
		helperID,
	)
	if err != nil {
		return fmt.Errorf("failed to update helper counters: %w", err)
	}

	_, err = s.DB.Exec("UPDATE users SET help_received = help_received + 1 WHERE id = ?", authorID)
	if err != nil {
		return fmt.Errorf("failed to update author counters: %w", err)
	}

	return nil
}
