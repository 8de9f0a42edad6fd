package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the database connection
type Store struct {
	DB *sql.DB
}

// NewStore creates a new Store and initializes the database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{DB: db}

	// Run migrations
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates all necessary tables
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		rating TEXT NOT NULL DEFAULT '0',
		completed_tasks INTEGER NOT NULL DEFAULT 0,
		help_given INTEGER NOT NULL DEFAULT 0,
		help_received INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS communities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		invite_code TEXT UNIQUE NOT NULL,
		creator_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(creator_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS community_members (
		user_id INTEGER,
		community_id INTEGER,
		joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, community_id),
		FOREIGN KEY(user_id) REFERENCES users(id),
		FOREIGN KEY(community_id) REFERENCES communities(id)
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		community_id INTEGER NOT NULL,
		author_id INTEGER NOT NULL,
		helper_id INTEGER,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT,
		reward TEXT NOT NULL,
		time_estimate TEXT,
		location TEXT,
		status TEXT NOT NULL CHECK(status IN ('open', 'accepted', 'in_progress', 'completed', 'cancelled')) DEFAULT 'open',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(community_id) REFERENCES communities(id),
		FOREIGN KEY(author_id) REFERENCES users(id),
		FOREIGN KEY(helper_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL,
		payer_id INTEGER NOT NULL,
		payee_id INTEGER NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('pending', 'start_requested', 'in_progress', 'completed', 'cancelled')) DEFAULT 'pending',
		payer_start_requested BOOLEAN NOT NULL DEFAULT 0,
		payee_start_requested BOOLEAN NOT NULL DEFAULT 0,
		payer_confirmed BOOLEAN NOT NULL DEFAULT 0,
		payee_confirmed BOOLEAN NOT NULL DEFAULT 0,
		completed_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(task_id) REFERENCES tasks(id),
		FOREIGN KEY(payer_id) REFERENCES users(id),
		FOREIGN KEY(payee_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL,
		author_id INTEGER NOT NULL,
		participant_id INTEGER NOT NULL,
		last_message_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(task_id, author_id, participant_id),
		FOREIGN KEY(task_id) REFERENCES tasks(id),
		FOREIGN KEY(author_id) REFERENCES users(id),
		FOREIGN KEY(participant_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER,
		conversation_id INTEGER,
		sender_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		message_type TEXT NOT NULL CHECK(message_type IN ('text', 'system')) DEFAULT 'text',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		CHECK ((task_id IS NULL) + (conversation_id IS NULL) = 1),
		FOREIGN KEY(task_id) REFERENCES tasks(id),
		FOREIGN KEY(conversation_id) REFERENCES conversations(id),
		FOREIGN KEY(sender_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS ratings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL,
		rater_id INTEGER NOT NULL,
		rated_id INTEGER NOT NULL,
		score INTEGER NOT NULL CHECK(score BETWEEN 1 AND 5),
		comment TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(task_id, rater_id),
		FOREIGN KEY(task_id) REFERENCES tasks(id),
		FOREIGN KEY(rater_id) REFERENCES users(id),
		FOREIGN KEY(rated_id) REFERENCES users(id)
	);
	`

	_, err := s.DB.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	// Run migrations for existing databases
	if err := s.migrateTelegramChatID(); err != nil {
		return fmt.Errorf("failed to migrate telegram_chat_id column: %w", err)
	}

	if err := s.migrateMessageIndexes(); err != nil {
		return fmt.Errorf("failed to migrate message indexes: %w", err)
	}

	return nil
}

// migrateTelegramChatID adds telegram_chat_id column to users table if it doesn't exist
func (s *Store) migrateTelegramChatID() error {
	_, err := s.DB.Exec(`ALTER TABLE users ADD COLUMN telegram_chat_id INTEGER`)
	if err != nil && err.Error() != "duplicate column name: telegram_chat_id" {
		return err
	}
	return nil
}

// migrateMessageIndexes creates lookup indexes for message listing queries
func (s *Store) migrateMessageIndexes() error {
	indexes := `
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_task ON messages(task_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_task ON transactions(task_id);
	`

	_, err := s.DB.Exec(indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.DB.Close()
}
