package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user in the system, including the aggregates
// maintained by the rating and task lifecycle logic.
type User struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	DisplayName    string          `json:"displayName"`
	PasswordHash   string          `json:"-"`
	TelegramChatID *int64          `json:"-"`      // Nullable; set once the Telegram bot is linked
	Rating         decimal.Decimal `json:"rating"` // Running average, 2 decimal places
	CompletedTasks int             `json:"completedTasks"`
	HelpGiven      int             `json:"helpGiven"`
	HelpReceived   int             `json:"helpReceived"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Profile is the public subset of a user attached to messages and conversations.
type Profile struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	DisplayName string          `json:"displayName"`
	Rating      decimal.Decimal `json:"rating"`
}

// Profile returns the public view of a user.
func (u *User) Profile() *Profile {
	return &Profile{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, Rating: u.Rating}
}

// Community represents a verified local community
type Community struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	InviteCode  string    `json:"inviteCode"`
	CreatorID   int64     `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Membership represents a user's membership in a community
type Membership struct {
	UserID      int64     `json:"userId"`
	CommunityID int64     `json:"communityId"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusAccepted   TaskStatus = "accepted"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether no further transitions are legal from the status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// Task represents a paid help request posted in a community
type Task struct {
	ID           int64           `json:"id"`
	CommunityID  int64           `json:"communityId"`
	AuthorID     int64           `json:"authorId"`
	HelperID     *int64          `json:"helperId"` // Nullable; set exactly once on accept
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Reward       decimal.Decimal `json:"reward"`
	TimeEstimate string          `json:"timeEstimate"`
	Location     string          `json:"location"`
	Status       TaskStatus      `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// TransactionStatus is the derived state of the two-party handshake
type TransactionStatus string

const (
	TransactionPending        TransactionStatus = "pending"
	TransactionStartRequested TransactionStatus = "start_requested"
	TransactionInProgress     TransactionStatus = "in_progress"
	TransactionCompleted      TransactionStatus = "completed"
	TransactionCancelled      TransactionStatus = "cancelled"
)

// Transaction represents the escrow-handshake record for a task.
// Status is a projection of the four flags plus explicit cancellation,
// recomputed by DeriveStatus on every flag write.
type Transaction struct {
	ID                  int64             `json:"id"`
	TaskID              int64             `json:"taskId"`
	PayerID             int64             `json:"payerId"` // Task author
	PayeeID             int64             `json:"payeeId"` // Task helper
	Amount              decimal.Decimal   `json:"amount"`
	Status              TransactionStatus `json:"status"`
	PayerStartRequested bool              `json:"payerStartRequested"`
	PayeeStartRequested bool              `json:"payeeStartRequested"`
	PayerConfirmed      bool              `json:"payerConfirmed"`
	PayeeConfirmed      bool              `json:"payeeConfirmed"`
	CompletedAt         *time.Time        `json:"completedAt"`
	CreatedAt           time.Time         `json:"createdAt"`
}

// Party reports whether userID is a party to the transaction.
func (t *Transaction) Party(userID int64) bool {
	return userID == t.PayerID || userID == t.PayeeID
}

// Counterpart returns the other party's user id.
func (t *Transaction) Counterpart(userID int64) int64 {
	if userID == t.PayerID {
		return t.PayeeID
	}
	return t.PayerID
}

// DeriveStatus computes the transaction status from the handshake flags.
// Explicit cancellation always wins; completion is checked before the start
// handshake so a fully confirmed transaction stays completed.
func DeriveStatus(payerStart, payeeStart, payerConfirm, payeeConfirm, cancelled bool) TransactionStatus {
	switch {
	case cancelled:
		return TransactionCancelled
	case payerConfirm && payeeConfirm:
		return TransactionCompleted
	case payerStart && payeeStart:
		return TransactionInProgress
	case payerStart || payeeStart:
		return TransactionStartRequested
	default:
		return TransactionPending
	}
}

// Conversation is a 1:1 channel between a task's author and one counterpart
type Conversation struct {
	ID            int64      `json:"id"`
	TaskID        int64      `json:"taskId"`
	AuthorID      int64      `json:"authorId"`
	ParticipantID int64      `json:"participantId"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// MessageType distinguishes user text from system notices
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

// ScopeKind names the two message scoping modes
type ScopeKind string

const (
	ScopeTask         ScopeKind = "task"         // Legacy task-scoped chat
	ScopeConversation ScopeKind = "conversation" // Current 1:1 mode
)

// MessageScope is a tagged variant: a message belongs to exactly one of a
// task (legacy mode) or a conversation.
type MessageScope struct {
	Kind ScopeKind
	ID   int64
}

// TaskScope scopes a message to a task's legacy chat.
func TaskScope(taskID int64) MessageScope {
	return MessageScope{Kind: ScopeTask, ID: taskID}
}

// ConversationScope scopes a message to a conversation.
func ConversationScope(conversationID int64) MessageScope {
	return MessageScope{Kind: ScopeConversation, ID: conversationID}
}

// Message is an immutable chat entry
type Message struct {
	ID        int64        `json:"id"`
	Scope     MessageScope `json:"-"`
	SenderID  int64        `json:"senderId"`
	Content   string       `json:"content"`
	Type      MessageType  `json:"messageType"`
	CreatedAt time.Time    `json:"createdAt"`
	Sender    *Profile     `json:"sender,omitempty"` // Joined sender profile on reads
}

// Rating is a directed feedback record for a completed task
type Rating struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"taskId"`
	RaterID   int64     `json:"raterId"`
	RatedID   int64     `json:"ratedId"`
	Score     int       `json:"score"` // 1-5
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationView is a conversation enriched for the inbox listing
type ConversationView struct {
	Conversation *Conversation `json:"conversation"`
	Task         *Task         `json:"task"`
	Author       *Profile      `json:"author"`
	Participant  *Profile      `json:"participant"`
	LastMessage  *Message      `json:"lastMessage"`
}

// ChatEntry is one row of the merged legacy+conversation inbox, keyed by task
type ChatEntry struct {
	TaskID         int64    `json:"taskId"`
	ConversationID *int64   `json:"conversationId"` // Nil for legacy task-scoped entries
	Task           *Task    `json:"task"`
	Counterpart    *Profile `json:"counterpart,omitempty"`
	LastMessage    *Message `json:"lastMessage"`
}
