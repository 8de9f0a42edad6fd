package core

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store interface defines the methods required from the storage layer
type Store interface {
	// User operations
	CreateUser(username, displayName, passwordHash string) (*User, error)
	GetUserByID(id int64) (*User, error)
	GetUserByUsername(username string) (*User, error)
	GetUserByTelegramChatID(chatID int64) (*User, error)
	SetTelegramChatID(userID, chatID int64) error
	UpdateUserRating(userID int64, rating decimal.Decimal) error
	IncrementCompletionCounters(helperID, authorID int64) error

	// Community operations
	CreateCommunity(name, description, inviteCode string, creatorID int64) (*Community, error)
	GetCommunityByID(id int64) (*Community, error)
	ListCommunities() ([]*Community, error)
	GetCommunitiesByUserID(userID int64) ([]*Community, error)
	AddMember(userID, communityID int64) error
	IsMember(userID, communityID int64) (bool, error)
	ListMemberIDs(communityID int64) ([]int64, error)
	DeleteCommunityCascade(communityID int64) error

	// Task operations
	CreateTask(task *Task) (*Task, error)
	GetTaskByID(id int64) (*Task, error)
	GetActiveTasksByCommunityID(communityID int64) ([]*Task, error)
	UpdateTaskDetails(id int64, title, description, category string, reward decimal.Decimal, timeEstimate, location string) error
	AcceptTask(id, helperID int64) error
	SetTaskStatus(id int64, status TaskStatus) error

	// Transaction operations
	CreateTransaction(taskID, payerID, payeeID int64, amount decimal.Decimal) (*Transaction, error)
	GetTransactionByID(id int64) (*Transaction, error)
	GetTransactionByTaskID(taskID int64) (*Transaction, error)
	SetStartRequested(id int64, payer bool) (*Transaction, error)
	SetConfirmed(id int64, payer bool) (*Transaction, error)
	SetTransactionStatus(id int64, status TransactionStatus) error

	// Conversation and message operations
	UpsertConversation(taskID, authorID, participantID int64) (*Conversation, error)
	GetConversationByID(id int64) (*Conversation, error)
	GetConversationsByUserID(userID int64) ([]*Conversation, error)
	CreateMessage(scope MessageScope, senderID int64, content string, messageType MessageType) (*Message, error)
	GetMessagesByScope(scope MessageScope) ([]*Message, error)
	GetLatestMessageByScope(scope MessageScope) (*Message, error)
	GetLegacyChatTaskIDs(userID int64) ([]int64, error)

	// Rating operations
	CreateRating(rating *Rating) (*Rating, error)
	GetRatingByTaskAndRater(taskID, raterID int64) (*Rating, error)
	GetScoresByRatedID(ratedID int64) ([]int, error)
}

// Service provides business logic for the application
type Service struct {
	store  Store
	events Publisher
}

// NewService creates a new Service instance. events may be nil, in which
// case real-time publication is skipped.
func NewService(store Store, events Publisher) *Service {
	return &Service{
		store:  store,
		events: events,
	}
}

// publish fans an event out to recipients when a publisher is wired
func (s *Service) publish(recipients []int64, event interface{}) {
	if s.events != nil {
		s.events.Publish(recipients, event)
	}
}

// RegisterUser creates a new user account
func (s *Service) RegisterUser(username, displayName, passwordHash string) (*User, error) {
	if username == "" {
		return nil, Validationf("username cannot be empty")
	}
	if displayName == "" {
		displayName = username
	}
	return s.store.CreateUser(username, displayName, passwordHash)
}

// GetUserByID retrieves a user by ID
func (s *Service) GetUserByID(id int64) (*User, error) {
	return s.store.GetUserByID(id)
}

// GetUserByUsername retrieves a user by username
func (s *Service) GetUserByUsername(username string) (*User, error) {
	return s.store.GetUserByUsername(username)
}

// GetUserByTelegramChatID retrieves a user by linked Telegram chat
func (s *Service) GetUserByTelegramChatID(chatID int64) (*User, error) {
	return s.store.GetUserByTelegramChatID(chatID)
}

// LinkTelegramChat stores the Telegram chat id on a user account
func (s *Service) LinkTelegramChat(userID, chatID int64) error {
	return s.store.SetTelegramChatID(userID, chatID)
}

// CreateCommunity creates a new community and adds the creator as a member
func (s *Service) CreateCommunity(name, description string, creatorID int64) (*Community, error) {
	if name == "" {
		return nil, Validationf("community name cannot be empty")
	}

	community, err := s.store.CreateCommunity(name, description, uuid.NewString(), creatorID)
	if err != nil {
		return nil, err
	}

	// Creator auto-joins
	if err := s.store.AddMember(creatorID, community.ID); err != nil {
		return nil, err
	}

	return community, nil
}

// GetCommunityByID retrieves a community by ID
func (s *Service) GetCommunityByID(id int64) (*Community, error) {
	return s.store.GetCommunityByID(id)
}

// ListCommunities retrieves all communities
func (s *Service) ListCommunities() ([]*Community, error) {
	return s.store.ListCommunities()
}

// GetCommunitiesByUserID retrieves the communities a user belongs to
func (s *Service) GetCommunitiesByUserID(userID int64) ([]*Community, error) {
	return s.store.GetCommunitiesByUserID(userID)
}

// JoinCommunity adds a user to a community
func (s *Service) JoinCommunity(userID, communityID int64) (*Community, error) {
	community, err := s.store.GetCommunityByID(communityID)
	if err != nil {
		return nil, err
	}

	if err := s.store.AddMember(userID, community.ID); err != nil {
		return nil, err
	}

	return community, nil
}

// DeleteCommunity removes a community and all dependent records.
// Only the creator may delete.
func (s *Service) DeleteCommunity(actorID, communityID int64) error {
	community, err := s.store.GetCommunityByID(communityID)
	if err != nil {
		return err
	}

	if community.CreatorID != actorID {
		return Forbiddenf("only the creator can delete a community")
	}

	return s.store.DeleteCommunityCascade(communityID)
}

// requireMember fails with ErrForbidden unless the user belongs to the community
func (s *Service) requireMember(userID, communityID int64) error {
	isMember, err := s.store.IsMember(userID, communityID)
	if err != nil {
		return err
	}
	if !isMember {
		return Forbiddenf("not a member of community %d", communityID)
	}
	return nil
}
