package store

import (
	"database/sql"
	"fmt"

	"neighborly/internal/core"
)

// CreateCommunity creates a new community with an invite code
func (s *Store) CreateCommunity(name, description, inviteCode string, creatorID int64) (*core.Community, error) {
	result, err := s.DB.Exec(
		"INSERT INTO communities (name, description, invite_code, creator_id) VALUES (?, ?, ?, ?)",
		name, description, inviteCode, creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create community: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetCommunityByID(id)
}

// GetCommunityByID retrieves a community by ID
func (s *Store) GetCommunityByID(id int64) (*core.Community, error) {
	community := &core.Community{}

	err := s.DB.QueryRow(
		"SELECT id, name, description, invite_code, creator_id, created_at FROM communities WHERE id = ?",
		id,
	).Scan(&community.ID, &community.Name, &community.Description, &community.InviteCode, &community.CreatorID, &community.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("community %d: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get community: %w", err)
	}

	return community, nil
}

// ListCommunities retrieves all communities
func (s *Store) ListCommunities() ([]*core.Community, error) {
	rows, err := s.DB.Query("SELECT id, name, description, invite_code, creator_id, created_at FROM communities ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query communities: %w", err)
	}
	defer rows.Close()

	return scanCommunities(rows)
}

// GetCommunitiesByUserID retrieves all communities a user is a member of
func (s *Store) GetCommunitiesByUserID(userID int64) ([]*core.Community, error) {
	rows, err := s.DB.Query(`
		SELECT c.id, c.name, c.description, c.invite_code, c.creator_id, c.created_at
		FROM communities c
		INNER JOIN community_members cm ON c.id = cm.community_id
		WHERE cm.user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query communities: %w", err)
	}
	defer rows.Close()

	return scanCommunities(rows)
}

func scanCommunities(rows *sql.Rows) ([]*core.Community, error) {
	var communities []*core.Community
	for rows.Next() {
		community := &core.Community{}
		if err := rows.Scan(&community.ID, &community.Name, &community.Description, &community.InviteCode, &community.CreatorID, &community.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan community: %w", err)
		}
		communities = append(communities, community)
	}
	return communities, rows.Err()
}

// AddMember adds a user to a community
func (s *Store) AddMember(userID, communityID int64) error {
	_, err := s.DB.Exec(
		"INSERT INTO community_members (user_id, community_id) VALUES (?, ?)",
		userID, communityID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("already a member: %w", core.ErrConflict)
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// IsMember checks if a user is a member of a community
func (s *Store) IsMember(userID, communityID int64) (bool, error) {
	var count int
	err := s.DB.QueryRow(
		"SELECT COUNT(*) FROM community_members WHERE user_id = ? AND community_id = ?",
		userID, communityID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return count > 0, nil
}

// ListMemberIDs retrieves the user ids of all members of a community
func (s *Store) ListMemberIDs(communityID int64) ([]int64, error) {
	rows, err := s.DB.Query("SELECT user_id FROM community_members WHERE community_id = ?", communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteCommunityCascade removes a community and everything under it in one
// transaction, children before parents: memberships, then per-task messages,
// conversations, transactions and ratings, then tasks, then the community.
func (s *Store) DeleteCommunityCascade(communityID int64) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cascade: %w", err)
	}
	defer tx.Rollback()

	taskFilter := "(SELECT id FROM tasks WHERE community_id = ?)"

	steps := []string{
		"DELETE FROM community_members WHERE community_id = ?",
		"DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE task_id IN " + taskFilter + ")",
		"DELETE FROM messages WHERE task_id IN " + taskFilter,
		"DELETE FROM conversations WHERE task_id IN " + taskFilter,
		"DELETE FROM transactions WHERE task_id IN " + taskFilter,
		"DELETE FROM ratings WHERE task_id IN " + taskFilter,
		"DELETE FROM tasks WHERE community_id = ?",
		"DELETE FROM communities WHERE id = ?",
	}

	for _, step := range steps {
		if _, err := tx.Exec(step, communityID); err != nil {
			return fmt.Errorf("failed cascade step: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cascade: %w", err)
	}
	return nil
}
