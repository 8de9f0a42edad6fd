package web

import (
	"net/http"

	"neighborly/internal/core"
)

// handleListCommunities lists all communities
func (s *Server) handleListCommunities(w http.ResponseWriter, r *http.Request) {
	communities, err := s.service.ListCommunities()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, communities)
}

// handleCreateCommunity creates a community; the creator auto-joins
func (s *Server) handleCreateCommunity(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	community, err := s.service.CreateCommunity(req.Name, req.Description, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, community)
}

// handleJoinCommunity adds the caller to a community
func (s *Server) handleJoinCommunity(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	communityID, err := urlID(r, "communityID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	community, err := s.service.JoinCommunity(userID, communityID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, community)
}

// handleDeleteCommunity deletes a community and everything under it
func (s *Server) handleDeleteCommunity(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	communityID, err := urlID(r, "communityID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := s.service.DeleteCommunity(userID, communityID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// handleUserCommunities lists the caller's communities
func (s *Server) handleUserCommunities(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	communities, err := s.service.GetCommunitiesByUserID(userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, communities)
}

// handleListCommunityTasks lists a community's active tasks (member-only)
func (s *Server) handleListCommunityTasks(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	communityID, err := urlID(r, "communityID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	tasks, err := s.service.ListCommunityTasks(userID, communityID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// handleCreateTask posts a new task
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	var in core.TaskInput
	if err := decodeBody(r, &in); err != nil {
		respondServiceError(w, err)
		return
	}

	task, err := s.service.CreateTask(userID, in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// handleGetTask retrieves one task
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	taskID, err := urlID(r, "taskID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	task, err := s.service.GetTask(userID, taskID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// handleUpdateTask applies an edit or accept patch
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	taskID, err := urlID(r, "taskID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var patch core.TaskPatch
	if err := decodeBody(r, &patch); err != nil {
		respondServiceError(w, err)
		return
	}

	task, err := s.service.UpdateTask(userID, taskID, patch)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// handleCancelTask cancels a task (author-only, open/accepted only)
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	taskID, err := urlID(r, "taskID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	task, err := s.service.CancelTask(userID, taskID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// handleCompleteTask marks a task completed (author-only)
func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	taskID, err := urlID(r, "taskID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	task, err := s.service.CompleteTask(userID, taskID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// handleListConversations lists the caller's conversations with task,
// profiles and last message
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	views, err := s.service.ListConversations(userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

// handleStartConversation resolves or creates the conversation for a task
func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	var req struct {
		TaskID        int64 `json:"taskId"`
		ParticipantID int64 `json:"participantId"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	conversation, err := s.service.StartConversation(userID, req.TaskID, req.ParticipantID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, conversation)
}

type postMessageRequest struct {
	Content     string           `json:"content"`
	MessageType core.MessageType `json:"messageType"`
}

// handleListConversationMessages lists a conversation's messages
func (s *Server) handleListConversationMessages(w http.ResponseWriter, r *http.Request) {
	s.listMessages(w, r, "conversationID", core.ConversationScope)
}

// handlePostConversationMessage posts into a conversation
func (s *Server) handlePostConversationMessage(w http.ResponseWriter, r *http.Request) {
	s.postMessage(w, r, "conversationID", core.ConversationScope)
}

// handleListTaskMessages lists a task's legacy chat
func (s *Server) handleListTaskMessages(w http.ResponseWriter, r *http.Request) {
	s.listMessages(w, r, "taskID", core.TaskScope)
}

// handlePostTaskMessage posts into a task's legacy chat
func (s *Server) handlePostTaskMessage(w http.ResponseWriter, r *http.Request) {
	s.postMessage(w, r, "taskID", core.TaskScope)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request, param string, scope func(int64) core.MessageScope) {
	userID, _ := s.getUserID(r)
	id, err := urlID(r, param)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	messages, err := s.service.ListMessages(userID, scope(id))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request, param string, scope func(int64) core.MessageScope) {
	userID, _ := s.getUserID(r)
	id, err := urlID(r, param)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var req postMessageRequest
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	message, err := s.service.PostMessage(userID, scope(id), req.Content, req.MessageType)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, message)
}

// handleListChats returns the merged legacy+conversation inbox
func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	chats, err := s.service.ListChats(userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chats)
}

// handleGetTransaction retrieves a task's transaction
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	taskID, err := urlID(r, "taskID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	transaction, err := s.service.GetTransactionForTask(userID, taskID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transaction)
}

// handleCreateTransaction opens the handshake record for a task
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	taskID, err := urlID(r, "taskID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	transaction, err := s.service.CreateTransactionForTask(userID, taskID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, transaction)
}

// handleRequestStart raises the caller's start-request flag
func (s *Server) handleRequestStart(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	transactionID, err := urlID(r, "transactionID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	transaction, err := s.service.RequestStart(userID, transactionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transaction)
}

// handleConfirm raises the caller's completion-confirmation flag
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	transactionID, err := urlID(r, "transactionID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	transaction, err := s.service.ConfirmCompletion(userID, transactionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transaction)
}

// handlePatchTransaction accepts the status-patch cancel the client issues
func (s *Server) handlePatchTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	transactionID, err := urlID(r, "transactionID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var req struct {
		Status core.TransactionStatus `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}
	if req.Status != core.TransactionCancelled {
		respondError(w, http.StatusBadRequest, "only cancellation can be patched directly")
		return
	}

	transaction, err := s.service.CancelTransaction(userID, transactionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transaction)
}

// handleSubmitRating records a rating for a completed task
func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	var req struct {
		TaskID  int64  `json:"taskId"`
		Score   int    `json:"score"`
		Comment string `json:"comment"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	rating, err := s.service.SubmitRating(userID, req.TaskID, req.Score, req.Comment)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rating)
}

// handleGetTaskRating returns the caller's rating for a task, if submitted
func (s *Server) handleGetTaskRating(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)
	taskID, err := urlID(r, "taskID")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	rating, err := s.service.GetTaskRating(userID, taskID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rating)
}
