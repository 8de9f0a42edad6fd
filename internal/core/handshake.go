package core

import "errors"

// CreateTransactionForTask opens the escrow-handshake record for an accepted
// task: payer is the author, payee the helper, amount copied from the reward.
// If a non-cancelled transaction already exists it is returned instead of
// inserting a duplicate.
func (s *Service) CreateTransactionForTask(actorID, taskID int64) (*Transaction, error) {
	task, err := s.store.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}

	if task.HelperID == nil {
		return nil, InvalidStatef("task has no helper yet")
	}
	if actorID != task.AuthorID && actorID != *task.HelperID {
		return nil, Forbiddenf("only the task parties can open a transaction")
	}

	existing, err := s.store.GetTransactionByTaskID(taskID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status != TransactionCancelled {
		return existing, nil
	}

	return s.store.CreateTransaction(taskID, task.AuthorID, *task.HelperID, task.Reward)
}

// GetTransactionForTask retrieves a task's transaction for one of its parties
func (s *Service) GetTransactionForTask(actorID, taskID int64) (*Transaction, error) {
	transaction, err := s.store.GetTransactionByTaskID(taskID)
	if err != nil {
		return nil, err
	}

	if !transaction.Party(actorID) {
		return nil, Forbiddenf("not a party to this transaction")
	}

	return transaction, nil
}

// RequestStart raises the actor's start-request flag. When the other party
// has already requested, the transaction (and its task) move to in_progress.
// Either way a transaction_start_request event is broadcast to both parties,
// naming the counterpart and whether both sides have now requested.
func (s *Service) RequestStart(actorID, transactionID int64) (*Transaction, error) {
	transaction, err := s.store.GetTransactionByID(transactionID)
	if err != nil {
		return nil, err
	}

	if !transaction.Party(actorID) {
		return nil, Forbiddenf("not a party to this transaction")
	}
	if transaction.Status == TransactionCancelled || transaction.Status == TransactionCompleted {
		return nil, InvalidStatef("transaction is already %s", transaction.Status)
	}

	transaction, err = s.store.SetStartRequested(transactionID, actorID == transaction.PayerID)
	if err != nil {
		return nil, err
	}

	if transaction.Status == TransactionInProgress {
		if err := s.store.SetTaskStatus(transaction.TaskID, TaskStatusInProgress); err != nil {
			return nil, err
		}
	}

	bothRequested := transaction.PayerStartRequested && transaction.PayeeStartRequested
	s.publish([]int64{transaction.PayerID, transaction.PayeeID}, TransactionStartRequestEvent{
		Type:          EventTransactionStartRequest,
		TaskID:        transaction.TaskID,
		TransactionID: transaction.ID,
		FromUserID:    actorID,
		ToUserID:      transaction.Counterpart(actorID),
		BothRequested: bothRequested,
	})

	return transaction, nil
}

// ConfirmCompletion raises the actor's completion-confirmation flag. Once
// both parties have confirmed, the transaction completes and the completion
// timestamp is stamped. No event is broadcast for this transition.
func (s *Service) ConfirmCompletion(actorID, transactionID int64) (*Transaction, error) {
	transaction, err := s.store.GetTransactionByID(transactionID)
	if err != nil {
		return nil, err
	}

	if !transaction.Party(actorID) {
		return nil, Forbiddenf("not a party to this transaction")
	}
	if transaction.Status == TransactionCancelled {
		return nil, InvalidStatef("transaction is cancelled")
	}
	if transaction.Status == TransactionCompleted {
		// Flags are frozen once completed
		return transaction, nil
	}

	return s.store.SetConfirmed(transactionID, actorID == transaction.PayerID)
}

// CancelTransaction overwrites the status to cancelled. Either party may
// cancel at any point before completion; flags are left as-is.
func (s *Service) CancelTransaction(actorID, transactionID int64) (*Transaction, error) {
	transaction, err := s.store.GetTransactionByID(transactionID)
	if err != nil {
		return nil, err
	}

	if !transaction.Party(actorID) {
		return nil, Forbiddenf("not a party to this transaction")
	}
	if transaction.Status == TransactionCompleted {
		return nil, InvalidStatef("transaction is already completed")
	}

	if err := s.store.SetTransactionStatus(transactionID, TransactionCancelled); err != nil {
		return nil, err
	}

	return s.store.GetTransactionByID(transactionID)
}
