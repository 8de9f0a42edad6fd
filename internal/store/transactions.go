package store

import (
	"database/sql"
	"fmt"
	"time"

	"neighborly/internal/core"

	"github.com/shopspring/decimal"
)

const transactionColumns = "id, task_id, payer_id, payee_id, amount, status, payer_start_requested, payee_start_requested, payer_confirmed, payee_confirmed, completed_at, created_at"

// scanTransaction scans one transaction row
func scanTransaction(row interface{ Scan(...interface{}) error }) (*core.Transaction, error) {
	tr := &core.Transaction{}
	var amount, status string
	var completedAt sql.NullTime

	err := row.Scan(&tr.ID, &tr.TaskID, &tr.PayerID, &tr.PayeeID, &amount, &status,
		&tr.PayerStartRequested, &tr.PayeeStartRequested, &tr.PayerConfirmed, &tr.PayeeConfirmed,
		&completedAt, &tr.CreatedAt)
	if err != nil {
		return nil, err
	}

	tr.Status = core.TransactionStatus(status)
	if completedAt.Valid {
		tr.CompletedAt = &completedAt.Time
	}
	tr.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}

	return tr, nil
}

// CreateTransaction creates a new escrow-handshake record for a task
func (s *Store) CreateTransaction(taskID, payerID, payeeID int64, amount decimal.Decimal) (*core.Transaction, error) {
	result, err := s.DB.Exec(
		"INSERT INTO transactions (task_id, payer_id, payee_id, amount) VALUES (?, ?, ?, ?)",
		taskID, payerID, payeeID, amount.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetTransactionByID(id)
}

// GetTransactionByID retrieves a transaction by ID
func (s *Store) GetTransactionByID(id int64) (*core.Transaction, error) {
	tr, err := scanTransaction(s.DB.QueryRow("SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tr, nil
}

// GetTransactionByTaskID retrieves the most recent transaction for a task
func (s *Store) GetTransactionByTaskID(taskID int64) (*core.Transaction, error) {
	tr, err := scanTransaction(s.DB.QueryRow(
		"SELECT "+transactionColumns+" FROM transactions WHERE task_id = ? ORDER BY id DESC LIMIT 1",
		taskID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("transaction for task %d: %w", taskID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tr, nil
}

// SetStartRequested marks one party's start-request flag inside a single
// read-modify-write: the row is re-read in the same database transaction
// before the status is recomputed, so a concurrent flag write from the other
// party is observed rather than clobbered.
func (s *Store) SetStartRequested(id int64, payer bool) (*core.Transaction, error) {
	return s.updateHandshake(id, func(tr *core.Transaction) {
		if payer {
			tr.PayerStartRequested = true
		} else {
			tr.PayeeStartRequested = true
		}
	})
}

// SetConfirmed marks one party's completion-confirmation flag, stamping
// completed_at when the second confirmation lands.
func (s *Store) SetConfirmed(id int64, payer bool) (*core.Transaction, error) {
	return s.updateHandshake(id, func(tr *core.Transaction) {
		if payer {
			tr.PayerConfirmed = true
		} else {
			tr.PayeeConfirmed = true
		}
	})
}

// updateHandshake applies a flag mutation and recomputes the derived status
// atomically. Flags are only ever raised, never reset.
func (s *Store) updateHandshake(id int64, mutate func(*core.Transaction)) (*core.Transaction, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin handshake update: %w", err)
	}
	defer tx.Rollback()

	tr, err := scanTransaction(tx.QueryRow("SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read transaction: %w", err)
	}

	mutate(tr)

	cancelled := tr.Status == core.TransactionCancelled
	tr.Status = core.DeriveStatus(tr.PayerStartRequested, tr.PayeeStartRequested,
		tr.PayerConfirmed, tr.PayeeConfirmed, cancelled)

	if tr.Status == core.TransactionCompleted && tr.CompletedAt == nil {
		now := time.Now().UTC()
		tr.CompletedAt = &now
	}

	_, err = tx.Exec(`
		UPDATE transactions
		SET payer_start_requested = ?, payee_start_requested = ?, payer_confirmed = ?, payee_confirmed = ?, status = ?, completed_at = ?
		WHERE id = ?
	`, tr.PayerStartRequested, tr.PayeeStartRequested, tr.PayerConfirmed, tr.PayeeConfirmed,
		string(tr.Status), tr.CompletedAt, tr.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update handshake: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit handshake update: %w", err)
	}

	return tr, nil
}

// SetTransactionStatus overwrites the status directly, bypassing flag logic.
// Used only for cancellation; flags are left as-is.
func (s *Store) SetTransactionStatus(id int64, status core.TransactionStatus) error {
	_, err := s.DB.Exec("UPDATE transactions SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set transaction status: %w", err)
	}
	return nil
}
