package core

// Event type names carried in the websocket envelope's "type" field
const (
	EventNewMessage              = "new_message"
	EventTransactionStartRequest = "transaction_start_request"
)

// NewMessageEvent is broadcast when a message is created. Exactly one of
// TaskID and ConversationID is set, matching the message's scope.
type NewMessageEvent struct {
	Type           string   `json:"type"`
	TaskID         *int64   `json:"taskId,omitempty"`
	ConversationID *int64   `json:"conversationId,omitempty"`
	Message        *Message `json:"message"`
}

// TransactionStartRequestEvent is broadcast when a party requests the start
// handshake. BothRequested mirrors whether the transaction just reached
// in_progress.
type TransactionStartRequestEvent struct {
	Type          string `json:"type"`
	TaskID        int64  `json:"taskId"`
	TransactionID int64  `json:"transactionId"`
	FromUserID    int64  `json:"fromUserId"`
	ToUserID      int64  `json:"toUserId"`
	BothRequested bool   `json:"bothRequested"`
}

// Publisher is the fan-out side-channel for real-time events. Delivery is
// advisory and fire-and-forget; the store stays the single source of truth
// and clients must be able to reconstruct state from persisted records alone.
type Publisher interface {
	Publish(recipients []int64, event interface{})
}
