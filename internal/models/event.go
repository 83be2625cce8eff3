package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TopicTopUpCompleted    = "wallet.topup.completed"
	TopicPurchaseCompleted = "vending.purchase.completed"
	TopicBalanceUpdated    = "wallet.balance.updated"
)

// Event stored in the outbox in the same transaction as the change it describes
type Event struct {
	ID          uuid.UUID
	Topic       string
	Key         string
	Payload     json.RawMessage
	CreatedAt   time.Time
	PublishedAt *time.Time
}
