// Package events publishes notifications about saved transactions to an AMQP broker.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/pkg/models"
)

// KindTransactionsSaved is the message kind sent after a batch is persisted.
const KindTransactionsSaved = "transactions.saved"

// SavedTransaction is the part of a transaction carried in a message.
type SavedTransaction struct {
	Type     models.TransactionType `json:"type"`
	Amount   float64                `json:"amount"`
	Category string                 `json:"category"`
	Date     string                 `json:"date"`
	Merchant string                 `json:"merchant,omitempty"`
	Currency string                 `json:"currency,omitempty"`
	Source   string                 `json:"source,omitempty"`
}

// TransactionsSaved announces a batch of transactions stored through the API.
type TransactionsSaved struct {
	ID           string             `json:"id"`
	Kind         string             `json:"kind"`
	Count        int                `json:"count"`
	Total        float64            `json:"total"`
	Confirmation string             `json:"confirmation,omitempty"`
	Transactions []SavedTransaction `json:"transactions"`
	OccurredAt   time.Time          `json:"occurredAt"`
}

// NewTransactionsSaved builds the message for ts. Total sums the amounts regardless of type.
func NewTransactionsSaved(ts []models.Transaction, confirmation string, now time.Time) *TransactionsSaved {
	msg := &TransactionsSaved{
		ID:           uuid.NewString(),
		Kind:         KindTransactionsSaved,
		Count:        len(ts),
		Confirmation: confirmation,
		Transactions: make([]SavedTransaction, 0, len(ts)),
		OccurredAt:   now.UTC(),
	}
	for _, t := range ts {
		msg.Total += t.Amount
		msg.Transactions = append(msg.Transactions, SavedTransaction{
			Type:     t.Type,
			Amount:   t.Amount,
			Category: t.Category,
			Date:     t.Date,
			Merchant: t.Merchant,
			Currency: t.Currency,
			Source:   t.Source,
		})
	}
	return msg
}

// ToJSON encodes the message body.
func (m *TransactionsSaved) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionsSavedFromJSON decodes a message body.
func TransactionsSavedFromJSON(data []byte) (*TransactionsSaved, error) {
	var m TransactionsSaved
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Kind != KindTransactionsSaved {
		return nil, fmt.Errorf("unexpected message kind %q", m.Kind)
	}
	return &m, nil
}
