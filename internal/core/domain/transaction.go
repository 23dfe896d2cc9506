package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of balance movement.
type TransactionType string

const (
	TransactionTypeUse    TransactionType = "USE"
	TransactionTypeCancel TransactionType = "CANCEL"
)

// TransactionResult is the outcome recorded for an attempt.
type TransactionResult string

const (
	TransactionResultSuccess TransactionResult = "SUCCESS"
	TransactionResultFailed  TransactionResult = "FAILED"
)

// Transaction is an immutable ledger entry. Rows are never updated or deleted.
type Transaction struct {
	ID                    string            `json:"transaction_id"`
	AccountID             uuid.UUID         `json:"account_id"`
	AccountNumber         string            `json:"account_number"`
	Type                  TransactionType   `json:"transaction_type"`
	Result                TransactionResult `json:"transaction_result"`
	Amount                int64             `json:"amount"`
	BalanceSnapshot       int64             `json:"balance_snapshot"`
	OriginalTransactionID *string           `json:"original_transaction_id,omitempty"`
	TransactedAt          time.Time         `json:"transacted_at"`
}

// IsCancelable returns true if this transaction can be cancelled.
func (t *Transaction) IsCancelable() bool {
	return t.Type == TransactionTypeUse && t.Result == TransactionResultSuccess
}

// NewTransactionID returns a random 32 character lowercase hex id.
func NewTransactionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
