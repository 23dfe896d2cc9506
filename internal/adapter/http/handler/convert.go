package handler

import (
	"time"

	"account-ledger/internal/adapter/http/dto"
	"account-ledger/internal/core/domain"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toUserResponse(u *domain.AccountUser) dto.UserResponse {
	return dto.UserResponse{
		UserID:    u.ID.String(),
		Name:      u.Name,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

func toAccountResponse(a *domain.Account) dto.AccountResponse {
	resp := dto.AccountResponse{
		UserID:        a.UserID.String(),
		AccountNumber: a.AccountNumber,
		Status:        string(a.Status),
		Balance:       a.Balance,
		RegisteredAt:  formatTime(a.RegisteredAt),
	}
	if a.ClosedAt != nil {
		closed := formatTime(*a.ClosedAt)
		resp.ClosedAt = &closed
	}
	return resp
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		TransactionID:         t.ID,
		AccountNumber:         t.AccountNumber,
		TransactionType:       string(t.Type),
		TransactionResult:     string(t.Result),
		Amount:                t.Amount,
		BalanceSnapshot:       t.BalanceSnapshot,
		OriginalTransactionID: t.OriginalTransactionID,
		TransactedAt:          formatTime(t.TransactedAt),
	}
}
