package dto

// MaxAmount bounds a single use or cancel amount.
const MaxAmount = 1_000_000_000

// CreateUserRequest is the request body for registering an account holder.
type CreateUserRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// UserResponse is the response body for a created user.
type UserResponse struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// CreateAccountRequest is the request body for opening an account.
// InitialBalance is a pointer so that an explicit zero passes "required".
type CreateAccountRequest struct {
	UserID         string `json:"user_id" binding:"required,uuid"`
	InitialBalance *int64 `json:"initial_balance" binding:"required,gte=0"`
}

// CloseAccountRequest is the request body for closing an account.
type CloseAccountRequest struct {
	UserID        string `json:"user_id" binding:"required,uuid"`
	AccountNumber string `json:"account_number" binding:"required,account_number"`
}

// AccountResponse is the response body for account creation and closure.
type AccountResponse struct {
	UserID        string  `json:"user_id"`
	AccountNumber string  `json:"account_number"`
	Status        string  `json:"status"`
	Balance       int64   `json:"balance"`
	RegisteredAt  string  `json:"registered_at"`
	ClosedAt      *string `json:"closed_at,omitempty"`
}

// AccountInfo is one entry of a user's account list.
type AccountInfo struct {
	AccountNumber string `json:"account_number"`
	Balance       int64  `json:"balance"`
	Status        string `json:"status"`
}

// UseBalanceRequest is the request body for using balance.
type UseBalanceRequest struct {
	UserID        string `json:"user_id" binding:"required,uuid"`
	AccountNumber string `json:"account_number" binding:"required,account_number"`
	Amount        int64  `json:"amount" binding:"required,gt=0,lte=1000000000"`
}

// CancelBalanceRequest is the request body for cancelling a prior use.
type CancelBalanceRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,transaction_id"`
	AccountNumber string `json:"account_number" binding:"required,account_number"`
	Amount        int64  `json:"amount" binding:"required,gt=0,lte=1000000000"`
}

// TransactionResponse is the response body for a ledger entry.
type TransactionResponse struct {
	TransactionID         string  `json:"transaction_id"`
	AccountNumber         string  `json:"account_number"`
	TransactionType       string  `json:"transaction_type"`
	TransactionResult     string  `json:"transaction_result"`
	Amount                int64   `json:"amount"`
	BalanceSnapshot       int64   `json:"balance_snapshot"`
	OriginalTransactionID *string `json:"original_transaction_id,omitempty"`
	TransactedAt          string  `json:"transacted_at"`
}

// TransactionListResponse wraps paginated transaction list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}
