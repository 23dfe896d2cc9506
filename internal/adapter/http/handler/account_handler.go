package handler

import (
	"math"
	"strconv"

	"account-ledger/internal/adapter/http/dto"
	"account-ledger/internal/adapter/http/middleware"
	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"
	"account-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles account lifecycle and listing endpoints.
type AccountHandler struct {
	accountSvc ports.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// CreateAccount handles POST /api/v1/accounts.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidRequest(err.Error()))
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(c, apperror.ErrInvalidRequest("invalid user_id"))
		return
	}

	account, err := h.accountSvc.CreateAccount(c.Request.Context(), userID, *req.InitialBalance)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxUserID, userID)
	c.Set(middleware.CtxResourceID, account.AccountNumber)
	response.Created(c, toAccountResponse(account))
}

// CloseAccount handles DELETE /api/v1/accounts.
func (h *AccountHandler) CloseAccount(c *gin.Context) {
	var req dto.CloseAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidRequest(err.Error()))
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(c, apperror.ErrInvalidRequest("invalid user_id"))
		return
	}

	account, err := h.accountSvc.CloseAccount(c.Request.Context(), userID, req.AccountNumber)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxUserID, userID)
	c.Set(middleware.CtxResourceID, account.AccountNumber)
	response.OK(c, toAccountResponse(account))
}

// ListAccounts handles GET /api/v1/accounts?user_id=.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		response.Error(c, apperror.ErrInvalidRequest("user_id query parameter must be a UUID"))
		return
	}

	accounts, err := h.accountSvc.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.AccountInfo, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, dto.AccountInfo{
			AccountNumber: a.AccountNumber,
			Balance:       a.Balance,
			Status:        string(a.Status),
		})
	}
	response.OK(c, items)
}

// ListTransactions handles GET /api/v1/accounts/:number/transactions.
func (h *AccountHandler) ListTransactions(c *gin.Context) {
	number := c.Param("number")
	if !dto.ValidAccountNumber(number) {
		response.Error(c, apperror.ErrInvalidRequest("invalid account number"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(ports.DefaultPageSize)))
	params := ports.TransactionListParams{
		AccountNumber: number,
		Page:          page,
		PageSize:      pageSize,
	}.Normalized()

	txns, total, err := h.accountSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(params.PageSize))),
	})
}
