package handler

import (
	"account-ledger/internal/adapter/http/dto"
	"account-ledger/internal/adapter/http/middleware"
	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"
	"account-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles balance operations and ledger lookups.
type TransactionHandler struct {
	balanceSvc ports.BalanceService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(balanceSvc ports.BalanceService) *TransactionHandler {
	return &TransactionHandler{balanceSvc: balanceSvc}
}

// UseBalance handles POST /api/v1/transactions/use.
func (h *TransactionHandler) UseBalance(c *gin.Context) {
	var req dto.UseBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidRequest(err.Error()))
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(c, apperror.ErrInvalidRequest("invalid user_id"))
		return
	}

	txn, err := h.balanceSvc.UseBalance(c.Request.Context(), ports.UseBalanceRequest{
		UserID:        userID,
		AccountNumber: req.AccountNumber,
		Amount:        req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxUserID, userID)
	c.Set(middleware.CtxResourceID, txn.ID)
	response.Created(c, toTransactionResponse(txn))
}

// CancelBalance handles POST /api/v1/transactions/cancel.
func (h *TransactionHandler) CancelBalance(c *gin.Context) {
	var req dto.CancelBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidRequest(err.Error()))
		return
	}

	txn, err := h.balanceSvc.CancelBalance(c.Request.Context(), ports.CancelBalanceRequest{
		TransactionID: req.TransactionID,
		AccountNumber: req.AccountNumber,
		Amount:        req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, txn.ID)
	response.Created(c, toTransactionResponse(txn))
}

// QueryTransaction handles GET /api/v1/transactions/:id.
func (h *TransactionHandler) QueryTransaction(c *gin.Context) {
	id := c.Param("id")
	if !dto.ValidTransactionID(id) {
		response.Error(c, apperror.ErrInvalidRequest("invalid transaction id"))
		return
	}

	txn, err := h.balanceSvc.QueryTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(txn))
}
