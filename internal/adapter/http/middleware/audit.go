package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// Rejected balance operations are already in the ledger as FAILED entries.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var userID *uuid.UUID
		if uid, exists := c.Get(CtxUserID); exists {
			if id, ok := uid.(uuid.UUID); ok {
				userID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(response.CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/users" && method == http.MethodPost:
		return domain.AuditActionCreateUser, "user"
	case route == "/api/v1/accounts" && method == http.MethodPost:
		return domain.AuditActionCreateAccount, "account"
	case route == "/api/v1/accounts" && method == http.MethodDelete:
		return domain.AuditActionCloseAccount, "account"
	case route == "/api/v1/transactions/use" && method == http.MethodPost:
		return domain.AuditActionUseBalance, "transaction"
	case route == "/api/v1/transactions/cancel" && method == http.MethodPost:
		return domain.AuditActionCancelBalance, "transaction"
	}
	return "", ""
}
