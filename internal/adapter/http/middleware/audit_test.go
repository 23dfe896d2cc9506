package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_UseBalanceSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)
	userID := uuid.New()

	done := make(chan *domain.AuditLog, 1)
	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, entry *domain.AuditLog) {
			done <- entry
		},
	)

	r := gin.New()
	r.Use(RequestID(), AuditLog(mockAudit))
	r.POST("/api/v1/transactions/use", func(c *gin.Context) {
		c.Set(CtxUserID, userID)
		c.Set(CtxResourceID, "0123456789abcdef0123456789abcdef")
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/transactions/use", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	select {
	case entry := <-done:
		assert.Equal(t, domain.AuditActionUseBalance, entry.Action)
		assert.Equal(t, "transaction", entry.ResourceType)
		assert.Equal(t, "0123456789abcdef0123456789abcdef", entry.ResourceID)
		if assert.NotNil(t, entry.UserID) {
			assert.Equal(t, userID, *entry.UserID)
		}
		assert.Contains(t, entry.Details, `"status":201`)
	case <-time.After(time.Second):
		t.Fatal("audit not called")
	}
}

func TestAuditLog_SkipsGET(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.GET("/api/v1/accounts", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"items": []string{}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditLog_SkipsFailedRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/transactions/cancel", func(c *gin.Context) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "bad"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/transactions/cancel", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestMapRouteToAction(t *testing.T) {
	tests := []struct {
		route    string
		method   string
		action   domain.AuditAction
		resource string
	}{
		{"/api/v1/users", "POST", domain.AuditActionCreateUser, "user"},
		{"/api/v1/accounts", "POST", domain.AuditActionCreateAccount, "account"},
		{"/api/v1/accounts", "DELETE", domain.AuditActionCloseAccount, "account"},
		{"/api/v1/transactions/use", "POST", domain.AuditActionUseBalance, "transaction"},
		{"/api/v1/transactions/cancel", "POST", domain.AuditActionCancelBalance, "transaction"},
		{"/api/v1/accounts", "PUT", "", ""},
		{"/unknown", "POST", "", ""},
	}

	for _, tc := range tests {
		action, resource := mapRouteToAction(tc.route, tc.method)
		assert.Equal(t, tc.action, action, "route=%s method=%s", tc.route, tc.method)
		assert.Equal(t, tc.resource, resource, "route=%s method=%s", tc.route, tc.method)
	}
}
