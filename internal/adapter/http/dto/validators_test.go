package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := CreateUserRequest{Name: "  alice  "}
	SanitizeStruct(&req)
	assert.Equal(t, "alice", req.Name)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := CreateUserRequest{Name: "<script>alert('x')</script>"}
	SanitizeStruct(&req)

	assert.Contains(t, req.Name, "&lt;script&gt;")
	assert.NotContains(t, req.Name, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	type withPtr struct {
		Note *string
		Nil  *string
	}
	note := "  memo  "
	req := withPtr{Note: &note}
	SanitizeStruct(&req)

	assert.Equal(t, "memo", *req.Note)
	assert.Nil(t, req.Nil)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	req := CreateUserRequest{Name: "  bob  "}
	SanitizeStruct(req)
	assert.Equal(t, "  bob  ", req.Name)
}

func TestValidAccountNumber(t *testing.T) {
	assert.True(t, ValidAccountNumber("1000000000"))
	assert.True(t, ValidAccountNumber("9999999999"))
	assert.False(t, ValidAccountNumber("0999999999"))
	assert.False(t, ValidAccountNumber("100000000"))
	assert.False(t, ValidAccountNumber("10000000000"))
	assert.False(t, ValidAccountNumber("10000000a0"))
}

func TestValidTransactionID(t *testing.T) {
	assert.True(t, ValidTransactionID("0123456789abcdef0123456789abcdef"))
	assert.False(t, ValidTransactionID("0123456789ABCDEF0123456789ABCDEF"))
	assert.False(t, ValidTransactionID("0123456789abcdef"))
	assert.False(t, ValidTransactionID("01234567-89ab-cdef-0123-456789abcdef"))
}

func TestBinding_UseBalanceRequest(t *testing.T) {
	valid := UseBalanceRequest{
		UserID:        "6f1f9d3e-8a8b-4c1c-9f3e-2b5d7a0c4e11",
		AccountNumber: "1000000000",
		Amount:        3000,
	}
	assert.NoError(t, binding.Validator.ValidateStruct(&valid))

	tests := map[string]func(r *UseBalanceRequest){
		"bad user id":        func(r *UseBalanceRequest) { r.UserID = "42" },
		"bad account number": func(r *UseBalanceRequest) { r.AccountNumber = "12" },
		"zero amount":        func(r *UseBalanceRequest) { r.Amount = 0 },
		"negative amount":    func(r *UseBalanceRequest) { r.Amount = -10 },
		"amount too large":   func(r *UseBalanceRequest) { r.Amount = MaxAmount + 1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			assert.Error(t, binding.Validator.ValidateStruct(&req))
		})
	}
}

func TestBinding_CreateAccountRequest_ZeroBalance(t *testing.T) {
	zero := int64(0)
	req := CreateAccountRequest{UserID: "6f1f9d3e-8a8b-4c1c-9f3e-2b5d7a0c4e11", InitialBalance: &zero}
	assert.NoError(t, binding.Validator.ValidateStruct(&req))

	req.InitialBalance = nil
	assert.Error(t, binding.Validator.ValidateStruct(&req))

	negative := int64(-1)
	req.InitialBalance = &negative
	assert.Error(t, binding.Validator.ValidateStruct(&req))
}
