package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	accountNumberRe = regexp.MustCompile(`^[1-9][0-9]{9}$`)
	transactionIDRe = regexp.MustCompile(`^[0-9a-f]{32}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("account_number", validateAccountNumber)
		_ = v.RegisterValidation("transaction_id", validateTransactionID)
	}
}

// ValidAccountNumber reports whether s is a ten digit account number.
func ValidAccountNumber(s string) bool {
	return accountNumberRe.MatchString(s)
}

// ValidTransactionID reports whether s is a 32 character lowercase hex id.
func ValidTransactionID(s string) bool {
	return transactionIDRe.MatchString(s)
}

func validateAccountNumber(fl validator.FieldLevel) bool {
	return ValidAccountNumber(fl.Field().String())
}

func validateTransactionID(fl validator.FieldLevel) bool {
	return ValidTransactionID(fl.Field().String())
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
