package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a parsed error: an API code plus a safe message.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError converts a raw database or network error into an ErrorInfo.
// Sensitive driver detail is dropped; the context string selects a message
// the caller can show as-is.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "An internal error occurred",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	// 1. GORM sentinel errors
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 2. PostgreSQL constraint violations

	// 2-1. Unique constraint violation (23505)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStr)
	}

	// 2-2. Foreign key constraint violation (23503)
	if strings.Contains(errStrLower, "foreign key constraint") {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "The referenced record does not exist or is still in use",
		}
	}

	// 2-3. Not null constraint violation (23502)
	if strings.Contains(errStrLower, "null value") && strings.Contains(errStrLower, "violates not-null constraint") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "A required field is missing",
		}
	}

	// 2-4. Check constraint violation (23514)
	if strings.Contains(errStrLower, "check constraint") {
		return ErrorInfo{
			Code:    ValidationInvalidRange,
			Message: "A field value is out of range",
		}
	}

	// 3. Network errors towards external collaborators
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "Failed to reach an external service. Please try again later",
		}
	}

	// 4. Default internal error
	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "email") || strings.Contains(errLower, "idx_users_email") {
		return ErrorInfo{
			Code:    AuthEmailAlreadyExists,
			Message: "This email address is already registered",
		}
	}

	if strings.Contains(errLower, "code") || strings.Contains(errLower, "idx_promotions_code") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "This promotion code is already in use",
		}
	}

	if strings.Contains(errLower, "cart_promotions") {
		return ErrorInfo{
			Code:    PromotionAlreadyApplied,
			Message: "A promotion is already applied to this cart",
		}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "This record already exists",
	}
}

func getNotFoundMessage(context string) string {
	switch context {
	case "product":
		return "Product not found"
	case "cart":
		return "Cart item not found"
	case "promotion":
		return "Promotion code not found"
	case "membership":
		return "Membership not found"
	case "order":
		return "Order not found"
	case "user":
		return "User not found"
	default:
		return "The requested record was not found"
	}
}

func getDefaultErrorMessage(context string) string {
	switch context {
	case "cart":
		return "Failed to update the cart. Please try again"
	case "promotion":
		return "Failed to process the promotion. Please try again"
	case "order":
		return "Failed to process the order. Please try again"
	default:
		return "An internal error occurred. Please try again later"
	}
}
