package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo pairs an error code with a user-facing message
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError converts database and service errors into a code and message
// safe to return to clients. Sensitive internals stay out of the response
// while still giving the user something actionable.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	// 1. GORM errors
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
			Code:    ValidationInvalidID,
			Message: "The referenced record does not exist",
		}
	}

	// 2-3. Not null constraint violation (23502)
	if strings.Contains(errStrLower, "null value") && strings.Contains(errStrLower, "violates not-null constraint") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "A required field is missing",
		}
	}

	// 3. Network errors from upstream services
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "An upstream service is unavailable. Please try again later",
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

	if strings.Contains(errLower, "external_id") {
		return ErrorInfo{
			Code:    ListingAlreadyExists,
			Message: "This business is already listed",
		}
	}

	if strings.Contains(errLower, "email") {
		return ErrorInfo{
			Code:    AuthEmailAlreadyExists,
			Message: "This email is already in use",
		}
	}

	if strings.Contains(errLower, "username") {
		return ErrorInfo{
			Code:    AuthUsernameExists,
			Message: "This username is already taken",
		}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "A record with these details already exists",
	}
}

// ParseAndRespond parses the error and writes the standard error payload.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}

func getNotFoundMessage(context string) string {
	switch context {
	case "listing":
		return "Listing not found"
	case "claim":
		return "Claim request not found"
	case "user":
		return "User not found"
	default:
		return "The requested resource was not found"
	}
}

func getDefaultErrorMessage(context string) string {
	switch context {
	case "search":
		return "Search is temporarily unavailable. Please try again later"
	case "billing":
		return "Payment processing failed. Please try again later"
	default:
		return "Something went wrong. Please try again later"
	}
}
