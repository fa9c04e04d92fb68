package api

import (
	"net/http"
	"strings"

	"github.com/ignite/cardscan/internal/pkg/logger"
	"github.com/ignite/cardscan/internal/service/cards"
)

// statusForKind maps a service error kind to its HTTP status and the
// machine-readable code carried in the error envelope.
func statusForKind(kind cards.ErrorKind) (int, string) {
	switch kind {
	case cards.KindValidation:
		return http.StatusBadRequest, "validation_error"
	case cards.KindSelection:
		return http.StatusBadRequest, "selection_error"
	case cards.KindNotFound:
		return http.StatusNotFound, "not_found"
	case cards.KindInvalidState:
		return http.StatusConflict, "invalid_state"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondServiceError writes err from the cards service. Client errors
// carry the service message; everything else is sanitized.
func respondServiceError(w http.ResponseWriter, err error) {
	status, code := statusForKind(cards.KindOf(err))
	if status >= 500 {
		respondSafeError(w, status, err, safeErrorMessage(status, err))
		return
	}
	respondError(w, status, code, err.Error())
}

// respondSafeError logs the full internal error and sends a sanitized JSON
// error response to the client.
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string) {
	if internalErr != nil {
		logger.Error("request failed", "status", code, "public", publicMsg, "error", internalErr)
	}
	respondError(w, code, "internal_error", publicMsg)
}

// safeErrorMessage maps common internal error patterns to public-safe messages.
// For 400-level errors, the original message is typically fine (user input issues).
// For 500-level errors, this returns a generic safe message.
func safeErrorMessage(code int, internalErr error) string {
	if code < 500 {
		if internalErr != nil {
			return internalErr.Error()
		}
		return "Bad request"
	}

	if internalErr == nil {
		return "An internal error occurred"
	}

	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp"):
		return "Service temporarily unavailable"

	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled"):
		return "Request timed out"

	case strings.Contains(errStr, "sql") ||
		strings.Contains(errStr, "pq:") ||
		strings.Contains(errStr, "dynamodb") ||
		strings.Contains(errStr, "query") ||
		strings.Contains(errStr, "scan") ||
		strings.Contains(errStr, "database"):
		return "A database error occurred"

	case strings.Contains(errStr, "permission") ||
		strings.Contains(errStr, "access denied"):
		return "Access denied"

	default:
		return "An internal error occurred"
	}
}
