package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired       ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid        ErrCode = "TOKEN_INVALID"
	ErrSessionAccessDenied ErrCode = "SESSION_ACCESS_DENIED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrSessionNotFound   ErrCode = "SESSION_NOT_FOUND"
	ErrSessionNotRunning ErrCode = "SESSION_NOT_RUNNING"
	ErrSessionExpired    ErrCode = "SESSION_EXPIRED"
	ErrInvalidSession    ErrCode = "INVALID_SESSION_CONFIG"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrDurationTooLong   ErrCode = "DURATION_TOO_LONG"
	ErrResultNotSaved    ErrCode = "RESULT_NOT_PERSISTED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."
	case ErrSessionAccessDenied:
		return "This token does not grant access to this session."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	case ErrSessionNotFound:
		return "No session with this id is active on this server."
	case ErrSessionNotRunning:
		return "The session is not running."
	case ErrSessionExpired:
		return "The session deadline has already passed."
	case ErrInvalidSession:
		return "A session needs at least one question and a positive duration."
	case ErrNoQuestions:
		return "This question bank has no questions."
	case ErrUnknownQuestion:
		return "The question does not belong to this session."
	case ErrDurationTooLong:
		return "The requested duration exceeds the allowed maximum."
	case ErrResultNotSaved:
		return "The exam was graded but the result could not be persisted yet."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
