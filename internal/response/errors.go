package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication / authorization ────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrForbidden     ErrCode = "FORBIDDEN"
	ErrCandidateOnly ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrOrgAdminOnly  ErrCode = "ORG_ADMIN_ACCESS_ONLY"
	ErrWrongOrg      ErrCode = "WRONG_ORGANIZATION"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Eligibility (user-correctable or time-bound; never retried) ───
	ErrNotPublished       ErrCode = "NOT_PUBLISHED"
	ErrInvalidAccessCode  ErrCode = "INVALID_ACCESS_CODE"
	ErrNotYetOpen         ErrCode = "NOT_YET_OPEN"
	ErrClosed             ErrCode = "CLOSED"
	ErrMaxAttemptsReached ErrCode = "MAX_ATTEMPTS_REACHED"
	ErrCooldownActive     ErrCode = "COOLDOWN_ACTIVE"

	// ─── Session state (client/server divergence; client should refresh)
	ErrSessionNotFound      ErrCode = "SESSION_NOT_FOUND"
	ErrAlreadyCompleted     ErrCode = "ALREADY_COMPLETED"
	ErrQuestionNotInSession ErrCode = "QUESTION_NOT_IN_SESSION"
	ErrNotScored            ErrCode = "NOT_SCORED"

	// ─── Assessment lifecycle ──────────────────────────────────────────
	ErrNotFound  ErrCode = "NOT_FOUND"
	ErrNotDraft  ErrCode = "NOT_DRAFT"
	ErrEmptyDeck ErrCode = "EMPTY_DECK"
	ErrConflict  ErrCode = "CONFLICT"

	// ─── Rate limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrCandidateOnly:
		return "This resource is restricted to candidates."
	case ErrOrgAdminOnly:
		return "This resource is restricted to organization administrators."
	case ErrWrongOrg:
		return "This resource belongs to a different organization."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotPublished:
		return "This assessment is not published."
	case ErrInvalidAccessCode:
		return "The access code is missing or incorrect."
	case ErrNotYetOpen:
		return "This assessment has not opened yet."
	case ErrClosed:
		return "This assessment is closed."
	case ErrMaxAttemptsReached:
		return "You have used all allowed attempts for this assessment."
	case ErrCooldownActive:
		return "You must wait before retaking this assessment."

	case ErrSessionNotFound:
		return "Session not found."
	case ErrAlreadyCompleted:
		return "This session is already finished. Refresh to see your result."
	case ErrQuestionNotInSession:
		return "This question does not belong to your session."
	case ErrNotScored:
		return "This session has not been scored yet."

	case ErrNotFound:
		return "Resource not found."
	case ErrNotDraft:
		return "This assessment is not in draft status."
	case ErrEmptyDeck:
		return "The source deck has no questions; the assessment cannot be published."
	case ErrConflict:
		return "Resource already exists."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
