package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrPermissionDenied  ErrCode = "PERMISSION_DENIED"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Registration-specific ─────────────────────────────────────────
	ErrNoOpenPeriod       ErrCode = "NO_OPEN_REGISTRATION_PERIOD"
	ErrPeriodNotOpenedYet ErrCode = "REGISTRATION_PERIOD_NOT_OPENED"
	ErrCourseNotFound     ErrCode = "COURSE_NOT_FOUND"
	ErrDuplicateCourse    ErrCode = "DUPLICATE_COURSE_ID"
	ErrCourseNotEnrolled  ErrCode = "COURSE_NOT_ENROLLED"
	ErrBatchInProgress    ErrCode = "BATCH_IN_PROGRESS"
	ErrPeriodOverlap      ErrCode = "REGISTRATION_PERIOD_OVERLAP"
	ErrInvalidSchedule    ErrCode = "INVALID_SCHEDULE"
	ErrInvalidMainCourse  ErrCode = "INVALID_MAIN_COURSE"
	ErrDataIntegrity      ErrCode = "DATA_INTEGRITY_ERROR"

	// ─── Rate Limiting ─────────────────────────────────────────────────
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
		return "You are not allowed to access this resource."
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

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
	case ErrDependencyExists:
		return "The resource is still referenced by other data and cannot be removed."

	case ErrNoOpenPeriod:
		return "The time for registration, adjustment, and review of the course has ended."
	case ErrPeriodNotOpenedYet:
		return "The registration period hasn't been opened yet."
	case ErrCourseNotFound:
		return "One or more requested courses do not exist."
	case ErrDuplicateCourse:
		return "A course id may appear only once per request."
	case ErrCourseNotEnrolled:
		return "One or more requested courses are not among your registrations."
	case ErrBatchInProgress:
		return "Another registration request of yours is still being processed."
	case ErrPeriodOverlap:
		return "The registration period overlaps an existing period."
	case ErrInvalidSchedule:
		return "The schedule or time window is invalid."
	case ErrInvalidMainCourse:
		return "The main course must be an existing theory course."
	case ErrDataIntegrity:
		return "Stored registration data is inconsistent. Please contact the registrar."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "Internal server error."
	default:
		return "Unexpected error."
	}
}
