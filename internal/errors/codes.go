package apierrors

// HTTP 400 Bad Request.
const (
	ErrBadRequest       = "BAD_REQUEST"
	ErrPasswordMismatch = "PASSWORD_MISMATCH"
	ErrMissingCode      = "MISSING_CODE"
)

// HTTP 401 Unauthorized.
const (
	ErrUnauthenticated = "UNAUTHENTICATED"
)

// HTTP 404 Not Found.
const (
	ErrNotFound          = "NOT_FOUND"
	ErrInvalidInviteCode = "INVALID_INVITE_CODE"
	ErrProviderNotFound  = "PROVIDER_NOT_FOUND"
)

// HTTP 409 Conflict.
const (
	ErrAlreadyMember = "ALREADY_MEMBER"
	ErrBusy          = "BUSY"
	ErrNoScreen      = "NO_ACTIVE_SCREEN"
)

// HTTP 403 Forbidden.
const (
	ErrForbidden     = "FORBIDDEN"
	ErrDomainBlocked = "DOMAIN_NOT_ALLOWED"
	ErrNotVerified   = "EMAIL_NOT_VERIFIED"
)

// HTTP 429 Too Many Requests.
const (
	ErrTooManyRequests = "TOO_MANY_REQUESTS"
)

// HTTP 500 Internal Server Error.
const (
	ErrInternal = "INTERNAL_SERVER_ERROR"
)

// HTTP 503 Service Unavailable.
const (
	ErrSessionLoading = "SESSION_LOADING"
)
