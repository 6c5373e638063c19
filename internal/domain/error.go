package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound               = errors.New("entity not found")
	ErrForbidden              = errors.New("operation not permitted for this user")
	ErrValidation             = errors.New("validation failed")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrGatewayVerification    = errors.New("payment gateway verification failed")
	ErrDuplicateKey           = errors.New("duplicate key")
	ErrRateLimited            = errors.New("rate limit exceeded")

	// Infrastructure errors surfaced as "internal".
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// Error kinds are the stable, machine-readable names exposed to API clients.
const (
	KindNotFound               = "not_found"
	KindForbidden              = "forbidden"
	KindValidation             = "validation"
	KindInvalidStateTransition = "invalid_state_transition"
	KindGatewayVerification    = "gateway_verification_failed"
	KindDuplicateKey           = "duplicate_key"
	KindRateLimited            = "rate_limited"
	KindInternal               = "internal"
)

// Kind classifies err into one of the Kind* constants.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidStateTransition):
		return KindInvalidStateTransition
	case errors.Is(err, ErrGatewayVerification):
		return KindGatewayVerification
	case errors.Is(err, ErrDuplicateKey):
		return KindDuplicateKey
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	default:
		return KindInternal
	}
}
