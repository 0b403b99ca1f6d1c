package usage

import "github.com/leadflow/backend/internal/domain/shared"

// Ledger error conditions. Match with errors.Is; the concrete error may carry
// a more specific message and the underlying storage cause.
var (
	ErrInvalidArgument         = shared.NewDomainError("INVALID_ARGUMENT", "Invalid argument")
	ErrStorageUnavailable      = shared.NewDomainError("STORAGE_UNAVAILABLE", "Usage storage is unavailable")
	ErrConflictExceededRetries = shared.NewDomainError("CONFLICT_EXCEEDED_RETRIES", "Usage update conflicted too many times")
)
