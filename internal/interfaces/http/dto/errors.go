package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeInvalidArgument = "ERR_INVALID_ARGUMENT"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidCampaign = "ERR_INVALID_CAMPAIGN"
	ErrCodeInvalidStatus   = "ERR_INVALID_STATUS"
	ErrCodeInvalidLeadFile = "ERR_INVALID_LEAD_FILE"
	ErrCodeEmptyFile       = "ERR_EMPTY_FILE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound                = "ERR_NOT_FOUND"
	ErrCodeCampaignNotFound        = "ERR_CAMPAIGN_NOT_FOUND"
	ErrCodeConflict                = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict     = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeConflictExceededRetries = "ERR_CONFLICT_EXCEEDED_RETRIES"
	ErrCodeDuplicateRequest        = "ERR_DUPLICATE_REQUEST"
)

// Quota and upload error codes
const (
	// ErrCodeUsageLimitExceeded is returned when a campaign does not fit in
	// the remaining monthly quota
	ErrCodeUsageLimitExceeded  = "ERR_USAGE_LIMIT_EXCEEDED"
	ErrCodeUnsupportedFileType = "ERR_UNSUPPORTED_FILE_TYPE"
	ErrCodeRequestTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// Dependency error codes
const (
	ErrCodeAutomationUnavailable  = "ERR_AUTOMATION_UNAVAILABLE"
	ErrCodeStorageUnavailable     = "ERR_STORAGE_UNAVAILABLE"
	ErrCodeFileStorageUnavailable = "ERR_FILE_STORAGE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidArgument: http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidCampaign: http.StatusBadRequest,
	ErrCodeInvalidStatus:   http.StatusBadRequest,
	ErrCodeInvalidLeadFile: http.StatusBadRequest,
	ErrCodeEmptyFile:       http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:                http.StatusNotFound,
	ErrCodeCampaignNotFound:        http.StatusNotFound,
	ErrCodeConflict:                http.StatusConflict,
	ErrCodeConcurrencyConflict:     http.StatusConflict,
	ErrCodeConflictExceededRetries: http.StatusConflict,
	ErrCodeDuplicateRequest:        http.StatusConflict,

	// Quota and upload errors
	ErrCodeUsageLimitExceeded:  http.StatusForbidden,
	ErrCodeUnsupportedFileType: http.StatusUnsupportedMediaType,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,

	// Dependencies
	ErrCodeAutomationUnavailable:  http.StatusBadGateway,
	ErrCodeStorageUnavailable:     http.StatusServiceUnavailable,
	ErrCodeFileStorageUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode converts a domain error code to the ERR_ form used on
// the wire. Codes that already carry the prefix are returned as-is.
func NormalizeErrorCode(code string) string {
	if code == "" {
		return ErrCodeUnknown
	}
	if len(code) > 4 && code[:4] == "ERR_" {
		return code
	}
	return "ERR_" + code
}
