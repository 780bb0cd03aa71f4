package indexer

import (
	"errors"
	"fmt"
)

// Error codes for categorizing adapter errors
const (
	ErrCodeRegistry      = "REGISTRY_ERROR"
	ErrCodeMalformed     = "MALFORMED_ERROR"
	ErrCodeSearch        = "SEARCH_ERROR"
	ErrCodeCache         = "CACHE_ERROR"
	ErrCodeConfiguration = "CONFIG_ERROR"
	ErrCodeNetwork       = "NETWORK_ERROR"
	ErrCodeParse         = "PARSE_ERROR"
	ErrCodeNotFound      = "NOT_FOUND_ERROR"
)

// AdapterError represents a categorized error from an adapter or registry operation.
type AdapterError struct {
	Code      string // Error category code
	Message   string // Human-readable message
	AdapterID string // ID of the affected adapter ("" if not applicable)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.AdapterID != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.AdapterID, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying error.
func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for errors.Is().
func (e *AdapterError) Is(target error) bool {
	var t *AdapterError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Common error instances for comparison
var (
	ErrRegistryUnavailable = &AdapterError{Code: ErrCodeRegistry, Message: "registry unavailable"}
	ErrMalformed           = &AdapterError{Code: ErrCodeMalformed, Message: "malformed registry entry"}
	ErrSearch              = &AdapterError{Code: ErrCodeSearch, Message: "search failed"}
	ErrCache               = &AdapterError{Code: ErrCodeCache, Message: "cache update failed"}
	ErrConfiguration       = &AdapterError{Code: ErrCodeConfiguration, Message: "configuration error"}
	ErrNetwork             = &AdapterError{Code: ErrCodeNetwork, Message: "network error"}
	ErrParse               = &AdapterError{Code: ErrCodeParse, Message: "parse error"}
	ErrNotFound            = &AdapterError{Code: ErrCodeNotFound, Message: "not found"}
)

// NewRegistryError creates an error for a registry that cannot be enumerated.
func NewRegistryError(cause error) *AdapterError {
	return &AdapterError{
		Code:    ErrCodeRegistry,
		Message: "registry unavailable",
		Cause:   cause,
	}
}

// NewMalformedError creates an error for a registry entry that cannot be used.
func NewMalformedError(adapterID, message string, cause error) *AdapterError {
	return &AdapterError{
		Code:      ErrCodeMalformed,
		Message:   message,
		AdapterID: adapterID,
		Cause:     cause,
	}
}

// NewSearchError creates a search error.
func NewSearchError(adapterID string, cause error) *AdapterError {
	return &AdapterError{
		Code:      ErrCodeSearch,
		Message:   "search failed",
		AdapterID: adapterID,
		Cause:     cause,
	}
}

// NewCacheError creates a cache update error.
func NewCacheError(adapterID string, cause error) *AdapterError {
	return &AdapterError{
		Code:      ErrCodeCache,
		Message:   "cache update failed",
		AdapterID: adapterID,
		Cause:     cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(adapterID, message string) *AdapterError {
	return &AdapterError{
		Code:      ErrCodeConfiguration,
		Message:   message,
		AdapterID: adapterID,
	}
}

// NewNetworkError creates a network error.
func NewNetworkError(adapterID string, cause error) *AdapterError {
	return &AdapterError{
		Code:      ErrCodeNetwork,
		Message:   "network error",
		AdapterID: adapterID,
		Cause:     cause,
	}
}

// NewParseError creates a parsing error.
func NewParseError(adapterID, message string, cause error) *AdapterError {
	return &AdapterError{
		Code:      ErrCodeParse,
		Message:   message,
		AdapterID: adapterID,
		Cause:     cause,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *AdapterError {
	return &AdapterError{
		Code:    ErrCodeNotFound,
		Message: message,
	}
}

// IsMalformed returns whether the error marks an unusable registry entry.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Code
	}
	return ""
}
