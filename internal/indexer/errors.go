package indexer

import (
	"errors"
	"fmt"
)

// Error codes for categorizing indexer errors
const (
	ErrCodeParseGap  = "PARSE_GAP"
	ErrCodeTransport = "TRANSPORT_ERROR"
	ErrCodeContract  = "CONTRACT_VIOLATION"
	ErrCodePuzzle    = "PUZZLE_REJECTED"
	ErrCodeNotFound  = "NOT_FOUND_ERROR"
	ErrCodeConfig    = "CONFIG_ERROR"
)

// IndexerError represents a categorized error from an indexer operation.
// Parse gaps are soft: they are logged and resolved as empty results and
// never cross the API boundary as an error. The other codes always do.
type IndexerError struct {
	Code        string // Error category code
	Message     string // Human-readable message
	IndexerID   string // ID of the affected indexer ("" if not applicable)
	IndexerName string // Name of the affected indexer
	Stage       string // Operation stage that failed (fetch, generate, validate, ...)
	Retryable   bool   // Whether the operation can be retried
	Cause       error  // Underlying error
}

// Error implements the error interface.
func (e *IndexerError) Error() string {
	switch {
	case e.IndexerName != "" && e.Stage != "":
		return fmt.Sprintf("[%s] %s: %s at %s", e.Code, e.IndexerName, e.Message, e.Stage)
	case e.IndexerName != "":
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.IndexerName, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *IndexerError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for errors.Is().
func (e *IndexerError) Is(target error) bool {
	var t *IndexerError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Common error instances for comparison
var (
	ErrTransport = &IndexerError{Code: ErrCodeTransport, Message: "transport failure"}
	ErrContract  = &IndexerError{Code: ErrCodeContract, Message: "page contract violated"}
	ErrPuzzle    = &IndexerError{Code: ErrCodePuzzle, Message: "proof of work rejected"}
	ErrNotFound  = &IndexerError{Code: ErrCodeNotFound, Message: "not found"}
	ErrConfig    = &IndexerError{Code: ErrCodeConfig, Message: "configuration error"}
)

// NewTransportError creates an error for a failed network exchange,
// naming the stage at which it failed.
func NewTransportError(indexerID, indexerName, stage string, cause error) *IndexerError {
	return &IndexerError{
		Code:        ErrCodeTransport,
		Message:     "transport failure",
		IndexerID:   indexerID,
		IndexerName: indexerName,
		Stage:       stage,
		Retryable:   true,
		Cause:       cause,
	}
}

// NewContractError creates an error for a page or response that lacks
// structure the operation deterministically depends on.
func NewContractError(indexerID, indexerName, stage, message string) *IndexerError {
	return &IndexerError{
		Code:        ErrCodeContract,
		Message:     message,
		IndexerID:   indexerID,
		IndexerName: indexerName,
		Stage:       stage,
		Retryable:   false,
	}
}

// NewPuzzleError creates an error for a proof-of-work exchange the
// server declined, carrying the server's reason text and the stage
// (generate or validate) at which it refused.
func NewPuzzleError(indexerID, indexerName, stage, reason string) *IndexerError {
	return &IndexerError{
		Code:        ErrCodePuzzle,
		Message:     reason,
		IndexerID:   indexerID,
		IndexerName: indexerName,
		Stage:       stage,
		Retryable:   false,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *IndexerError {
	return &IndexerError{
		Code:      ErrCodeNotFound,
		Message:   message,
		Retryable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(indexerID, message string) *IndexerError {
	return &IndexerError{
		Code:      ErrCodeConfig,
		Message:   message,
		IndexerID: indexerID,
		Retryable: false,
	}
}
