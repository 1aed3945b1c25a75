package errors

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeScrape     = "SCRAPE_ERROR"
	CodeMining     = "MINING_ERROR"
	CodeCache      = "CACHE_ERROR"
	CodeStore      = "STORE_ERROR"
	CodeAPI        = "API_ERROR"
	CodeValidation = "VALIDATION_ERROR"
)

// ErrNoMinedData signals that no source yielded anything for a game. The
// generate job surfaces it so the orchestrator can requeue the game instead of
// persisting an empty report set.
var ErrNoMinedData = errors.New("no mined data available from any source")

type AppError struct {
	Message string
	Code    string
	Context map[string]any
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(message, code string, context map[string]any) *AppError {
	return &AppError{
		Message: message,
		Code:    code,
		Context: context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

type ScrapeError struct {
	*AppError
}

// NewScrapeError marks a failed page fetch for one (source, url) pair. The
// jobs treat it as "no content for this source this pass", not a hard stop.
func NewScrapeError(message, source, url string, cause error) *ScrapeError {
	return &ScrapeError{
		AppError: &AppError{
			Message: message,
			Code:    CodeScrape,
			Context: map[string]any{
				"source": source,
				"url":    url,
			},
			Cause: cause,
		},
	}
}

type CacheError struct {
	*AppError
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message: message,
			Code:    CodeCache,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
	}
}

type StoreError struct {
	*AppError
}

func NewStoreError(message, operation string, cause error) *StoreError {
	return &StoreError{
		AppError: &AppError{
			Message: message,
			Code:    CodeStore,
			Context: map[string]any{
				"operation": operation,
			},
			Cause: cause,
		},
	}
}

type APIError struct {
	*AppError
	StatusCode int
}

func NewAPIError(message string, statusCode int, cause error) *APIError {
	return &APIError{
		AppError: &AppError{
			Message: message,
			Code:    CodeAPI,
			Cause:   cause,
		},
		StatusCode: statusCode,
	}
}
