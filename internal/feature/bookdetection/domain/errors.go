// Package domain defines domain-level errors for the bookdetection feature.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Domain errors for detection and matching.
// Adapters convert every provider/catalog failure into one of these before it propagates.
var (
	// ErrProviderAuth indicates that a provider rejected our credentials. Never retried.
	ErrProviderAuth = errors.New("provider authentication failed")

	// ErrProviderRateLimited indicates that a provider answered with HTTP 429 or equivalent.
	ErrProviderRateLimited = errors.New("provider rate limited")

	// ErrProviderTransient covers timeouts, 5xx and malformed responses.
	ErrProviderTransient = errors.New("provider transient failure")

	// ErrNoTextDetected is returned when the OCR provider saw no text at all.
	ErrNoTextDetected = errors.New("no text detected in image")

	// ErrNoTitlesExtracted is returned when text was found but no line looked like a title.
	ErrNoTitlesExtracted = errors.New("no titles extracted from text")

	// ErrNoCatalogMatch marks a title the catalog could not reconcile. Non-fatal per title.
	ErrNoCatalogMatch = errors.New("no catalog match")

	// ErrAllProvidersFailed is returned when every provider in the cascade failed.
	ErrAllProvidersFailed = errors.New("all recognition providers failed")

	// ErrPipelineTimeout is returned when the outer per-image deadline expires.
	ErrPipelineTimeout = errors.New("detection pipeline timed out")

	// ErrInvalidImage is returned for empty or oversized uploads.
	ErrInvalidImage = errors.New("invalid image")
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindRateLimited ErrorKind = "rate_limited"
	KindTransient   ErrorKind = "transient"
)

// ProviderError is a classified failure from one recognition or catalog provider.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Provider, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match a ProviderError against the kind sentinels.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrProviderAuth:
		return e.Kind == KindAuth
	case ErrProviderRateLimited:
		return e.Kind == KindRateLimited
	case ErrProviderTransient:
		return e.Kind == KindTransient
	}
	return false
}

// Factory functions for provider errors

func NewAuthError(provider string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindAuth, Cause: cause}
}

func NewRateLimitedError(provider string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindRateLimited, Cause: cause}
}

func NewTransientError(provider string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindTransient, Cause: cause}
}

// NewProviderErrorForStatus classifies an HTTP status code: 401/403 are auth failures,
// 429 is rate limiting and everything else is transient.
func NewProviderErrorForStatus(provider string, status int, cause error) *ProviderError {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewAuthError(provider, cause)
	case http.StatusTooManyRequests:
		return NewRateLimitedError(provider, cause)
	default:
		return NewTransientError(provider, cause)
	}
}

// KindOf returns the classification of err, defaulting to KindTransient for unclassified errors.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// RateLimitedError is surfaced to the caller when the last provider in the cascade is rate limited.
type RateLimitedError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("provider %s rate limited, retry after %v", e.Provider, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrProviderRateLimited
}
