package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Is(t *testing.T) {
	t.Parallel()

	cause := errors.New("http 429")
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"auth matches auth", NewAuthError("gemini", cause), ErrProviderAuth, true},
		{"auth does not match transient", NewAuthError("gemini", cause), ErrProviderTransient, false},
		{"rate limited matches", NewRateLimitedError("openai", cause), ErrProviderRateLimited, true},
		{"transient matches", NewTransientError("vision", cause), ErrProviderTransient, true},
		{"wrapped still matches", fmt.Errorf("outer: %w", NewRateLimitedError("openai", cause)), ErrProviderRateLimited, true},
		{"cause is reachable", NewTransientError("vision", cause), cause, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindAuth, KindOf(NewAuthError("x", nil)))
	assert.Equal(t, KindRateLimited, KindOf(fmt.Errorf("wrap: %w", NewRateLimitedError("x", nil))))
	assert.Equal(t, KindTransient, KindOf(errors.New("plain")))
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		kind      string
		retryable bool
	}{
		{"rate limited", &RateLimitedError{Provider: "vision", RetryAfter: time.Minute}, "rate_limited", true},
		{"no text", ErrNoTextDetected, "no_text", false},
		{"no titles", fmt.Errorf("extract: %w", ErrNoTitlesExtracted), "no_titles", false},
		{"invalid image", ErrInvalidImage, "invalid_image", false},
		{"timeout", ErrPipelineTimeout, "timeout", true},
		{"all failed", ErrAllProvidersFailed, "unavailable", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info := Describe(tt.err)
			assert.Equal(t, tt.kind, info.Kind)
			assert.Equal(t, tt.retryable, info.Retryable)
			assert.NotEmpty(t, info.Suggestion)
		})
	}

	info := Describe(&RateLimitedError{Provider: "vision", RetryAfter: 60 * time.Second})
	assert.Equal(t, 60*time.Second, info.RetryAfter)
}

func TestNewProviderErrorForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   ErrorKind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{429, KindRateLimited},
		{500, KindTransient},
		{503, KindTransient},
		{400, KindTransient},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			t.Parallel()
			err := NewProviderErrorForStatus("openai", tt.status, errors.New("boom"))
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, "openai", err.Provider)
		})
	}
}
