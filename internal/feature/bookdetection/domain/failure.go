package domain

import (
	"errors"
	"time"
)

// FailureInfo is the caller-facing description of a failed detection.
type FailureInfo struct {
	Kind       string        `json:"kind"`
	Message    string        `json:"error"`
	Suggestion string        `json:"suggestion"`
	Retryable  bool          `json:"retryable"`
	RetryAfter time.Duration `json:"-"`
}

// Describe maps a pipeline error to a user-actionable FailureInfo.
// Genuinely empty results ask for a new photo; provider outages ask for a retry.
func Describe(err error) FailureInfo {
	var rl *RateLimitedError
	switch {
	case errors.As(err, &rl):
		return FailureInfo{
			Kind:       "rate_limited",
			Message:    "recognition service is busy",
			Suggestion: "Too many scans right now. Please try again in a minute.",
			Retryable:  true,
			RetryAfter: rl.RetryAfter,
		}
	case errors.Is(err, ErrNoTextDetected):
		return FailureInfo{
			Kind:       "no_text",
			Message:    "no text detected",
			Suggestion: "We couldn't read any text. Try better lighting and hold the camera parallel to the spines.",
		}
	case errors.Is(err, ErrNoTitlesExtracted):
		return FailureInfo{
			Kind:       "no_titles",
			Message:    "no book titles found",
			Suggestion: "We read some text but found no titles. Move closer so each spine fills more of the frame.",
		}
	case errors.Is(err, ErrInvalidImage):
		return FailureInfo{
			Kind:       "invalid_image",
			Message:    "invalid image",
			Suggestion: "Upload a JPEG or PNG photo under 10MB.",
		}
	case errors.Is(err, ErrPipelineTimeout):
		return FailureInfo{
			Kind:       "timeout",
			Message:    "detection timed out",
			Suggestion: "The scan took too long. Please try again.",
			Retryable:  true,
		}
	default:
		return FailureInfo{
			Kind:       "unavailable",
			Message:    "recognition services unavailable",
			Suggestion: "Our book recognition services are temporarily unavailable. Please try again shortly.",
			Retryable:  true,
		}
	}
}
