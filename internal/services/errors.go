package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrAuthExpired marks authentication failures the core never retries;
	// the caller must obtain a fresh token and start over.
	ErrAuthExpired = errors.New("authentication expired")
	// ErrRateLimited marks HTTP 429 responses. Retried after the
	// server-directed delay, up to the configured attempt bound.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient marks network-level failures and 5xx responses.
	// Retried with exponential backoff, up to the configured attempt bound.
	ErrTransient = errors.New("transient failure")
	// ErrFatal marks non-auth 4xx responses. Never retried.
	ErrFatal = errors.New("request rejected")
	// ErrNotFound marks a missing notebook or section. Aborts the
	// enclosing enumeration before any page is dispatched.
	ErrNotFound = errors.New("not found")
	// ErrConversion marks malformed page markup. The page is still
	// emitted with inline degradation markers where possible.
	ErrConversion = errors.New("conversion error")
	// ErrIO marks local filesystem failures. Fails only the affected page.
	ErrIO = errors.New("io error")
)

// Wrap builds an error message that includes pipeline context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the error may succeed on a later attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// RateLimitError carries the server-directed wait from a 429 response.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// RetryAfter extracts the server-directed delay from a rate-limit error,
// returning fallback when the error carries none.
func RetryAfter(err error, fallback time.Duration) time.Duration {
	var rle *RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > 0 {
		return rle.RetryAfter
	}
	return fallback
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
