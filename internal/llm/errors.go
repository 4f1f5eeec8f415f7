package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the backend returned content that does not
// conform to the requested schema. Content keeps the raw reply so callers
// can still run their own recovery over it.
type ErrInvalidResponse struct {
	Content json.RawMessage

	// Violations holds the JSON pointers of the values that failed schema
	// validation. It is empty when the reply was not JSON at all.
	Violations []string

	Err error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was truncated because it
// hit the MaxTokens limit.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// PartialContent returns whatever reply text an error still carries: the
// raw body of an ErrInvalidResponse or the truncated body of an
// ErrMaxTokensExceeded.
func PartialContent(err error) (json.RawMessage, bool) {
	var inv *ErrInvalidResponse
	if errors.As(err, &inv) && len(inv.Content) > 0 {
		return inv.Content, true
	}
	var maxTok *ErrMaxTokensExceeded
	if errors.As(err, &maxTok) && len(maxTok.Content) > 0 {
		return maxTok.Content, true
	}
	return nil, false
}

// Violations returns the schema violation paths carried by err, if any.
func Violations(err error) []string {
	var inv *ErrInvalidResponse
	if errors.As(err, &inv) {
		return inv.Violations
	}
	return nil
}
