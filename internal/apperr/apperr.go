// Package apperr classifies storage failures into a small set of kinds and
// maps each kind to a static, user-facing message.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind is a coarse error category.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindAuth       Kind = "auth"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not_found"
	KindRateLimit  Kind = "rate_limit"
	KindUnknown    Kind = "unknown"
)

var userMessages = map[Kind]string{
	KindNetwork:    "Connection problem. Check your internet connection and try again.",
	KindAuth:       "Your session has expired. Please sign in again.",
	KindPermission: "You don't have permission to do that.",
	KindNotFound:   "We couldn't find your progress. Please try again.",
	KindRateLimit:  "You're going a little fast. Please wait a moment and try again.",
	KindUnknown:    "Something went wrong. Please try again.",
}

// UserMessage returns the static message shown to users for kind.
func UserMessage(kind Kind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[KindUnknown]
}

// Error is a classified failure of a named operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Wrap classifies err and attaches the operation name. Returns nil for nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Kind: existing.Kind, Op: op, Err: err}
	}
	return &Error{Kind: Classify(err), Op: op, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the user-facing message for this error. Rate limit
// errors keep their wait time.
func (e *Error) UserMessage() string {
	var rl *RateLimitError
	if errors.As(e.Err, &rl) {
		return rl.UserMessage()
	}
	return UserMessage(e.Kind)
}

// RateLimitError is returned when a client exceeds its call budget.
// It is always retryable after Wait.
type RateLimitError struct {
	Op   string
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (retry after %s)", e.Op, e.Wait)
}

// UserMessage returns a human-readable message including the wait time.
func (e *RateLimitError) UserMessage() string {
	secs := int(math.Ceil(e.Wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	unit := "seconds"
	if secs == 1 {
		unit = "second"
	}
	return fmt.Sprintf("Too many requests. Please wait %d %s and try again.", secs, unit)
}

// Classify returns the kind of err. Typed errors are checked first, then the
// message is matched against known substrings. Matching is best effort.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return KindRateLimit
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, m := range matchers {
		for _, sub := range m.substrings {
			if strings.Contains(msg, sub) {
				return m.kind
			}
		}
	}
	return KindUnknown
}

// Order matters: "permission denied" must not be read as an auth failure.
var matchers = []struct {
	kind       Kind
	substrings []string
}{
	{KindRateLimit, []string{"rate limit", "resource-exhausted", "resource exhausted", "too many requests", "quota"}},
	{KindPermission, []string{"permission", "forbidden", "access denied", "unauthorized to"}},
	{KindAuth, []string{"unauthenticated", "not authenticated", "authentication", "auth/", "token expired", "invalid token", "credential"}},
	{KindNotFound, []string{"not found", "not-found", "no documents"}},
	{KindNetwork, []string{"network", "unavailable", "connection refused", "connection reset", "connection closed", "broken pipe", "no such host", "timeout", "timed out", "deadline", "offline", "server selection"}},
}

// IsRetryable reports whether err is of a kind worth retrying.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case KindNetwork, KindRateLimit:
		return true
	default:
		return false
	}
}
