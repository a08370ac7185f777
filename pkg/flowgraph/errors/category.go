// Package errors classifies failures so callers can tell a blip (rate limit,
// overload, timeout) from a fault that will repeat (bad key, bad request).
//
// Classification only: nothing in this module retries. A transient failure
// of the model step is reported to the user and the conversation moves on.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
)

// Category represents how an error should be treated.
type Category int

const (
	// CategoryTransient indicates trying again later will likely help.
	// Examples: rate limits, overload, timeouts, 5xx responses.
	CategoryTransient Category = iota

	// CategoryPermanent indicates trying again won't help.
	// Examples: authentication failures, invalid requests.
	CategoryPermanent

	// CategoryCancelled indicates the caller gave up (context cancelled).
	CategoryCancelled
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CategorizedError pins a category on an error.
type CategorizedError struct {
	Err      error
	Category Category
	// Context describes what operation was being attempted.
	Context string
}

func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s)", e.Context, e.Err, e.Category)
	}
	return fmt.Sprintf("%s (category: %s)", e.Err, e.Category)
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: category, Context: context}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Permanent creates a permanent error.
func Permanent(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPermanent, context)
}

// Categorize determines how an error should be treated.
// Unknown errors are permanent.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	if errors.Is(err, context.Canceled) {
		return CategoryCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryTransient
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return categorizeStatus(apiErr.StatusCode)
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return categorizeStatus(httpErr.StatusCode)
	}

	return CategoryPermanent
}

// categorizeStatus maps HTTP status codes. 529 is Anthropic's "overloaded".
func categorizeStatus(code int) Category {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return CategoryTransient
	case code >= 500:
		return CategoryTransient
	default:
		return CategoryPermanent
	}
}

// IsRetryable reports whether the error is transient.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
