// Package errors classifies failures so callers can react to the kind of
// problem (bad input, unresolvable boundary, I/O, remote service) instead of
// matching on message text.
package errors

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryParseError           Category = "parse_error"
	CategoryInvalidArgument      Category = "invalid_argument"
	CategoryInsufficientHistory  Category = "insufficient_history"
	CategoryTopicNotFound        Category = "topic_not_found"
	CategoryInvalidResponse      Category = "invalid_response"
	CategoryBoundaryNotFound     Category = "boundary_not_found"
	CategoryEmptyTail            Category = "empty_tail"
	CategoryIOFailure            Category = "io_failure"
	CategoryRemoteServiceFailure Category = "remote_service_failure"
)

type classifiedError struct {
	category Category
	hint     string
	cause    error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func (e *classifiedError) Category() Category {
	return e.category
}

func (e *classifiedError) Hint() string {
	return e.hint
}

// Wrap attaches a category and an optional user-facing hint to cause.
// A nil cause yields nil.
func Wrap(cause error, category Category, hint string) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category: category,
		hint:     hint,
		cause:    cause,
	}
}

// New builds a classified error from a formatted message.
func New(category Category, hint, format string, args ...any) error {
	return Wrap(fmt.Errorf(format, args...), category, hint)
}

func CategoryOf(err error) Category {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.category
	}
	return ""
}

// HintOf returns the outermost non-empty hint in the chain.
func HintOf(err error) string {
	for err != nil {
		var classified *classifiedError
		if !errors.As(err, &classified) {
			return ""
		}
		if classified.hint != "" {
			return classified.hint
		}
		err = classified.cause
	}
	return ""
}

// Is reports whether the outermost category of err is category.
func Is(err error, category Category) bool {
	return CategoryOf(err) == category
}
