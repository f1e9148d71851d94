package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestWrapRoundTrip(t *testing.T) {
	base := stderrors.New("disk full")
	err := Wrap(base, CategoryIOFailure, "free some space")
	if err == nil {
		t.Fatal("expected wrapped error")
	}
	if CategoryOf(err) != CategoryIOFailure {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
	if HintOf(err) != "free some space" {
		t.Fatalf("unexpected hint: %s", HintOf(err))
	}
	if !stderrors.Is(err, base) {
		t.Fatal("expected wrapped error to preserve cause")
	}
	if err.Error() != "disk full" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestCategorySurvivesFmtWrapping(t *testing.T) {
	err := New(CategoryTopicNotFound, "", "topic %q not found", "auth")
	wrapped := fmt.Errorf("resolve boundary: %w", err)
	if !Is(wrapped, CategoryTopicNotFound) {
		t.Fatalf("expected topic_not_found through wrapping, got %q", CategoryOf(wrapped))
	}
	if wrapped.Error() != `resolve boundary: topic "auth" not found` {
		t.Fatalf("unexpected message: %s", wrapped.Error())
	}
}

func TestUnknownErrorDefaults(t *testing.T) {
	err := stderrors.New("plain")
	if CategoryOf(err) != "" {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
	if HintOf(err) != "" {
		t.Fatalf("unexpected hint: %s", HintOf(err))
	}
}

func TestWrapNilCauseReturnsNil(t *testing.T) {
	if got := Wrap(nil, CategoryIOFailure, "retry"); got != nil {
		t.Fatalf("expected nil wrapped error, got=%v", got)
	}
}

func TestClassifiedErrorNilCauseDefaults(t *testing.T) {
	err := &classifiedError{category: CategoryEmptyTail, hint: "restore backup"}
	if err.Error() != "unknown error" {
		t.Fatalf("unexpected nil-cause error text: %s", err.Error())
	}
	if err.Unwrap() != nil {
		t.Fatalf("expected unwrap nil for nil cause")
	}
	if err.Category() != CategoryEmptyTail || err.Hint() != "restore backup" {
		t.Fatalf("unexpected accessors: %s %s", err.Category(), err.Hint())
	}
}

func TestCategorySetIsStableAndUnique(t *testing.T) {
	categories := []Category{
		CategoryParseError,
		CategoryInvalidArgument,
		CategoryInsufficientHistory,
		CategoryTopicNotFound,
		CategoryInvalidResponse,
		CategoryBoundaryNotFound,
		CategoryEmptyTail,
		CategoryIOFailure,
		CategoryRemoteServiceFailure,
	}
	seen := map[Category]struct{}{}
	for _, category := range categories {
		if category == "" {
			t.Fatalf("category must not be empty")
		}
		if _, exists := seen[category]; exists {
			t.Fatalf("duplicate category: %s", category)
		}
		seen[category] = struct{}{}
	}
}

func TestHintFallsThroughToInnerError(t *testing.T) {
	inner := New(CategoryBoundaryNotFound, "restore the backup", "boundary %s missing", "abc")
	outer := Wrap(fmt.Errorf("compact: %w", inner), CategoryBoundaryNotFound, "")
	if HintOf(outer) != "restore the backup" {
		t.Fatalf("expected inner hint, got %q", HintOf(outer))
	}
}
