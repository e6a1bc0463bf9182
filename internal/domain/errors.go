package domain

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Every stage failure is fatal; callers match with
// errors.Is and surface the wrapped detail string.
var (
	ErrNoTracesFound         = errors.New("no .profraw files found")
	ErrMergeFailed           = errors.New("profile merge failed")
	ErrExtractionFailed      = errors.New("coverage export failed")
	ErrMalformedCoverageData = errors.New("malformed coverage data")
	ErrOutputWriteFailed     = errors.New("output write failed")
)

// NoTracesFound reports an empty trace collection for dir.
func NoTracesFound(dir string) error {
	return fmt.Errorf("%w in %s", ErrNoTracesFound, dir)
}

// MergeFailed wraps ErrMergeFailed with subprocess context.
func MergeFailed(details string) error {
	return fmt.Errorf("%w: %s", ErrMergeFailed, details)
}

// ExtractionFailed wraps ErrExtractionFailed with subprocess context.
func ExtractionFailed(details string) error {
	return fmt.Errorf("%w: %s", ErrExtractionFailed, details)
}

// MalformedCoverageData wraps ErrMalformedCoverageData with parse-location
// context.
func MalformedCoverageData(details string) error {
	return fmt.Errorf("%w: %s", ErrMalformedCoverageData, details)
}

// OutputWriteFailed wraps ErrOutputWriteFailed with the destination and cause.
func OutputWriteFailed(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrOutputWriteFailed, path, err)
}
