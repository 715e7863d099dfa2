package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks invalid startup configuration. Fatal, never retried.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrRetrievalUnavailable means both search modalities failed for a request.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrPipeline marks a run aborted by a malformed or timed-out model response.
	ErrPipeline = errors.New("pipeline failure")

	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
