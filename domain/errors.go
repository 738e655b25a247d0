package domain

import (
	"errors"
	"fmt"
)

// Stage errors carry a Transient flag so the retry policy can tell a
// flaky external call apart from input that will never succeed. The
// zero value of the flag means non-transient; unknown errors (anything
// not implementing transienter) are treated as transient by IsTransient.

// ExtractionError reports a failed metadata probe.
type ExtractionError struct {
	Path      string
	Cause     error
	Transient bool
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract metadata from %q: %v", e.Path, e.Cause)
}
func (e *ExtractionError) Unwrap() error { return e.Cause }
func (e *ExtractionError) IsTransient() bool { return e.Transient }

// ThumbnailError reports a failed still-frame extraction.
type ThumbnailError struct {
	Path      string
	Cause     error
	Transient bool
}

func (e *ThumbnailError) Error() string {
	return fmt.Sprintf("generate thumbnail for %q: %v", e.Path, e.Cause)
}
func (e *ThumbnailError) Unwrap() error { return e.Cause }
func (e *ThumbnailError) IsTransient() bool { return e.Transient }

// TranscodeError reports a failed re-encode.
type TranscodeError struct {
	Path      string
	Cause     error
	Transient bool
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %q: %v", e.Path, e.Cause)
}
func (e *TranscodeError) Unwrap() error { return e.Cause }
func (e *TranscodeError) IsTransient() bool { return e.Transient }

// UploadError reports a failed object store transfer (either direction).
type UploadError struct {
	Bucket string
	Key    string
	Cause  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("object store %s/%s: %v", e.Bucket, e.Key, e.Cause)
}
func (e *UploadError) Unwrap() error { return e.Cause }
func (e *UploadError) IsTransient() bool { return true }

// StatusWriteError reports a failed status store write. It is logged
// by callers, never propagated into the pipeline outcome.
type StatusWriteError struct {
	ID    string
	Cause error
}

func (e *StatusWriteError) Error() string {
	return fmt.Sprintf("write status for %s: %v", e.ID, e.Cause)
}
func (e *StatusWriteError) Unwrap() error { return e.Cause }

// RetryExhaustedError wraps the last error after the retry policy has
// used up all attempts for an operation.
type RetryExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Last)
}
func (e *RetryExhaustedError) Unwrap() error { return e.Last }

type transienter interface {
	IsTransient() bool
}

// IsTransient reports whether err is worth retrying. Errors that do not
// declare a classification default to transient, so unexpected failures
// still get retried.
func IsTransient(err error) bool {
	var t transienter
	if errors.As(err, &t) {
		return t.IsTransient()
	}
	return true
}
