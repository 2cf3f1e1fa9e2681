package errors

import (
	"errors"
	"fmt"
)

// Error represents a pipeline error with context about the operation that failed.
type Error struct {
	// Code classifies the failure
	Code ErrorCode

	// Op is the operation that failed (e.g., "preflight", "publish", "get")
	Op string

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// Fatal reports whether the error aborts a run.
func (e *Error) Fatal() bool {
	return e.Code.Fatal()
}

// NewError creates a new Error with the given code, operation and underlying error.
func NewError(code ErrorCode, op string, err error) *Error {
	return &Error{
		Code: code,
		Op:   op,
		Err:  err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(code ErrorCode, op, bucket, key string, err error) *Error {
	return &Error{
		Code:   code,
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for common failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("access denied")

	// ErrConnection indicates the store could not be reached
	ErrConnection = errors.New("connection error")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("invalid object key")

	// ErrArchiveNotFound indicates the archive object does not exist
	ErrArchiveNotFound = errors.New("archive not found")

	// ErrCorruptArchive indicates the archive is not a valid container or is truncated
	ErrCorruptArchive = errors.New("corrupt archive")
)

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsFatal reports whether err carries a code that aborts a run.
func IsFatal(err error) bool {
	return CodeOf(err).Fatal()
}
