package errx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// BadRequestMessage is returned for malformed chat requests.
	BadRequestMessage = "invalid request"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a key does not exist.
	RedisNotFoundMessage = "redis key not found"
	// ElasticErrorMessage describes vector store failures.
	ElasticErrorMessage = "vector store operation failed"
	// UpstreamTimeoutMessage describes a model call that exceeded its deadline.
	UpstreamTimeoutMessage = "upstream call timed out"
	// UpstreamErrorMessage describes a failed model call.
	UpstreamErrorMessage = "upstream call failed"
)

// Failure taxonomy shared by every stage of the pipeline.
var (
	ErrUpstreamTimeout         = errors.New("upstream timeout")
	ErrUpstreamUnavailable     = errors.New("upstream unavailable")
	ErrClassificationAmbiguous = errors.New("classification ambiguous")
	ErrConfigurationMissing    = errors.New("configuration missing")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// BadRequest marks a client error; message is safe to return to the caller.
func BadRequest(message string) *AppError {
	return New(nil, http.StatusBadRequest, message)
}

// Missing reports a required configuration value that was not provided.
func Missing(name string) error {
	return fmt.Errorf("%w: %s", ErrConfigurationMissing, name)
}

// Status returns the HTTP status carried by err, or 500.
func Status(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// SafeMessage returns the message that may be shown to a client.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}

// IsTimeout reports whether err was caused by an exceeded deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout) || errors.Is(err, context.DeadlineExceeded)
}
