package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// ErrorType groups errors by which part of the pipeline produced them.
type ErrorType string

const (
	ErrorTypeAuth     ErrorType = "authorization"
	ErrorTypeCollect  ErrorType = "collect"
	ErrorTypeAPI      ErrorType = "api"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeDatabase ErrorType = "database"
	ErrorTypeInternal ErrorType = "internal"
)

// AppError carries an error type and code alongside the message so callers
// can match on taxonomy instead of string content.
type AppError struct {
	Type     ErrorType
	Code     string
	Message  string
	Internal error
	Source   string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is matches two AppErrors by type and code, so wrapped instances compare
// equal to the package sentinels under errors.Is.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return errors.Is(e.Internal, target)
}

// New creates an AppError tagged with its construction site.
func New(errorType ErrorType, code, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)
	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Source:  fmt.Sprintf("%s:%d", file, line),
	}
}

// Wrap attaches taxonomy to an existing error.
func Wrap(err error, errorType ErrorType, code, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)
	return &AppError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Internal: err,
		Source:   fmt.Sprintf("%s:%d", file, line),
	}
}

// Sentinels for the failure modes that have no dynamic payload. Wrapped
// copies created via Wrap with the same type and code still satisfy
// errors.Is against these.
var (
	// ErrHealthDataUnavailable: the device has no health store at all.
	ErrHealthDataUnavailable = New(ErrorTypeAuth, "HEALTH_DATA_UNAVAILABLE", "health data is not available on this device")

	// ErrAllSourcesFailed: every sample query in one collect call failed.
	ErrAllSourcesFailed = New(ErrorTypeCollect, "ALL_SOURCES_FAILED", "all health data queries failed")

	// ErrInvalidResponse: a 2xx response that violates the API contract.
	ErrInvalidResponse = New(ErrorTypeAPI, "INVALID_RESPONSE", "server response violates the API contract")

	// ErrInvalidData: a response body that could not be decoded or carries
	// malformed fields.
	ErrInvalidData = New(ErrorTypeAPI, "INVALID_DATA", "server returned malformed data")
)

// AuthorizationError reports that the health provider rejected the
// authorization request itself.
type AuthorizationError struct {
	Err error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization request failed: %v", e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response from the backend. Message prefers the
// server's structured detail body when one was present.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// NetworkError is a transport-level failure: timeout, DNS, connection reset.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Handler routes errors to the structured logger by taxonomy.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates an error handler backed by the given logger.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle logs err at a level appropriate to its kind. Nil errors are ignored.
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var netErr *NetworkError
	var srvErr *ServerError
	var authErr *AuthorizationError
	var appErr *AppError

	switch {
	case errors.As(err, &netErr):
		h.logger.WarnContext(ctx, "network failure", "op", netErr.Op, "error", netErr.Err)
	case errors.As(err, &srvErr):
		h.logger.ErrorContext(ctx, "server rejected request", "status", srvErr.StatusCode, "message", srvErr.Message)
	case errors.As(err, &authErr):
		h.logger.WarnContext(ctx, "authorization failed", "error", authErr.Err)
	case errors.As(err, &appErr):
		h.handleAppError(ctx, appErr)
	default:
		h.logger.ErrorContext(ctx, "unhandled error", "error", err)
	}
}

func (h *Handler) handleAppError(ctx context.Context, err *AppError) {
	fields := []any{"error_type", err.Type, "error_code", err.Code, "source", err.Source}
	if err.Internal != nil {
		fields = append(fields, "cause", err.Internal.Error())
	}
	switch err.Type {
	case ErrorTypeAuth, ErrorTypeConfig:
		h.logger.WarnContext(ctx, err.Message, fields...)
	default:
		h.logger.ErrorContext(ctx, err.Message, fields...)
	}
}
