package errors

import "fmt"

// ErrorCode classifies failures across the messaging layer.
type ErrorCode string

const (
	ErrCodeTopologyConflict        ErrorCode = "TOPOLOGY_CONFLICT"
	ErrCodeTransientPublish        ErrorCode = "TRANSIENT_PUBLISH"
	ErrCodePermanentPublishFailure ErrorCode = "PERMANENT_PUBLISH_FAILURE"
	ErrCodeTransientConsume        ErrorCode = "TRANSIENT_CONSUME"
	ErrCodeHandler                 ErrorCode = "HANDLER_ERROR"
	ErrCodeMalformedEnvelope       ErrorCode = "MALFORMED_ENVELOPE"
	ErrCodeNotFound                ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput            ErrorCode = "INVALID_INPUT"
)

// AppError carries a code alongside the underlying cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// CodeOf returns the error's code, or empty for plain errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ""
}

// IsRetryable reports whether a failed operation is worth another attempt.
// Unknown errors default to retryable: the bounded attempt counters cap the
// damage either way.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return true
	}

	switch appErr.Code {
	case ErrCodeTopologyConflict, ErrCodePermanentPublishFailure,
		ErrCodeMalformedEnvelope, ErrCodeInvalidInput:
		return false
	}
	return true
}

func NewTopologyConflict(message string, err error) *AppError {
	return &AppError{Code: ErrCodeTopologyConflict, Message: message, Err: err}
}

func NewTransientPublish(message string, err error) *AppError {
	return &AppError{Code: ErrCodeTransientPublish, Message: message, Err: err}
}

func NewPermanentPublishFailure(message string, err error) *AppError {
	return &AppError{Code: ErrCodePermanentPublishFailure, Message: message, Err: err}
}

func NewTransientConsume(message string, err error) *AppError {
	return &AppError{Code: ErrCodeTransientConsume, Message: message, Err: err}
}

func NewHandlerError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeHandler, Message: message, Err: err}
}

func NewMalformedEnvelope(message string) *AppError {
	return &AppError{Code: ErrCodeMalformedEnvelope, Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

func NewInvalidInput(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}
