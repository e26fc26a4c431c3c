package errors

import (
	"errors"
	"fmt"
)

const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusConflict            = 409
	StatusInternalServerError = 500
)

const (
	ErrorTypeDatabaseError       = "DATABASE_ERROR"
	ErrorTypeInvalidRequest      = "INVALID_REQUEST"
	ErrorTypeConflict            = "CONFLICT"
	ErrorTypeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnknown             = "UNKNOWN_ERROR"
	ErrorTypeConfiguration       = "CONFIGURATION_ERROR"
	ErrorTypeRelayConnection     = "RELAY_CONNECTION_ERROR"
	ErrorTypeRelayDispatch       = "RELAY_DISPATCH_ERROR"
)

// AppError carries a user-facing Message; Err is the internal cause and is
// never shown to visitors except through Details.
type AppError struct {
	Type    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(errType, message string, err error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

func NewInvalidRequestError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInvalidRequest, message, err)
}

func NewDatabaseError(message string, err error) *AppError {
	return NewAppError(ErrorTypeDatabaseError, message, err)
}

func NewConflictError(message string, err error) *AppError {
	return NewAppError(ErrorTypeConflict, message, err)
}

func NewInternalServerError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInternalServerError, message, err)
}

// NewConfigurationError reports missing or invalid relay settings.
func NewConfigurationError(message string, err error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, err)
}

// NewRelayConnectionError reports that the relay could not be reached or
// refused the credentials.
func NewRelayConnectionError(message string, err error) *AppError {
	return NewAppError(ErrorTypeRelayConnection, message, err)
}

// NewRelayDispatchError reports a relay that was reached but rejected the message.
func NewRelayDispatchError(message string, err error) *AppError {
	return NewAppError(ErrorTypeRelayDispatch, message, err)
}

// Details returns the wrapped cause of a relay dispatch failure so callers can
// surface the provider's diagnostic. Other error types return "".
func Details(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Type != ErrorTypeRelayDispatch || appErr.Err == nil {
		return ""
	}
	return appErr.Err.Error()
}

func GetErrorType(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	return ErrorTypeUnknown
}
