package mailer

import (
	"errors"
	"fmt"
)

// ErrOutcomeUnknown marks a send that was cut off after the message was handed
// to the relay. The provider may or may not have accepted it.
var ErrOutcomeUnknown = errors.New("delivery outcome unknown")

type ErrInvalidEnvelope struct{ Reason string }

func (e ErrInvalidEnvelope) Error() string { return "invalid email envelope: " + e.Reason }

// ConnectionError reports that the relay could not be reached or refused the credentials.
type ConnectionError struct {
	Provider string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("email relay connection failed (%s): %v", e.Provider, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SendError reports that the relay was reached but the message was not accepted.
type SendError struct {
	Provider string
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("email send failed (%s): %v", e.Provider, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

func IsSendError(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr)
}

func IsOutcomeUnknown(err error) bool {
	return errors.Is(err, ErrOutcomeUnknown)
}
