package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode_RelayAndConfigurationErrors(t *testing.T) {
	cases := map[string]error{
		"configuration": NewConfigurationError("Email service configuration error.", nil),
		"connection":    NewRelayConnectionError("Email service connection failed.", errors.New("dial tcp: i/o timeout")),
		"dispatch":      NewRelayDispatchError("Failed to send email.", errors.New("554 rejected")),
	}

	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, StatusInternalServerError, HTTPStatusCode(err))
		})
	}
}

func TestDetails_OnlyExposesDispatchCause(t *testing.T) {
	dispatch := fmt.Errorf("wrapped: %w", NewRelayDispatchError("Failed to send email.", errors.New("554 rejected")))
	assert.Equal(t, "554 rejected", Details(dispatch))

	conn := NewRelayConnectionError("Email service connection failed.", errors.New("535 auth failed"))
	assert.Empty(t, Details(conn))

	assert.Empty(t, Details(NewRelayDispatchError("Failed to send email.", nil)))
	assert.Empty(t, Details(errors.New("plain")))
}

func TestGetHumanReadableMessage_HidesInternalErrors(t *testing.T) {
	assert.Equal(t, "Failed to send email.", GetHumanReadableMessage(NewRelayDispatchError("Failed to send email.", errors.New("x"))))
	assert.Equal(t, "An unexpected error occurred", GetHumanReadableMessage(errors.New("pq: password authentication failed")))
}

func TestHTTPStatusCode_ClientErrors(t *testing.T) {
	assert.Equal(t, StatusBadRequest, HTTPStatusCode(NewInvalidRequestError("Missing required fields.", nil)))
	assert.Equal(t, StatusConflict, HTTPStatusCode(fmt.Errorf("claim: %w", NewConflictError("in progress", nil))))
	assert.Equal(t, StatusInternalServerError, HTTPStatusCode(errors.New("boom")))
	assert.Equal(t, StatusInternalServerError, HTTPStatusCode(nil))
}
