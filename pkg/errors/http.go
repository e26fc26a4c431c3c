package errors

import (
	"errors"
)

var statusByType = map[string]int{
	ErrorTypeInvalidRequest: StatusBadRequest,
	ErrorTypeConflict:       StatusConflict,
}

// HTTPStatusCode maps an error onto a response status. Database, relay and
// configuration failures are all 500s; only the message tells them apart.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}
	return StatusInternalServerError
}

func GetHumanReadableMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}

	// Never leak internal error strings (DB errors, dial errors and so on).
	return "An unexpected error occurred"
}
