package downstream

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when a breaker rejects a call.
var ErrUnavailable = errors.New("downstream service unavailable")

// RestError is an error answer of a downstream service. Its body is relayed
// to the gateway client with Status.
type RestError struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	Status       int    `json:"-"`
}

// Error implements the error interface.
func (e *RestError) Error() string {
	return fmt.Sprintf("downstream returned status %d: %d %s", e.Status, e.ErrorCode, e.ErrorMessage)
}

// serverError marks a 5xx answer for the breaker.
func (e *RestError) serverError() bool {
	return e.Status >= 500
}
