package middleware

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/sfi2k7/bluequery"
)

type (
	// ErrorHandler writes the response for a failed parameter load.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

	// HTTPError represents an HTTP error
	HTTPError struct {
		Code    int
		Message string
		Err     error // Original error
	}
)

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// toHTTPError converts a load error. Validation failures are the client's
// fault; a key that cannot be restored is treated as not found.
func toHTTPError(err error) *HTTPError {
	var httpError *HTTPError
	if errors.As(err, &httpError) {
		return httpError
	}

	switch bluequery.KindOf(err) {
	case bluequery.ValueTooLong, bluequery.InvalidFormat, bluequery.MultipleValuesNotAllowed:
		return &HTTPError{Code: http.StatusBadRequest, Message: err.Error(), Err: err}
	case bluequery.NotStorable:
		return &HTTPError{Code: http.StatusNotFound, Message: "unknown parameters key", Err: err}
	}
	return &HTTPError{Code: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
}

// DefaultErrorHandler writes the status and message of the converted error.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	httpError := toHTTPError(err)
	http.Error(w, httpError.Message, httpError.Code)
}
