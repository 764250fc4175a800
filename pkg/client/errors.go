package client

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUnexpectedStatus is wrapped by every FetchError caused by a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a body that is not valid JSON.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassRequest represents a URL that could not be turned into a request.
	ErrorClassRequest ErrorClass = "request"
)

// FetchError describes a failed fetch of one URL.
type FetchError struct {
	URL        string
	StatusCode int
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 && e.Class != ErrorClassDecode {
		return fmt.Sprintf("fetch %s: %s error (status %d): %v", e.URL, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s error: %v", e.URL, e.Class, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a timeout.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// classifyStatus maps a non-2xx status code to an error class.
func classifyStatus(statusCode int) ErrorClass {
	if statusCode >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}
