package transport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIO classifies every failure to retrieve a tile. Match it with errors.Is.
var ErrIO = errors.New("tile io error")

// FetchError is returned when a tile could not be retrieved or decoded.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %v: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

func (e *FetchError) Is(target error) bool {
	return target == ErrIO
}

// NewFetchError wraps cause as an IO-class error for url. A FetchError is returned as is.
func NewFetchError(url string, cause error) error {
	var fe *FetchError
	if errors.As(cause, &fe) {
		return cause
	}
	return &FetchError{URL: url, Cause: cause}
}

// StatusError is an unexpected HTTP response status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return "unexpected response status " + e.Status
}

// ServiceException is an OWS exception reported by the server.
type ServiceException struct {
	Code    string
	Locator string
	Texts   []string
}

func (e *ServiceException) Error() string {
	var sb strings.Builder
	sb.WriteString("service exception")
	if e.Code != "" {
		sb.WriteString(" " + e.Code)
	}
	if e.Locator != "" {
		sb.WriteString(" (" + e.Locator + ")")
	}
	if len(e.Texts) > 0 {
		sb.WriteString(": " + strings.Join(e.Texts, "; "))
	}
	return sb.String()
}
