package client

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError is a network failure or a non-2xx HTTP response
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	// Message is the server-provided message, when the body carried one
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError is an HTTP success whose envelope reports status false
type ApplicationError struct {
	StatusCode int
	Message    string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return "content API reported failure"
	}
	return "content API reported failure: " + e.Message
}

// UserMessage extracts the message to show the dashboard user, falling back
// to fallback when the server supplied none.
func UserMessage(err error, fallback string) string {
	var appErr *ApplicationError
	if errors.As(err, &appErr) && strings.TrimSpace(appErr.Message) != "" {
		return appErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) && strings.TrimSpace(transportErr.Message) != "" {
		return transportErr.Message
	}
	return fallback
}
