package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx answer from the backend. Message is the server's
// "error" (or "message") text when it sent one.
type APIError struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

type Kind int

const (
	KindNone Kind = iota
	// 401, handled globally before the caller sees it
	KindAuth
	// the server answered and said no
	KindRejected
	// no usable answer at all
	KindTransport
)

func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return KindTransport
	}
	if apiErr.StatusCode == http.StatusUnauthorized {
		return KindAuth
	}
	return KindRejected
}

// MessageOr returns the server-provided message carried by err, or fallback.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (b *errorBody) text() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}
