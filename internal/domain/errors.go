package domain

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// StatusError is a non-success HTTP answer from the backend.
type StatusError struct {
	Endpoint string
	Code     int
	Detail   string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Endpoint, e.Code)
}

// Unwrap maps 404/401/403 onto the sentinels so errors.Is keeps working.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case 404:
		return ErrNotFound
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	}
	return nil
}

var deniedText = regexp.MustCompile(`(?i)\b(not found|404|403|forbidden|401|unauthorized|access denied)\b`)

// IsNotFoundOrDenied reports whether err means the property does not exist
// or the caller may not see it. A status code decides when there is one.
// Transport failures never qualify, whatever their URL contains. Other
// upstream errors do not always wrap the sentinels, so their message is
// matched on whole words.
func IsNotFoundOrDenied(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 404 || se.Code == 401 || se.Code == 403
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrUnauthorized) {
		return true
	}
	var ue *url.Error
	var ne net.Error
	if errors.As(err, &ue) || errors.As(err, &ne) {
		return false
	}
	return deniedText.MatchString(err.Error())
}

// StatusCode returns the HTTP status behind a not-found or denied error,
// 0 when err is neither.
func StatusCode(err error) int {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return se.Code
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrUnauthorized):
		return 401
	case errors.Is(err, ErrForbidden):
		return 403
	}
	return 0
}
