package httpx

import (
	"context"
	"errors"
	"net"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether err looks transient: a timeout, a network
// failure, or an HTTP status that usually clears on its own.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		code := sc.HTTPStatusCode()
		if code == 0 {
			return true
		}
		return IsRetryableHTTPStatus(code)
	}
	return false
}

// Excerpt trims a response body for inclusion in error messages.
func Excerpt(body []byte, max int) string {
	if max <= 0 || len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
