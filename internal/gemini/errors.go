package gemini

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// ErrNoImage means the model answered without inline image data.
var ErrNoImage = errors.New("no image in Gemini response")

// IsRateLimited reports quota or rate-limit rejections. These must not be retried
// within the same cycle.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := apiErrorCode(err); ok && code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "quota")
}

// IsModelUnavailable reports errors where another model may still succeed.
func IsModelUnavailable(err error) bool {
	if err == nil || IsRateLimited(err) {
		return false
	}
	if code, ok := apiErrorCode(err); ok {
		switch code {
		case http.StatusNotFound, http.StatusServiceUnavailable:
			return true
		}
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	return strings.Contains(msg, "404") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(lower, "not found") ||
		strings.Contains(lower, "overloaded")
}

// apiErrorCode extracts the HTTP code from a genai.APIError. The SDK returns
// it by value; pointers are accepted too.
func apiErrorCode(err error) (int, bool) {
	var val genai.APIError
	if errors.As(err, &val) {
		return val.Code, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, true
	}
	return 0, false
}
