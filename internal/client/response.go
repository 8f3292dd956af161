package client

import (
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusIn reports whether the status is one of codes.
func (r *Response) StatusIn(codes ...int) bool {
	for _, c := range codes {
		if r.StatusCode == c {
			return true
		}
	}
	return false
}

// ValidJSON reports whether the body is well-formed JSON.
func (r *Response) ValidJSON() bool {
	return gjson.ValidBytes(r.Body)
}

// JSON returns the parsed body. Invalid JSON yields a non-existent result.
func (r *Response) JSON() gjson.Result {
	if !r.ValidJSON() {
		return gjson.Result{}
	}
	return gjson.ParseBytes(r.Body)
}

// Get evaluates a gjson path against the body, e.g. "id" or "#.reviewId".
func (r *Response) Get(path string) gjson.Result {
	if !r.ValidJSON() {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Body, path)
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}
