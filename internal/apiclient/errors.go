package apiclient

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hakim/vulntriage/internal/jsonutil"
)

// FallbackMessage is shown when the backend gives no usable error text.
const FallbackMessage = "request failed"

// ErrMalformedResponse marks a response body that is not valid JSON.
var ErrMalformedResponse = errors.New("malformed JSON response")

// RequestError is returned for transport failures, non-2xx responses and
// unparseable bodies. Message is always safe to show to a user.
type RequestError struct {
	Method   string
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *RequestError) Error() string {
	if e.Err != nil && e.Message == FallbackMessage {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the backend answered 404.
func (e *RequestError) NotFound() bool {
	return e.Status == 404
}

// UserMessage extracts the user-facing text from any error, preferring the
// server-supplied message of a RequestError.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return err.Error()
}

// errorMessage pulls the "error" member out of a JSON error payload. Both
// {"error":"text"} and {"error":{"message":"text"}} are accepted.
func errorMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return ""
	}

	var flat struct {
		Error any `json:"error"`
	}
	if err := jsonutil.Unmarshal(body, &flat); err != nil {
		return ""
	}

	switch v := flat.Error.(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return ""
}
