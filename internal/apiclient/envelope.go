package apiclient

import (
	"bytes"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// unwrap normalizes the two response envelopes the backend is known to emit
// into a single contract:
//
//	{success: true, ...fields}  -> fields (success key stripped)
//	{...fields}                 -> fields unchanged (legacy shape)
//	{success: false, message}   -> *APIError
//	{error: true, message}      -> *APIError
//	HTTP 204                    -> nil
//
// Order of checks matters and is load-bearing for compatibility.
func (c *Client) unwrap(status int, body []byte) (interface{}, error) {
	if status == http.StatusUnauthorized {
		c.invalidateSession()
	}

	if status < 200 || status >= 300 {
		return nil, &APIError{Status: status, Message: errorMessage(status, body)}
	}

	if status == http.StatusNoContent {
		return nil, nil
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &APIError{Status: status, Message: "invalid server response"}
	}

	record, ok := payload.(map[string]interface{})
	if !ok {
		// arrays and scalars have no envelope, pass through
		return payload, nil
	}

	if isFalse(record["success"]) || isTrue(record["error"]) {
		msg := cast.ToString(record["message"])
		if msg == "" {
			msg = "request failed"
		}
		return nil, &APIError{Status: status, Message: msg}
	}

	if isTrue(record["success"]) {
		delete(record, "success")
		return record, nil
	}

	// no success key at all: legacy shape, body returned unchanged
	return record, nil
}

// errorMessage picks the failure text for a non-2xx response: body message,
// then a string error field, then the raw body text, then the per-status
// default.
func errorMessage(status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	var record map[string]interface{}
	if err := json.Unmarshal(body, &record); err == nil {
		if msg := cast.ToString(record["message"]); msg != "" {
			return msg
		}
		if errStr, ok := record["error"].(string); ok && errStr != "" {
			return errStr
		}
	}
	if text != "" {
		return text
	}
	return defaultStatusMessage(status)
}

// isTrue and isFalse check for strict boolean values, mirroring the backend
// contract where success/error are booleans and anything else is ignored.
func isTrue(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

func isFalse(v interface{}) bool {
	b, ok := v.(bool)
	return ok && !b
}
