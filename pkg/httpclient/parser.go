package httpclient

import (
	"encoding/json"
	"fmt"
)

// DecodeJSON parses the body into a generic JSON value for expression evaluation.
func DecodeJSON(resp *Response) (any, error) {
	if len(resp.Body) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return result, nil
}

// IsSuccessStatus returns true if the status code indicates success
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// IsRetryableStatus returns true if the status code indicates a retryable error
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
