package letta

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the agent runtime. It distinguishes
// not-found (which triggers a create path upstream) from other failures.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("letta API %s %s returned HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("letta API %s %s returned HTTP %d", e.Method, e.Path, e.StatusCode)
}

// IsNotFound reports whether err is a runtime 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a runtime 409.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}
