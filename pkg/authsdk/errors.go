package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/lectern/pkg/errx"
)

// parseErrorResponse turns a non-success response into an *errx.Error so
// callers can branch with errors.Is against the errx values:
//
//	if errors.Is(err, errx.ErrSessionTerminated) { ... }
//
// Bodies that are not the service's error shape become a generic error
// carrying the status.
func parseErrorResponse(status int, body []byte) error {
	var b errx.Body
	if err := json.Unmarshal(body, &b); err == nil && b.Code != "" {
		return errx.New(status, b.Code, b.Message)
	}

	code := errx.CodeInternal
	switch {
	case status == http.StatusNotFound:
		code = errx.CodeNotFound
	case status == http.StatusServiceUnavailable:
		code = errx.CodeServiceUnavailable
	}
	return errx.New(status, code, fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)))
}
