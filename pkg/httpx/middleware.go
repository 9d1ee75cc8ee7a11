package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware listed runs first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// HandlerFunc is an http handler that reports failures by returning them.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

func (f HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := f(w, r); err != nil {
		WriteError(w, r, err)
	}
}

// WriteError logs err against the request logger and writes the error body.
// Server side failures log the cause, client errors only the code.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e := errx.From(err)
	log := slogx.FromContext(r.Context())
	if e.Status >= http.StatusInternalServerError {
		log.Error("request failed", "code", e.Code, "status", e.Status, "err", err)
	} else {
		log.Warn("request rejected", "code", e.Code, "status", e.Status)
	}
	errx.Write(w, e)
}
