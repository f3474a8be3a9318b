// Package httpkit is the handler and routing surface modules build on
// modules import this rather than internal/platform/net/http
package httpkit

import (
	"net/http"

	phttp "repertoire/internal/platform/net/http"
	"repertoire/internal/platform/net/http/bind"
)

type (
	// Response is the return-style handler result
	Response = phttp.Response

	// Handler is the platform handler type
	Handler = phttp.Handler

	// Router is a re-export of the platform router seam
	Router = phttp.Router
)

// OK returns a 200 response
func OK(data any) Response { return phttp.OK(data) }

// Error returns a response that maps an error to status and envelope
func Error(err error) Response { return phttp.Error(err) }

// Call adapts a handler returning a value or a Response
func Call(fn func(*http.Request) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		out, err := fn(r)
		if err != nil {
			return Error(err)
		}
		if resp, ok := out.(Response); ok {
			return resp
		}
		return OK(out)
	})
}

// Handle adapts a Response-returning function
func Handle(fn func(*http.Request) Response) Handler {
	return phttp.Handle(fn)
}

// Get mounts fn under GET path wrapped by Call
func Get(r Router, path string, fn func(*http.Request) (any, error)) {
	r.Get(path, Call(fn))
}

// PathInt64 reads a positive integer route parameter
func PathInt64(r *http.Request, name string) (int64, error) { return phttp.PathInt64(r, name) }

// Query decodes and validates URL query parameters into T
func Query[T any](r *http.Request) (T, error) { return bind.Query[T](r) }

// RespondError writes an error envelope for handlers that stream their own body
func RespondError(w http.ResponseWriter, r *http.Request, err error) { phttp.RespondError(w, r, err) }
