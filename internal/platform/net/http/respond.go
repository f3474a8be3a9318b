// Package http is the platform HTTP layer: the router seam, the server and
// the JSON envelope every handler answers with
package http

import (
	"encoding/json"
	stdhttp "net/http"

	lumnet "repertoire/internal/platform/net"
)

type Envelope = lumnet.Envelope

// JSON writes v with status. Encoding errors are dropped, the header is
// already out by then
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes the error envelope for err
func RespondError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	status, env := lumnet.Error(err, lumnet.RequestID(r.Context()))
	JSON(w, status, env)
}

// Response is the result of a return style handler. An error Body is
// written as an error envelope; Status zero means 200
type Response struct {
	Status int
	Body   any
	Header stdhttp.Header
}

func OK(data any) Response     { return Response{Status: stdhttp.StatusOK, Body: data} }
func Error(err error) Response { return Response{Body: err} }

// Handle adapts a Response returning handler to net/http
func Handle(h func(r *stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		resp := h(r)
		for k, vv := range resp.Header {
			for _, v := range vv {
				w.Header().Add(k, v)
			}
		}
		if err, ok := resp.Body.(error); ok && err != nil {
			RespondError(w, r, err)
			return
		}
		status := resp.Status
		if status == 0 {
			status = stdhttp.StatusOK
		}
		JSON(w, status, lumnet.Data(status, resp.Body, lumnet.RequestID(r.Context())))
	}
}
