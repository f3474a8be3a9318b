package http

import "net/http"

// Handler is the plain handler shape routes register
type Handler = func(http.ResponseWriter, *http.Request)

// Router is the mounting surface. The API only serves reads, so only the
// read verbs are exposed; Handle covers anything else a mount needs
type Router interface {
	Get(path string, h Handler)
	Head(path string, h Handler)

	Handle(path string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Group(fn func(Router))
	Route(pattern string, fn func(Router))

	Mux() http.Handler
}
