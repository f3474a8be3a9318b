package httpkit

import (
	"net/http"
	"time"

	"repertoire/internal/platform/net/middleware"
)

// CommonStack is the middleware applied under /api/v1
// the outer stack from middleware.Defaults is installed on the server mux
func CommonStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{}),
		middleware.Heartbeat("/health"),
		middleware.RedirectSlashes(),
		middleware.StripSlashes(),

		// tree rendering can hold a request for a while, keep a bounded queue
		middleware.Throttle(64, 256, 10*time.Second),
		middleware.Timeout(60 * time.Second),
	}
}
