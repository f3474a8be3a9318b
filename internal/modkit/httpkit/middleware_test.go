package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveStack(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, int) {
	t.Helper()
	hits := 0
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	})
	stack := CommonStack()
	for i := len(stack) - 1; i >= 0; i-- {
		h = stack[i](h)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, hits
}

func TestCommonStack(t *testing.T) {
	t.Run("reaches handler uncached", func(t *testing.T) {
		rr, hits := serveStack(t, httptest.NewRequest(http.MethodGet, "/clones", nil))
		if hits != 1 || rr.Code != http.StatusNoContent {
			t.Fatalf("hits %d status %d", hits, rr.Code)
		}
		if rr.Header().Get("Cache-Control") == "" {
			t.Fatalf("responses must not be cached")
		}
	})

	t.Run("heartbeat answers itself", func(t *testing.T) {
		rr, hits := serveStack(t, httptest.NewRequest(http.MethodGet, "/health", nil))
		if hits != 0 || rr.Code != http.StatusOK {
			t.Fatalf("hits %d status %d", hits, rr.Code)
		}
	})

	t.Run("trailing slash redirects", func(t *testing.T) {
		rr, hits := serveStack(t, httptest.NewRequest(http.MethodGet, "/samples/", nil))
		if hits != 0 || rr.Code != http.StatusMovedPermanently {
			t.Fatalf("hits %d status %d", hits, rr.Code)
		}
	})

	t.Run("cors preflight for reads", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/clones/4/tree", nil)
		req.Header.Set("Origin", "https://viewer.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rr, hits := serveStack(t, req)
		if hits != 0 || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("hits %d headers %v", hits, rr.Header())
		}
	})
}
