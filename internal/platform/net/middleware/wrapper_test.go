package middleware_test

import (
	"compress/flate"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"repertoire/internal/platform/net/middleware"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestCompress_GzipsTSV(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/tab-separated-values")
		_, _ = io.WriteString(w, strings.Repeat("1\tCASSLGQ\t12\n", 400))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clones/1/export", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()

	middleware.Compress(flate.DefaultCompression)(h).ServeHTTP(rr, req)

	if enc := rr.Result().Header.Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("Content-Encoding = %q", enc)
	}
}

func TestCORS_ReadOnlyMethods(t *testing.T) {
	cors := middleware.CORS(middleware.CORSOptions{AllowedOrigins: []string{"https://lab.example"}})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	preflight := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/clones", nil)
		req.Header.Set("Origin", "https://lab.example")
		req.Header.Set("Access-Control-Request-Method", method)
		rr := httptest.NewRecorder()
		cors(h).ServeHTTP(rr, req)
		return rr
	}

	if rr := preflight(http.MethodGet); rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("GET preflight should be allowed")
	}
	if rr := preflight(http.MethodDelete); rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("DELETE preflight should be refused")
	}
}

func TestDefaults_BundleRuns(t *testing.T) {
	chain := middleware.Defaults()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rid := chimw.GetReqID(r.Context()); rid == "" {
			t.Fatalf("expected request id in context")
		}
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err != nil || host == "" {
			if ip := net.ParseIP(r.RemoteAddr); ip == nil {
				t.Fatalf("RemoteAddr = %q", r.RemoteAddr)
			}
		}
		w.WriteHeader(200)
	})

	var wrapped http.Handler = h
	for i := len(chain) - 1; i >= 0; i-- {
		wrapped = chain[i](wrapped)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "10.1.2.3")
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}

func TestDefaults_PanicBecomesJSON500(t *testing.T) {
	chain := middleware.Defaults()
	var wrapped http.Handler = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("tree builder exploded")
	})
	for i := len(chain) - 1; i >= 0; i-- {
		wrapped = chain[i](wrapped)
	}

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/clones/3/tree", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("content type %q", rr.Header().Get("Content-Type"))
	}
}
