package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"repertoire/internal/platform/net/middleware"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestAccessLog_PassesStatusAndBody(t *testing.T) {
	mw := middleware.AccessLog(middleware.AccessLogOptions{})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"clone 9 not found"}`)
	})

	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/clones/9", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d", rr.Code)
	}
	if rr.Body.String() != `{"error":"clone 9 not found"}` {
		t.Fatalf("body %q", rr.Body.String())
	}
}

func TestAccessLog_SlowDoesNotChangeResponse(t *testing.T) {
	mw := middleware.AccessLog(middleware.AccessLogOptions{Slow: time.Nanosecond})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Microsecond)
		_, _ = w.Write([]byte("(a:1,b:2);"))
		_, _ = w.Write([]byte("\n"))
	})

	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/clones/1/tree", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if rr.Body.String() != "(a:1,b:2);\n" {
		t.Fatalf("body %q", rr.Body.String())
	}
}

func TestAccessLog_TagsHandlerContext(t *testing.T) {
	var inner string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = chimw.GetReqID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := chimw.RequestID(middleware.AccessLog(middleware.AccessLogOptions{})(next))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodHead, "/api/v1/subjects", nil))
	if rr.Code != http.StatusNoContent || inner == "" {
		t.Fatalf("status %d, request id %q", rr.Code, inner)
	}
}
