package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	phttp "repertoire/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func tagHeader(v string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Stack", v)
			next.ServeHTTP(w, r)
		})
	}
}

func TestMountAPIV1_NestsModulePrefixes(t *testing.T) {
	m := chi.NewRouter()
	r := phttp.AdaptChi(m)

	MountAPIV1(r, []func(http.Handler) http.Handler{tagHeader("api")}, func(api Router) {
		MountUnder(api, "/samples", []func(http.Handler) http.Handler{tagHeader("samples")}, func(sub Router) {
			Get(sub, "/", func(*http.Request) (any, error) { return []string{"s1"}, nil })
		})
		MountUnder(api, "/clones", nil, func(sub Router) {
			Get(sub, "/{id}", func(req *http.Request) (any, error) { return PathInt64(req, "id") })
		})
	})

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/samples/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("samples status %d", rec.Code)
	}
	if got := rec.Header().Values("X-Stack"); len(got) != 2 || got[0] != "api" || got[1] != "samples" {
		t.Fatalf("middleware order = %v", got)
	}

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/clones/7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("clones status %d", rec.Code)
	}
	if got := rec.Header().Values("X-Stack"); len(got) != 1 {
		t.Fatalf("clones should only carry the api stack, got %v", got)
	}
}

func TestMountAPI_TrimsLeadingSlash(t *testing.T) {
	m := chi.NewRouter()
	MountAPI(phttp.AdaptChi(m), "/v2", nil, func(api Router) {
		Get(api, "/ping", func(*http.Request) (any, error) { return "pong", nil })
	})

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}
