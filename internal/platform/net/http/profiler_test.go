package http_test

import (
	"net/http"
	"testing"

	"repertoire/internal/platform/config"
	phttp "repertoire/internal/platform/net/http"
)

func TestMountProfiler(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		r := phttp.NewServer(config.New()).Router()
		phttp.MountProfiler(r, "/debug", enabled)

		want := http.StatusNotFound
		if enabled {
			want = http.StatusOK
		}
		for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline"} {
			if rec := serve(r.Mux(), http.MethodGet, path); rec.Code != want {
				t.Fatalf("enabled=%v %s: %d, want %d", enabled, path, rec.Code, want)
			}
		}
	}
}
