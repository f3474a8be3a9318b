package modkit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"repertoire/internal/modkit/httpkit"
	phttp "repertoire/internal/platform/net/http"
	kit "repertoire/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
)

func header(name string, trail *[]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trail = append(*trail, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestBuild_Defaults(t *testing.T) {
	b := Build()
	if b.Name != "" || b.Prefix != "" || b.Ports != nil || len(b.Mw) != 0 {
		t.Fatalf("built = %+v", b)
	}
	var r httpkit.Router
	if b.Subrouter(r) != r {
		t.Fatalf("default subrouter should be identity")
	}
	b.Register(r)
}

func TestBuild_OptionsApplyInOrder(t *testing.T) {
	type ports struct{ Depth int }
	var trail []string
	mw := []func(http.Handler) http.Handler{header("a", &trail)}

	b := Build(
		WithName("trees"),
		WithName("clones"),
		WithPrefix("/clones"),
		WithMiddlewares(mw...),
		WithMiddlewares(header("b", &trail)),
		WithPorts(ports{Depth: 7}),
	)
	mw[0] = nil

	if b.Name != "clones" || b.Prefix != "/clones" {
		t.Fatalf("later options should win: %+v", b)
	}
	if p, ok := b.Ports.(ports); !ok || p.Depth != 7 {
		t.Fatalf("ports = %#v", b.Ports)
	}
	if len(b.Mw) != 2 || b.Mw[0] == nil {
		t.Fatalf("middleware not copied: %d", len(b.Mw))
	}
}

func TestBase_MountsUnderPrefix(t *testing.T) {
	var trail []string
	b := Build(
		WithName("samples"),
		WithPrefix("samples/"),
		WithMiddlewares(header("module", &trail)),
		WithSubrouter(func(r httpkit.Router) httpkit.Router {
			trail = append(trail, "subrouter")
			return r
		}),
		WithRegister(func(r httpkit.Router) {
			r.Get("/extra", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "extra") })
		}),
	)
	m := NewBase(b, func(r httpkit.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "list") })
	})

	if m.Name() != "samples" || m.Prefix() != "/samples" {
		t.Fatalf("name %q prefix %q", m.Name(), m.Prefix())
	}

	mux := chi.NewRouter()
	m.MountRoutes(phttp.AdaptChi(mux))

	for path, want := range map[string]string{"/samples/": "list", "/samples/extra": "extra"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK || rr.Body.String() != want {
			t.Fatalf("%s: %d %q", path, rr.Code, rr.Body.String())
		}
	}
	if got := strings.Join(trail, ","); got != "subrouter,module,module" {
		t.Fatalf("trail = %s", got)
	}
}

func TestBase_RequiresName(t *testing.T) {
	m := NewBase(Build(WithPrefix("/x")), nil)
	kit.MustPanic(t, func() { _ = m.Name() })
	kit.MustPanic(t, func() { _ = NewBase(Build(WithName("x")), nil).Prefix() })
}
