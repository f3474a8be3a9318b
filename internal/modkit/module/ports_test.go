package module

import (
	"strconv"
	"strings"
	"testing"

	"repertoire/internal/modkit/httpkit"
)

type renderer interface{ Render(cloneID int64) string }

type newick struct{ suffix string }

func (n newick) Render(id int64) string {
	return "(germline,c" + strconv.FormatInt(id, 10) + ")" + n.suffix
}

type fakeModule struct {
	name    string
	ports   any
	mounted bool
}

func (m *fakeModule) Name() string               { return m.name }
func (m *fakeModule) Ports() any                 { return m.ports }
func (m *fakeModule) MountRoutes(httpkit.Router) { m.mounted = true }

var _ Module = (*fakeModule)(nil)

func TestPortsOf(t *testing.T) {
	type treePorts struct {
		Renderer renderer
		Depth    int
	}
	type hidden struct {
		renderer renderer
	}

	cases := []struct {
		name  string
		ports any
		ok    bool
	}{
		{"nil ports", nil, false},
		{"direct value", newick{";"}, true},
		{"exported field", treePorts{Renderer: newick{";"}, Depth: 3}, true},
		{"unexported field", hidden{renderer: newick{";"}}, false},
		{"unrelated", 12, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PortsOf[renderer](&fakeModule{name: "trees", ports: tc.ports})
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got.Render(1) != "(germline,c1);" {
				t.Fatalf("render = %q", got.Render(1))
			}
		})
	}
}

func TestMustPortsOf(t *testing.T) {
	type exchangePorts struct{ Rows int }
	m := &fakeModule{name: "exchange", ports: exchangePorts{Rows: 4}}
	if got := MustPortsOf[exchangePorts](m); got.Rows != 4 {
		t.Fatalf("got %+v", got)
	}

	defer func() {
		msg, _ := recover().(string)
		if !strings.Contains(msg, "exchange") || !strings.Contains(msg, "requested port not found") {
			t.Fatalf("panic message = %q", msg)
		}
	}()
	_ = MustPortsOf[renderer](m)
}

func TestModule_MountRoutes(t *testing.T) {
	m := &fakeModule{name: "clones"}
	var mod Module = m
	mod.MountRoutes(nil)
	if !m.mounted {
		t.Fatal("MountRoutes not called")
	}
}
