package swaggerkit

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

type documented struct{}

func (documented) Document(d *Doc) {
	d.Add(Op{
		Method:  "GET",
		Path:    "/clones/{id}",
		Summary: "One clone",
		Tag:     "Clones",
		Params:  []Param{{Name: "id", In: "path", Type: "integer"}},
	})
}

func TestDoc_SpecCollectsOperations(t *testing.T) {
	d := NewDoc()
	d.Collect(documented{}, struct{}{})
	d.Add(Op{Method: "GET", Path: "/clones/{id}/export", Summary: "Export", Produces: "text/tab-separated-values"})

	spec := d.Spec()
	if spec["openapi"] != "3.0.3" {
		t.Fatalf("openapi = %v", spec["openapi"])
	}
	paths := spec["paths"].(map[string]any)
	get, ok := paths["/clones/{id}"].(map[string]any)["get"].(map[string]any)
	if !ok {
		t.Fatalf("missing GET /clones/{id}: %#v", paths)
	}
	params := get["parameters"].([]any)
	if p := params[0].(map[string]any); p["required"] != true {
		t.Fatalf("path params must be required: %#v", p)
	}
	resps := get["responses"].(map[string]any)
	for _, code := range []string{"200", "400", "500"} {
		if _, ok := resps[code]; !ok {
			t.Fatalf("missing %s response", code)
		}
	}

	export := paths["/clones/{id}/export"].(map[string]any)["get"].(map[string]any)
	content := export["responses"].(map[string]any)["200"].(map[string]any)["content"].(map[string]any)
	if _, ok := content["text/tab-separated-values"]; !ok {
		t.Fatalf("export content = %#v", content)
	}
}

func TestDoc_MutatorsRunLast(t *testing.T) {
	d := NewDoc()
	d.Mutate(nil)
	d.Mutate(func(spec map[string]any) { spec["x-pipeline"] = "repertoire" })
	if got := d.Spec()["x-pipeline"]; got != "repertoire" {
		t.Fatalf("mutator not applied: %v", got)
	}
}

func TestDoc_HandlerServesJSON(t *testing.T) {
	d := NewDoc()
	d.Collect(documented{})

	rec := httptest.NewRecorder()
	d.Handler()(rec, httptest.NewRequest("GET", "/api/docs/doc.json", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	var spec map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := spec["components"].(map[string]any)["schemas"].(map[string]any)["ErrorResponse"]; !ok {
		t.Fatalf("missing ErrorResponse schema")
	}
}

func TestEnsureServers_DowngradesOAS31(t *testing.T) {
	spec := map[string]any{"openapi": "3.1.0"}
	ensureServers(spec, "/api/v1")
	if spec["openapi"] != "3.0.3" {
		t.Fatalf("openapi = %v", spec["openapi"])
	}
	if _, ok := spec["servers"]; !ok {
		t.Fatalf("servers missing")
	}
}
