// Package swaggerkit serves an OpenAPI document assembled from the mounted modules
package swaggerkit

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"repertoire/internal/core/version"

	"github.com/swaggo/swag/v2"
)

// instance is the swag registry name for the base document
const instance = "repertoire"

// baseTemplate is rendered by swag with the Spec fields
const baseTemplate = `{
  "openapi": "3.0.3",
  "info": {"title": "{{.Title}}", "description": "{{escape .Description}}", "version": "{{.Version}}"},
  "servers": [{"url": "{{.BasePath}}"}],
  "paths": {}
}`

var registerOnce sync.Once

func register() {
	registerOnce.Do(func() {
		swag.Register(instance, &swag.Spec{
			Version:          version.Info("repertoire-api").Version,
			BasePath:         "/api/v1",
			Title:            "repertoire API",
			Description:      "Read only access to samples, clones and lineage trees",
			InfoInstanceName: instance,
			SwaggerTemplate:  baseTemplate,
		})
	})
}

// SpecMutator lets callers tweak the parsed spec before it is served
type SpecMutator func(map[string]any)

// Param is one operation parameter
type Param struct {
	Name        string
	In          string // path or query
	Type        string // string, integer, boolean, number
	Description string
	Required    bool
}

// Op documents one route relative to the API base
type Op struct {
	Method   string
	Path     string
	Summary  string
	Tag      string
	Produces string // defaults to application/json
	Params   []Param
}

// Documenter is implemented by modules that describe their routes
type Documenter interface {
	Document(d *Doc)
}

// Doc collects operations and mutators for the served spec
type Doc struct {
	mu       sync.Mutex
	ops      []Op
	mutators []SpecMutator
}

// NewDoc returns an empty document
func NewDoc() *Doc { return &Doc{} }

// Add records operations; a later op for the same method and path wins
func (d *Doc) Add(ops ...Op) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, ops...)
}

// Mutate registers a spec mutator, applied after the defaults
func (d *Doc) Mutate(m SpecMutator) {
	if m == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutators = append(d.mutators, m)
}

// Collect asks every documenter to add its routes
func (d *Doc) Collect(mods ...any) {
	for _, m := range mods {
		if doc, ok := m.(Documenter); ok {
			doc.Document(d)
		}
	}
}

// Spec builds the document as a generic map
func (d *Doc) Spec() map[string]any {
	register()

	var spec map[string]any
	raw, err := swag.ReadDoc(instance)
	if err != nil || json.Unmarshal([]byte(raw), &spec) != nil {
		spec = map[string]any{"openapi": "3.0.3", "info": map[string]any{"title": "API", "version": "0.0.0"}}
	}
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		paths = map[string]any{}
		spec["paths"] = paths
	}

	d.mu.Lock()
	ops := append([]Op(nil), d.ops...)
	muts := append([]SpecMutator(nil), d.mutators...)
	d.mu.Unlock()

	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })
	for _, op := range ops {
		node, ok := paths[op.Path].(map[string]any)
		if !ok {
			node = map[string]any{}
			paths[op.Path] = node
		}
		node[strings.ToLower(op.Method)] = operation(op)
	}

	ensureServers(spec, "/api/v1")
	ensureErrorResponseDefinition(spec)
	addDefaultResponse(spec, http.StatusInternalServerError, 1, "panic recovered")
	addDefaultResponse(spec, http.StatusBadRequest, 8, "limit must be 500 or less")

	for _, m := range muts {
		m(spec)
	}
	return spec
}

// Handler serves the document as JSON
func (d *Doc) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(d.Spec())
	}
}

func operation(op Op) map[string]any {
	produces := op.Produces
	if produces == "" {
		produces = "application/json"
	}
	out := map[string]any{
		"summary": op.Summary,
		"responses": map[string]any{
			"200": map[string]any{
				"description": "ok",
				"content":     map[string]any{produces: map[string]any{}},
			},
		},
	}
	if op.Tag != "" {
		out["tags"] = []any{op.Tag}
	}
	if len(op.Params) > 0 {
		params := make([]any, 0, len(op.Params))
		for _, p := range op.Params {
			typ := p.Type
			if typ == "" {
				typ = "string"
			}
			params = append(params, map[string]any{
				"name":        p.Name,
				"in":          p.In,
				"required":    p.Required || p.In == "path",
				"description": p.Description,
				"schema":      map[string]any{"type": typ},
			})
		}
		out["parameters"] = params
	}
	return out
}

// ensureServers pins the spec to OAS 3.0.3 with a servers entry
// the swagger ui cannot render 3.1 yet
func ensureServers(spec map[string]any, url string) {
	if _, hasSwagger := spec["swagger"]; hasSwagger {
		delete(spec, "swagger")
	}
	if v, ok := spec["openapi"].(string); !ok || strings.HasPrefix(v, "3.1") {
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": url}}
	}
}

// ensureErrorResponseDefinition adds the error envelope model if missing
// kept minimal so it does not drift from the runtime wire
func ensureErrorResponseDefinition(spec map[string]any) {
	comps, ok := spec["components"].(map[string]any)
	if !ok {
		comps = map[string]any{}
		spec["components"] = comps
	}
	schemas, ok := comps["schemas"].(map[string]any)
	if !ok {
		schemas = map[string]any{}
		comps["schemas"] = schemas
	}
	if _, ok := schemas["ErrorResponse"]; ok {
		return
	}
	schemas["ErrorResponse"] = map[string]any{
		"type":        "object",
		"description": "Standard error response",
		"properties": map[string]any{
			"status_code": map[string]any{"type": "integer", "format": "int32"},
			"status":      map[string]any{"type": "string"},
			"code":        map[string]any{"type": "integer", "format": "int32"},
			"error":       map[string]any{"type": "string"},
			"request_id":  map[string]any{"type": "string"},
		},
		"required": []any{"status_code", "status"},
	}
}

// addDefaultResponse injects an error response into every operation lacking one
func addDefaultResponse(spec map[string]any, status, code int, example string) {
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		return
	}
	key, text := strconv.Itoa(status), http.StatusText(status)
	resp := map[string]any{
		"description": text,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				"example": map[string]any{
					"status_code": status,
					"status":      text,
					"code":        code,
					"error":       example,
				},
			},
		},
	}
	for _, p := range paths {
		node, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, opAny := range node {
			op, ok := opAny.(map[string]any)
			if !ok {
				continue
			}
			responses, ok := op["responses"].(map[string]any)
			if !ok {
				responses = map[string]any{}
				op["responses"] = responses
			}
			if _, exists := responses[key]; !exists {
				responses[key] = resp
			}
		}
	}
}
