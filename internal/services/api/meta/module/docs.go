package module

import "repertoire/internal/modkit/swaggerkit"

// Document describes the meta routes
func (m *Module) Document(d *swaggerkit.Doc) {
	p := m.Prefix()
	d.Add(
		swaggerkit.Op{Method: "GET", Path: p + "/health", Tag: "Meta", Summary: "Health check"},
		swaggerkit.Op{Method: "GET", Path: p + "/ready", Tag: "Meta", Summary: "Readiness probe with dependency checks"},
		swaggerkit.Op{Method: "GET", Path: p + "/version", Tag: "Meta", Summary: "Build and version info"},
		swaggerkit.Op{Method: "GET", Path: p + "/service", Tag: "Meta", Summary: "Service info and uptime"},
		swaggerkit.Op{Method: "GET", Path: p + "/runs", Tag: "Meta", Summary: "Recent pipeline runs", Params: []swaggerkit.Param{
			{Name: "action", In: "query", Description: "identify, collapse_samples, cluster, ..."},
			{Name: "limit", In: "query", Type: "integer"},
		}},
	)
}
