package module

import "repertoire/internal/modkit/swaggerkit"

// Document describes the clones routes for the served OpenAPI spec
func (m *Module) Document(d *swaggerkit.Doc) {
	id := swaggerkit.Param{Name: "id", In: "path", Type: "integer", Description: "Clone id"}
	p := m.Prefix()
	d.Add(
		swaggerkit.Op{Method: "GET", Path: p, Tag: "Clones", Summary: "List clones, largest first", Params: []swaggerkit.Param{
			{Name: "subject", In: "query", Description: "Subject identifier"},
			{Name: "locus", In: "query", Description: "Locus, e.g. IGH"},
			{Name: "mode", In: "query", Description: "similarity, lineage or import"},
			{Name: "v_gene", In: "query", Description: "Substring of the V ties"},
			{Name: "min_copies", In: "query", Type: "integer"},
			{Name: "subclones", In: "query", Type: "boolean"},
			{Name: "limit", In: "query", Type: "integer"},
			{Name: "offset", In: "query", Type: "integer"},
		}},
		swaggerkit.Op{Method: "GET", Path: p + "/{id}", Tag: "Clones", Summary: "One clone with stats, members and subclones", Params: []swaggerkit.Param{id}},
		swaggerkit.Op{Method: "GET", Path: p + "/{id}/tree", Tag: "Clones", Summary: "Lineage tree of a clone", Params: []swaggerkit.Param{
			id,
			{Name: "min_mut_copies", In: "query", Type: "integer"},
			{Name: "min_mut_samples", In: "query", Type: "integer"},
			{Name: "min_seq_copies", In: "query", Type: "integer"},
			{Name: "min_seq_samples", In: "query", Type: "integer"},
			{Name: "exclude_stops", In: "query", Type: "boolean"},
			{Name: "force", In: "query", Type: "boolean", Description: "Rebuild even when cached"},
		}},
		swaggerkit.Op{Method: "GET", Path: p + "/{id}/export", Tag: "Clones", Summary: "Sequence to clone associations of one clone",
			Produces: "text/tab-separated-values", Params: []swaggerkit.Param{id}},
	)
}
