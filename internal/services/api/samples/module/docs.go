package module

import "repertoire/internal/modkit/swaggerkit"

// Document describes the samples routes
func (m *Module) Document(d *swaggerkit.Doc) {
	page := []swaggerkit.Param{
		{Name: "limit", In: "query", Type: "integer"},
		{Name: "offset", In: "query", Type: "integer"},
	}
	d.Add(
		swaggerkit.Op{Method: "GET", Path: m.Prefix(), Tag: "Samples", Summary: "List samples",
			Params: append([]swaggerkit.Param{{Name: "subject", In: "query", Description: "Subject identifier"}}, page...)},
		swaggerkit.Op{Method: "GET", Path: m.Prefix() + "/{id}/sequences", Tag: "Samples", Summary: "Identified sequences of one sample",
			Params: append([]swaggerkit.Param{
				{Name: "id", In: "path", Type: "integer", Description: "Sample id"},
				{Name: "status", In: "query", Description: "aligned, indel, partial or failed"},
				{Name: "functional", In: "query", Type: "boolean"},
			}, page...)},
	)
}
