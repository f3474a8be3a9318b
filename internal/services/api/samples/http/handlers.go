// Package http provides http transport for samples
package http

import (
	stdhttp "net/http"

	"repertoire/internal/modkit/httpkit"
	"repertoire/internal/services/api/samples/domain"
	svc "repertoire/internal/services/api/samples/service"
)

// Register mounts samples endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{id}/sequences", h.sequences)
}

type handlers struct{ svc svc.Service }

// @Summary List samples
// @Tags Samples
// @Produce json
// @Param subject query string false "Subject identifier"
// @Param limit query int false "Page size"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} domain.Page[domain.Sample] "ok"
// @Router /samples [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	in, err := httpkit.Query[domain.ListInput](r)
	if err != nil {
		return nil, err
	}
	return h.svc.List(r.Context(), in)
}

// @Summary Identified sequences of one sample
// @Tags Samples
// @Produce json
// @Param id path int true "Sample id"
// @Param status query string false "aligned, indel, partial or failed"
// @Param functional query bool false "Only functional sequences"
// @Success 200 {object} domain.Page[domain.Sequence] "ok"
// @Router /samples/{id}/sequences [get]
func (h *handlers) sequences(r *stdhttp.Request) (any, error) {
	id, err := httpkit.PathInt64(r, "id")
	if err != nil {
		return nil, err
	}
	in, err := httpkit.Query[domain.SequencesInput](r)
	if err != nil {
		return nil, err
	}
	return h.svc.Sequences(r.Context(), id, in)
}
