// Package http provides http transport for clones
package http

import (
	"bytes"
	"fmt"
	stdhttp "net/http"
	"strconv"

	"repertoire/internal/modkit/httpkit"
	"repertoire/internal/platform/logger"
	"repertoire/internal/services/api/clones/domain"
	svc "repertoire/internal/services/api/clones/service"
)

// Register mounts clone endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{id}", h.get)
	httpkit.Get(r, "/{id}/tree", h.tree)
	r.Get("/{id}/export", h.export)
}

type handlers struct{ svc svc.Service }

// @Summary List clones, largest first
// @Tags Clones
// @Produce json
// @Param subject query string false "Subject identifier"
// @Param locus query string false "Locus, e.g. IGH"
// @Param mode query string false "similarity, lineage or import"
// @Param v_gene query string false "Substring of the V ties"
// @Param min_copies query int false "Minimum total copies"
// @Param subclones query bool false "Include subclones"
// @Success 200 {object} domain.Page "ok"
// @Router /clones [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	in, err := httpkit.Query[domain.ListInput](r)
	if err != nil {
		return nil, err
	}
	return h.svc.List(r.Context(), in)
}

// @Summary One clone with stats, members and subclones
// @Tags Clones
// @Produce json
// @Param id path int true "Clone id"
// @Success 200 {object} domain.CloneDetail "ok"
// @Router /clones/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	id, err := httpkit.PathInt64(r, "id")
	if err != nil {
		return nil, err
	}
	return h.svc.Get(r.Context(), id)
}

// @Summary Lineage tree of a clone
// @Tags Clones
// @Produce json
// @Param id path int true "Clone id"
// @Param min_mut_copies query int false "Hide mutations seen in fewer copies"
// @Param min_seq_copies query int false "Hide members with fewer copies"
// @Param force query bool false "Rebuild even when cached"
// @Router /clones/{id}/tree [get]
func (h *handlers) tree(r *stdhttp.Request) (any, error) {
	id, err := httpkit.PathInt64(r, "id")
	if err != nil {
		return nil, err
	}
	in, err := httpkit.Query[domain.TreeInput](r)
	if err != nil {
		return nil, err
	}
	res, err := h.svc.Tree(r.Context(), id, in)
	if err != nil {
		return nil, err
	}
	hdr := stdhttp.Header{}
	hdr.Set("X-Tree-Cached", strconv.FormatBool(res.Cached))
	return httpkit.Response{Status: stdhttp.StatusOK, Body: res.Tree, Header: hdr}, nil
}

// @Summary Sequence to clone associations of one clone
// @Tags Clones
// @Produce text/tab-separated-values
// @Param id path int true "Clone id"
// @Router /clones/{id}/export [get]
func (h *handlers) export(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id, err := httpkit.PathInt64(r, "id")
	if err != nil {
		httpkit.RespondError(w, r, err)
		return
	}
	var buf bytes.Buffer
	n, err := h.svc.Export(r.Context(), &buf, id)
	if err != nil {
		httpkit.RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="clone-%d.tsv"`, id))
	w.Header().Set("X-Rows", strconv.Itoa(n))
	w.WriteHeader(stdhttp.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.C(r.Context()).Warn().Err(err).Int64("clone_id", id).Msg("export write failed")
	}
}
