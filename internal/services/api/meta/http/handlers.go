// Package http serves the meta endpoints: liveness, readiness with backend
// pings, build info and the run log
package http

import (
	"context"
	"net/http"
	"time"

	"repertoire/internal/core/version"
	"repertoire/internal/modkit/httpkit"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/runlog"
)

const readyTimeout = 2 * time.Second

// Pinger is the readiness probe a backend may implement
type Pinger interface {
	Ping(context.Context) error
}

// Deps are untyped for PG and CH so a backend that cannot be pinged reports
// unknown instead of failing to wire
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	PG          any
	CH          any
	DB          repokit.TxRunner
}

type HealthResponse struct {
	OK      bool   `json:"ok" example:"true"`
	Service string `json:"service" example:"repertoire-api"`
	Started string `json:"started" example:"2026-01-12T08:00:00Z"`
	Now     string `json:"now" example:"2026-01-12T08:05:00Z"`
}

// ReadyCheck is one backend's probe: ok, fail, skipped or unknown
type ReadyCheck struct {
	Name   string `json:"name" example:"pg"`
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty"`
}

// ReadyResponse.Status is ok, degraded or fail
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"`
}

type ServiceResponse struct {
	Name    string `json:"name" example:"repertoire-api"`
	Started string `json:"started"`
	Uptime  int64  `json:"uptime" example:"300"`
}

// RunsInput filters GET /meta/runs
type RunsInput struct {
	Action string `query:"action" json:"action,omitempty" validate:"omitempty,max=64" example:"cluster"`
	Limit  int    `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=200" example:"20"`
}

type handlers struct{ Deps }

func Register(r httpkit.Router, d Deps) {
	h := handlers{d}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
	httpkit.Get(r, "/runs", h.runs)
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func (h handlers) health(*http.Request) (any, error) {
	return HealthResponse{OK: true, Service: h.ServiceName, Started: stamp(h.StartedAt), Now: stamp(time.Now())}, nil
}

func probe(ctx context.Context, name string, backend any) ReadyCheck {
	c := ReadyCheck{Name: name, Status: "unknown"}
	switch p := backend.(type) {
	case nil:
		c.Status = "skipped"
	case Pinger:
		c.Status = "ok"
		if err := p.Ping(ctx); err != nil {
			c.Status, c.Error = "fail", err.Error()
		}
	}
	return c
}

// ready fails when any probe fails. Postgres not being ok degrades the
// service; clickhouse only mirrors clone stats, so skipping it does not
func (h handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	pg, ch := probe(ctx, "pg", h.PG), probe(ctx, "ch", h.CH)
	out := ReadyResponse{Status: "ok", Checks: []ReadyCheck{pg, ch}, Now: stamp(time.Now())}
	switch {
	case pg.Status == "fail" || ch.Status == "fail":
		out.Status = "fail"
	case pg.Status != "ok" || ch.Status == "unknown":
		out.Status = "degraded"
	}
	return out, nil
}

func (h handlers) version(*http.Request) (any, error) {
	return version.Info(h.ServiceName), nil
}

func (h handlers) service(*http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.ServiceName,
		Started: stamp(h.StartedAt),
		Uptime:  int64(time.Since(h.StartedAt) / time.Second),
	}, nil
}

func (h handlers) runs(r *http.Request) (any, error) {
	if h.DB == nil {
		return nil, perr.New(perr.ErrorCodeUnavailable, "run log unavailable")
	}
	in, err := httpkit.Query[RunsInput](r)
	if err != nil {
		return nil, err
	}
	out := []runlog.Entry{}
	err = h.DB.Tx(r.Context(), func(q repokit.Queryer) error {
		entries, err := runlog.Recent(r.Context(), q, in.Action, in.Limit)
		if entries != nil {
			out = entries
		}
		return err
	})
	return out, err
}
