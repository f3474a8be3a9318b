// Package module wires the clones service as a modkit.Module
package module

import (
	"repertoire/internal/core/lineage"
	"repertoire/internal/modkit"
	"repertoire/internal/modkit/httpkit"
	"repertoire/internal/modkit/repokit"

	clonesdom "repertoire/internal/services/clones/domain"
	"repertoire/internal/services/clones/guardrails"
	clonesrepo "repertoire/internal/services/clones/repo"
	clonesservice "repertoire/internal/services/clones/service"
)

// Ports exported by the clones module
type Ports struct {
	Runner clonesdom.RunnerPort
}

// Module implements modkit.Module for clonal clustering
type Module struct {
	deps  modkit.Deps
	opts  Options
	svc   *clonesservice.Service
	ports Ports
}

// New constructs and wires the clones module. Statistics also flow to
// clickhouse when deps.CH is set
func New(deps modkit.Deps, opts Options) *Module {
	db := repokit.WithBeginHooks(deps.PG, guardrails.LockTimeout(opts.LockTimeout))
	svc := clonesservice.New(db, clonesrepo.NewPG(), clonesservice.Config{
		Workers:  opts.Workers,
		Builder:  lineage.NewBuilder(opts.TreeCommand, opts.TreeArgs, opts.TreeTempDir),
		Lease:    guardrails.MakeScopeLease(deps.PG, opts.LeaseOwner, opts.LeaseTTL),
		Timeouts: opts.Timeouts,
		Sink:     clonesrepo.NewCHStats(deps.CH),
	})
	return &Module{deps: deps, opts: opts, svc: svc, ports: Ports{Runner: svc}}
}

// Service exposes the concrete service
func (m *Module) Service() *clonesservice.Service { return m.svc }

// Defaults is the run input assembled from environment
func (m *Module) Defaults() clonesdom.RunInput { return m.opts.Input }

// Name returns the module name
func (m *Module) Name() string { return "clones" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module config prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes is a no-op: clustering has no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
