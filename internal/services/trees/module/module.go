// Package module wires the trees service as a modkit.Module
package module

import (
	"repertoire/internal/core/lineage"
	"repertoire/internal/modkit"
	"repertoire/internal/modkit/httpkit"

	treesdom "repertoire/internal/services/trees/domain"
	treesrepo "repertoire/internal/services/trees/repo"
	treesservice "repertoire/internal/services/trees/service"
)

// Ports exported by the trees module
type Ports struct {
	Renderer treesdom.RendererPort
}

// Module implements modkit.Module for tree rendering
type Module struct {
	deps  modkit.Deps
	opts  Options
	svc   *treesservice.Service
	ports Ports
}

// New constructs and wires the trees module
func New(deps modkit.Deps, opts Options) *Module {
	svc := treesservice.New(deps.PG, treesrepo.NewPG(), treesservice.Config{
		Workers:     opts.Workers,
		Builder:     lineage.NewBuilder(opts.TreeCommand, opts.TreeArgs, opts.TreeTempDir),
		TreeTimeout: opts.TreeTimeout,
	})
	return &Module{deps: deps, opts: opts, svc: svc, ports: Ports{Renderer: svc}}
}

// Service exposes the concrete service
func (m *Module) Service() *treesservice.Service { return m.svc }

// Filters are the default render filters from environment
func (m *Module) Filters() lineage.Filters { return m.opts.Filters }

// Name returns the module name
func (m *Module) Name() string { return "trees" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module config prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes is a no-op: the API reaches trees through its port
func (m *Module) MountRoutes(_ httpkit.Router) {}
