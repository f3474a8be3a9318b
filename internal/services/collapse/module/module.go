// Package module wires the collapse service as a modkit.Module
package module

import (
	"repertoire/internal/modkit"
	"repertoire/internal/modkit/httpkit"

	coldom "repertoire/internal/services/collapse/domain"
	colrepo "repertoire/internal/services/collapse/repo"
	colservice "repertoire/internal/services/collapse/service"
)

// Ports exported by the collapse module
type Ports struct {
	Runner coldom.RunnerPort
}

// Module implements modkit.Module for collapse
type Module struct {
	deps  modkit.Deps
	svc   *colservice.Service
	ports Ports
}

// New constructs and wires the collapse module
func New(deps modkit.Deps, opts Options) *Module {
	svc := colservice.New(deps.PG, colrepo.NewPG(), colservice.Config{
		Workers: opts.Workers,
		Force:   opts.Force,
		Regen:   opts.Regen,
	})
	return &Module{deps: deps, svc: svc, ports: Ports{Runner: svc}}
}

// Service exposes the concrete service for the CLI's combined run
func (m *Module) Service() *colservice.Service { return m.svc }

// Name returns the module name
func (m *Module) Name() string { return "collapse" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module config prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes is a no-op: collapse has no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
