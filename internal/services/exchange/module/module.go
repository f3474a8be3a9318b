// Package module wires the exchange service as a modkit.Module
package module

import (
	"repertoire/internal/modkit"
	"repertoire/internal/modkit/httpkit"

	"repertoire/internal/services/clones/guardrails"
	clonesrepo "repertoire/internal/services/clones/repo"
	exdom "repertoire/internal/services/exchange/domain"
	exrepo "repertoire/internal/services/exchange/repo"
	exservice "repertoire/internal/services/exchange/service"
)

// Ports exported by the exchange module
type Ports struct {
	Exchange exdom.ExchangePort
}

// Module implements modkit.Module for association exchange
type Module struct {
	deps  modkit.Deps
	svc   *exservice.Service
	ports Ports
}

// New constructs and wires the exchange module
func New(deps modkit.Deps, opts Options) *Module {
	svc := exservice.New(deps.PG, exrepo.NewPG(), clonesrepo.NewPG(), exservice.Config{
		Delimiter: opts.Delimiter,
		Lease:     guardrails.MakeScopeLease(deps.PG, opts.LeaseOwner, opts.LeaseTTL),
	})
	return &Module{deps: deps, svc: svc, ports: Ports{Exchange: svc}}
}

// Service exposes the concrete service
func (m *Module) Service() *exservice.Service { return m.svc }

// Name returns the module name
func (m *Module) Name() string { return "exchange" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module config prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes is a no-op: the API reaches exchange through its port
func (m *Module) MountRoutes(_ httpkit.Router) {}
