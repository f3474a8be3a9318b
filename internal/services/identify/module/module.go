// Package module wires the identify service as a modkit.Module
package module

import (
	"repertoire/internal/core/align"
	"repertoire/internal/core/germline"
	"repertoire/internal/modkit"
	"repertoire/internal/modkit/httpkit"
	perr "repertoire/internal/platform/errors"

	iddom "repertoire/internal/services/identify/domain"
	idrepo "repertoire/internal/services/identify/repo"
	idservice "repertoire/internal/services/identify/service"
)

// Ports exported by the identify module
type Ports struct {
	Runner iddom.RunnerPort
}

// Module implements modkit.Module for identify
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New loads the germlines named in opts and wires the service. Germline and
// threshold problems are configuration errors
func New(deps modkit.Deps, opts Options) (*Module, error) {
	if opts.VGermlines == "" || opts.JGermlines == "" {
		return nil, perr.Configf("identify: V and J germline paths are required")
	}
	ref, err := germline.LoadFiles(opts.VGermlines, opts.JGermlines, opts.J)
	if err != nil {
		return nil, err
	}
	aligner, err := align.New(ref, opts.Align)
	if err != nil {
		return nil, err
	}

	svc := idservice.New(deps.PG, idrepo.NewPG(), aligner, idservice.Config{
		Workers: opts.Workers,
		Force:   opts.Force,
	})
	deps.Log.Info().
		Int("v_genes", ref.V.Len()).
		Int("j_genes", len(ref.J.Names())).
		Msg("identify: germlines loaded")

	return &Module{deps: deps, ports: Ports{Runner: svc}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "identify" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module config prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes is a no-op: identify has no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
