// Package module wires the clones API using modkit
package module

import (
	"repertoire/internal/core/lineage"
	modkit "repertoire/internal/modkit"
	"repertoire/internal/modkit/httpkit"

	cloneshttp "repertoire/internal/services/api/clones/http"
	clonesrepo "repertoire/internal/services/api/clones/repo"
	clonessvc "repertoire/internal/services/api/clones/service"
	exdom "repertoire/internal/services/exchange/domain"
	treesdom "repertoire/internal/services/trees/domain"
)

// Ports declares the worker ports this API module needs injected
type Ports struct {
	Renderer treesdom.RendererPort
	Exchange exdom.ExchangePort
	Filters  lineage.Filters
}

type Module struct {
	*modkit.Base
	svc clonessvc.Service
}

// New wires the clones read API. Renderer and Exchange must arrive through
// modkit.WithPorts; without them the module panics at startup
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("clones"), modkit.WithPrefix("/clones")}, opts...)...)

	injected, _ := b.Ports.(Ports)
	if injected.Renderer == nil || injected.Exchange == nil {
		panic("clones API module requires Renderer and Exchange ports")
	}

	svc := clonessvc.New(deps.PG, clonesrepo.NewPG(), clonessvc.Options{
		Renderer: injected.Renderer,
		Exchange: injected.Exchange,
		Filters:  injected.Filters,
	})
	return &Module{
		Base: modkit.NewBase(b, func(r httpkit.Router) { cloneshttp.Register(r, svc) }),
		svc:  svc,
	}
}
