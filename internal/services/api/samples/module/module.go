// Package module mounts the samples read API
package module

import (
	modkit "repertoire/internal/modkit"
	"repertoire/internal/modkit/httpkit"
	sampleshttp "repertoire/internal/services/api/samples/http"
	samplesrepo "repertoire/internal/services/api/samples/repo"
	samplessvc "repertoire/internal/services/api/samples/service"
)

type Module struct {
	*modkit.Base
	svc samplessvc.Service
}

func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("samples"), modkit.WithPrefix("/samples")}, opts...)...)
	svc := samplessvc.New(deps.PG, samplesrepo.NewPG())
	return &Module{
		Base: modkit.NewBase(b, func(r httpkit.Router) { sampleshttp.Register(r, svc) }),
		svc:  svc,
	}
}
