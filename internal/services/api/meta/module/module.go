// Package module mounts the meta endpoints: probes, build info and the run log
package module

import (
	"time"

	modkit "repertoire/internal/modkit"
	"repertoire/internal/modkit/httpkit"

	metahttp "repertoire/internal/services/api/meta/http"
)

// ServiceName is what health and version report
const ServiceName = "repertoire-api"

type Module struct {
	*modkit.Base
	startedAt time.Time
}

func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)...)
	m := &Module{startedAt: time.Now()}
	m.Base = modkit.NewBase(b, func(r httpkit.Router) {
		metahttp.Register(r, metahttp.Deps{
			ServiceName: ServiceName,
			StartedAt:   m.startedAt,
			PG:          deps.PG,
			CH:          deps.CH,
			DB:          deps.PG,
		})
	})
	return m
}

// Ports is nil, nothing reads through meta
func (m *Module) Ports() any { return nil }
